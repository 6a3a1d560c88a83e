// Package server exposes the behavior reports over HTTP and streams job
// updates and live simulation frames over WebSocket.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/store"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// Server is the reporting server: HTTP endpoints for the statistics, a
// WebSocket hub for job updates and live simulation frames, and the ingest
// worker pool it supervises.
type Server struct {
	cfg    *am.Config
	db     *sql.DB
	visits *store.VisitStore
	pool   *ingest.WorkerPool
	logger *zap.SugaredLogger

	mux        *http.ServeMux
	httpServer *http.Server
	upgrader   websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	simMu   sync.Mutex
	simLive bool

	cfgMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// New builds a server over an open database. The worker pool is created but
// not started; Start launches it together with the HTTP listener.
func New(ctx context.Context, cfg *am.Config, database *sql.DB, logger *zap.SugaredLogger) *Server {
	serverCtx, cancel := context.WithCancel(ctx)

	pool := ingest.NewWorkerPool(serverCtx, database, ingest.WorkerPoolConfig{
		Workers:       cfg.Ingest.Workers,
		PollInterval:  time.Duration(cfg.Ingest.PollIntervalSeconds) * time.Second,
		JobsPerMinute: cfg.Ingest.JobsPerMinute,
	}, logger)

	visits := store.NewVisitStore(database)
	pool.Registry().Register(ingest.NewCSVDayHandler(pool.GetQueue(), visits, logger))

	s := &Server{
		cfg:        cfg,
		db:         database,
		visits:     visits,
		pool:       pool,
		logger:     logger.Named("server"),
		mux:        http.NewServeMux(),
		clients:    map[*Client]bool{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        serverCtx,
		cancel:     cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupRoutes()
	return s
}

// checkOrigin validates the WebSocket/CORS origin against the configured
// allowed origins. Requests without an Origin header (CLI tools, curl) pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// simDefaults returns the current simulation settings under the config lock.
func (s *Server) simDefaults() am.SimConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Sim
}

// layout returns the configured store layout under the config lock.
func (s *Server) layout() dataset.Layout {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Data.Layout()
}

// ApplyConfig adopts runtime-tunable settings from a reloaded configuration.
// Allowed origins and simulation defaults apply live; port, database and
// worker pool changes take effect on restart.
func (s *Server) ApplyConfig(next *am.Config) error {
	s.cfgMu.Lock()
	s.cfg.Server.AllowedOrigins = next.Server.AllowedOrigins
	s.cfg.Sim = next.Sim
	s.cfgMu.Unlock()

	s.logger.Infow(sym.AM+" Configuration reloaded",
		"allowed_origins", next.Server.AllowedOrigins,
		"sim_customers", next.Sim.Customers)
	return nil
}

// Start runs the hub, the job broadcaster, the worker pool, the data
// directory watcher, and finally the HTTP listener. It blocks until the
// listener stops.
func (s *Server) Start() error {
	s.wg.Add(1)
	go s.runHub()

	s.startJobUpdateBroadcaster()
	s.pool.Start()

	watcher, err := ingest.NewWatcher(s.cfg.Data.Dir, s.pool.GetQueue(),
		time.Duration(s.cfg.Ingest.WatchDebounceMs)*time.Millisecond, s.logger)
	if err != nil {
		s.logger.Warnw("Data directory watcher not started", "dir", s.cfg.Data.Dir, "error", err)
	} else {
		defer watcher.Close()
	}

	addr := ":" + strconv.Itoa(s.cfg.Server.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.mux}

	s.logger.Infow(sym.WS+" Server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown stops the listener, the worker pool and the hub, waiting for
// in-flight work up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow(sym.PulseClose + " Server shutting down")

	var httpErr error
	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}

	s.pool.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warnw("Shutdown timeout, background goroutines still running")
	}
	return httpErr
}

// Pool exposes the worker pool queue for the CLI serve command.
func (s *Server) Pool() *ingest.WorkerPool {
	return s.pool
}

// runHub owns the client set. Register/unregister go through channels so the
// map is only touched here; broadcastMessage snapshots under the read lock.
func (s *Server) runHub() {
	defer s.wg.Done()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debugw("Client connected", "client_id", client.id, "clients", count)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
			}
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debugw("Client disconnected", "client_id", client.id, "clients", count)

		case <-s.ctx.Done():
			s.mu.Lock()
			for client := range s.clients {
				client.close()
				delete(s.clients, client)
			}
			s.mu.Unlock()
			return
		}
	}
}
