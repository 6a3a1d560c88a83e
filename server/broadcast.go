package server

import (
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/sim"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// JobUpdateMessage notifies clients about ingestion job state changes.
type JobUpdateMessage struct {
	Type      string      `json:"type"` // "job_update"
	Job       *ingest.Job `json:"job"`
	Timestamp int64       `json:"timestamp"`
}

// SimFrameMessage carries one live simulation occupancy frame.
type SimFrameMessage struct {
	Type      string    `json:"type"` // "sim_frame"
	Frame     sim.Frame `json:"frame"`
	Done      bool      `json:"done"`
	Error     string    `json:"error,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// broadcastMessage sends a message to all connected clients.
// Returns the number of clients that accepted the message (channel not full).
func (s *Server) broadcastMessage(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- msg:
			sent++
		default:
			// Channel full - skip
		}
	}
	return sent
}

// startJobUpdateBroadcaster subscribes to job queue updates and fans them out
// to WebSocket clients.
func (s *Server) startJobUpdateBroadcaster() {
	jobChan := s.pool.GetQueue().Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			// Unsubscribe first (removes from list), then close.
			// Order matters: closing while still subscribed could panic on send.
			s.pool.GetQueue().Unsubscribe(jobChan)
			close(jobChan)
		}()

		for {
			select {
			case <-s.ctx.Done():
				return
			case job := <-jobChan:
				sent := s.broadcastMessage(JobUpdateMessage{
					Type:      "job_update",
					Job:       job,
					Timestamp: time.Now().Unix(),
				})
				s.logger.Debugw("Broadcasted job update",
					"job_id", job.ID,
					"status", job.Status,
					"clients", sent)
			}
		}
	}()

	s.logger.Infow(sym.WS + " Job update broadcaster started")
}

// startLiveSimulation drives a live simulation on a per-second ticker, one
// simulated minute per tick, broadcasting each occupancy frame. Only one live
// simulation runs at a time; returns false when one is already running.
func (s *Server) startLiveSimulation(matrix *analysis.Matrix, customers int, seed int64) bool {
	s.simMu.Lock()
	if s.simLive {
		s.simMu.Unlock()
		return false
	}
	s.simLive = true
	s.simMu.Unlock()

	live := sim.NewLive(matrix, s.layout(), customers, seed, s.simDefaults().MaxSteps)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.simMu.Lock()
			s.simLive = false
			s.simMu.Unlock()
		}()

		s.logger.Infow(sym.SIM+" Live simulation started",
			"customers", customers, "seed", seed)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				frame, done, err := live.Step()
				if err != nil {
					s.broadcastMessage(SimFrameMessage{
						Type:      "sim_frame",
						Done:      true,
						Error:     err.Error(),
						Timestamp: time.Now().Unix(),
					})
					s.logger.Warnw("Live simulation aborted", "error", err)
					return
				}

				s.broadcastMessage(SimFrameMessage{
					Type:      "sim_frame",
					Frame:     frame,
					Done:      done,
					Timestamp: time.Now().Unix(),
				})
				if done {
					s.logger.Infow(sym.SIM+" Live simulation finished",
						"steps", frame.Step, "customers", customers)
					return
				}
			}
		}
	}()
	return true
}
