package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OliverSieweke/supermarket-customer-behavior/analysis"
	"github.com/OliverSieweke/supermarket-customer-behavior/dataset"
	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/ingest"
	"github.com/OliverSieweke/supermarket-customer-behavior/sim"
	"github.com/OliverSieweke/supermarket-customer-behavior/version"
)

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleVersion returns build information.
func (s *Server) HandleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// HandleDays lists ingested days with visit counts.
func (s *Server) HandleDays(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.visits.Stats(r.Context())
	if err != nil {
		s.logger.Errorw("Failed to load visit stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load visit stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// annotatedVisits loads stored visits (one day or all), annotates entry/exit
// and drops customers that never reached checkout.
func (s *Server) annotatedVisits(ctx context.Context, dayParam string) ([]dataset.Visit, error) {
	var visits []dataset.Visit
	var err error

	if dayParam == "" {
		visits, err = s.visits.AllVisits(ctx)
	} else {
		var day dataset.Weekday
		day, err = dataset.ParseWeekday(dayParam)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidRequest, err.Error())
		}
		visits, err = s.visits.VisitsForDay(ctx, day)
	}
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, errors.ErrNoVisits
	}

	layout := s.layout()
	return dataset.FilterNonExiting(dataset.MarkEntryExit(visits, layout), layout), nil
}

// writeVisitError maps pipeline errors onto HTTP statuses.
func (s *Server) writeVisitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrNoVisits):
		writeError(w, http.StatusNotFound, "no visits ingested")
	default:
		s.logger.Errorw("Failed to load visits", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load visits")
	}
}

// HandleMatrix returns the fitted transition matrix. ?day= restricts the fit
// to one weekday.
func (s *Server) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	visits, err := s.annotatedVisits(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		s.writeVisitError(w, err)
		return
	}

	layout := s.layout()
	matrix, err := analysis.FitTransitionMatrix(dataset.WithEntranceRows(visits, layout), layout)
	if err != nil {
		s.writeVisitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

// HandleOccupancy returns customers per location over time. Optional ?day=
// and ?locations= (comma-separated) narrow the report.
func (s *Server) HandleOccupancy(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	visits, err := s.annotatedVisits(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		s.writeVisitError(w, err)
		return
	}

	var locations []string
	if raw := r.URL.Query().Get("locations"); raw != "" {
		locations = strings.Split(raw, ",")
	}
	writeJSON(w, http.StatusOK, analysis.Occupancy(visits, locations))
}

// HandleTotals returns the running in-store customer count over time.
func (s *Server) HandleTotals(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	visits, err := s.annotatedVisits(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		s.writeVisitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.CustomerTotals(visits))
}

// HandleTimeInStore returns per-customer stay lengths plus the mean.
func (s *Server) HandleTimeInStore(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	visits, err := s.annotatedVisits(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		s.writeVisitError(w, err)
		return
	}

	durations := analysis.TimeInStore(visits)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers":    durations,
		"mean_minutes": analysis.MeanMinutes(durations),
	})
}

// HandleJobs lists ingestion jobs, optionally filtered by ?status=.
func (s *Server) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var status *ingest.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		if !ingest.IsValidStatus(raw) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		st := ingest.JobStatus(raw)
		status = &st
	}

	jobs, err := s.pool.GetQueue().ListJobs(status, limit)
	if err != nil {
		s.logger.Errorw("Failed to list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*ingest.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// HandleJob returns one job by ID (/api/jobs/{id}).
func (s *Server) HandleJob(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.pool.GetQueue().GetJob(id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Errorw("Failed to get job", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// simulateRequest is the POST /api/simulate body.
type simulateRequest struct {
	Customers int   `json:"customers"`
	Seed      int64 `json:"seed"`
	Live      bool  `json:"live"`
}

// HandleSimulate runs a Markov simulation over the fitted matrix. With
// "live": true the simulation runs on a ticker and frames are broadcast over
// the WebSocket instead of returned.
func (s *Server) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	defaults := s.simDefaults()
	req := simulateRequest{Customers: defaults.Customers, Seed: defaults.Seed}
	if r.Body != nil && r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			return
		}
	}
	if req.Customers <= 0 {
		writeError(w, http.StatusBadRequest, "customers must be positive")
		return
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	visits, err := s.annotatedVisits(r.Context(), "")
	if err != nil {
		s.writeVisitError(w, err)
		return
	}
	layout := s.layout()
	matrix, err := analysis.FitTransitionMatrix(dataset.WithEntranceRows(visits, layout), layout)
	if err != nil {
		s.writeVisitError(w, err)
		return
	}

	if req.Live {
		if !s.startLiveSimulation(matrix, req.Customers, req.Seed) {
			writeError(w, http.StatusConflict, "a live simulation is already running")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"live":      true,
			"customers": req.Customers,
			"seed":      req.Seed,
		})
		return
	}

	simulator := sim.New(matrix, layout, defaults.MaxSteps)
	synthetic, err := simulator.Run(req.Customers, req.Seed, time.Now().Truncate(time.Minute))
	if err != nil {
		if errors.Is(err, errors.ErrCheckoutUnreachable) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Errorw("Simulation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "simulation failed")
		return
	}

	durations := analysis.TimeInStore(synthetic)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customers":    req.Customers,
		"seed":         req.Seed,
		"total_visits": len(synthetic),
		"mean_minutes": analysis.MeanMinutes(durations),
		"occupancy":    analysis.Occupancy(synthetic, nil),
	})
}
