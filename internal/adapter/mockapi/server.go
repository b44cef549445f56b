// Package mockapi serves a simulated employee access API with configurable
// latency and failure injection so the console can run standalone.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Strob0t/AccessDesk/internal/config"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
)

// Random is the failure dice. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

// Server is the simulated access API.
type Server struct {
	mu        sync.Mutex
	roster    []employee.Employee
	index     map[string]int
	rnd       Random
	rndMu     sync.Mutex
	failRate  float64
	latency   time.Duration
	loadDelay time.Duration
	validate  *validator.Validate
	now       func() time.Time
}

// New creates a Server with a roster generated from cfg.Seed.
func New(cfg config.Backend) *Server {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // simulation only
	s := &Server{
		rnd:       rng,
		failRate:  cfg.FailureRate,
		latency:   cfg.Latency,
		loadDelay: cfg.LoadLatency,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
	s.setRoster(GenerateRoster(rng, cfg.RosterSize, s.now()))
	return s
}

// SetRandom replaces the failure dice.
func (s *Server) SetRandom(r Random) {
	s.rndMu.Lock()
	s.rnd = r
	s.rndMu.Unlock()
}

// SetRoster replaces the served employees.
func (s *Server) SetRoster(list []employee.Employee) {
	s.setRoster(list)
}

func (s *Server) setRoster(list []employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = make([]employee.Employee, len(list))
	s.index = make(map[string]int, len(list))
	for i := range list {
		s.roster[i] = list[i].Clone()
		s.index[list[i].ID] = i
	}
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/api/employees", s.listEmployees)
	r.Post("/api/employees", s.updateStatus)
}

// Handler returns a standalone router serving the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)
	return r
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	if !sleep(r, s.loadDelay) {
		return
	}

	s.mu.Lock()
	data := make([]employee.Employee, len(s.roster))
	for i := range s.roster {
		data[i] = s.roster[i].Clone()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, accessapi.ListResponse{
		Success:   true,
		Data:      data,
		Timestamp: s.now().UTC(),
	})
}

// updateBody mirrors accessapi.UpdateRequest with loose types so missing
// fields can be told apart from zero values.
type updateBody struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	System     string `json:"system" validate:"required"`
	NewStatus  *bool  `json:"newStatus" validate:"required"`
}

const invalidMessage = "employeeId, system and newStatus are required"

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body updateBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data", invalidMessage)
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data", invalidMessage)
		return
	}
	sys, err := employee.ParseSystem(body.System)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid data", err.Error())
		return
	}

	if !sleep(r, s.latency) {
		return
	}

	if s.roll() < s.failRate {
		slog.Debug("mockapi injected failure", "employee_id", body.EmployeeID, "system", sys)
		writeError(w, http.StatusServiceUnavailable, "Connection error", "Could not reach the target system")
		return
	}

	if err := s.apply(body.EmployeeID, sys, *body.NewStatus); err != nil {
		writeError(w, http.StatusNotFound, "Not found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, accessapi.UpdateResponse{
		Success: true,
		Message: fmt.Sprintf("Status for system %s updated successfully", sys),
		Data: accessapi.UpdateResult{
			EmployeeID: body.EmployeeID,
			System:     sys,
			NewStatus:  *body.NewStatus,
			UpdatedAt:  s.now().UTC(),
		},
	})
}

var errNoCell = errors.New("employee does not hold an account on this system")

func (s *Server) apply(id string, sys employee.System, status bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("employee %s not found", id)
	}
	e := &s.roster[i]
	for j := range e.Systems {
		if e.Systems[j].System == sys {
			e.Systems[j].Status = status
			e.LastUpdated = s.now().UTC()
			return nil
		}
	}
	return errNoCell
}

func (s *Server) roll() float64 {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Float64()
}

// sleep waits d or until the client goes away. It reports whether the
// handler should continue.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("mockapi encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, errText, message string) {
	writeJSON(w, status, accessapi.ErrorResponse{Success: false, Error: errText, Message: message})
}
