package http

import (
	"errors"
	"net/http"

	"github.com/Strob0t/AccessDesk/internal/adapter/ws"
	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/filter"
	"github.com/Strob0t/AccessDesk/internal/port/messagequeue"
	"github.com/Strob0t/AccessDesk/internal/resilience"
	"github.com/Strob0t/AccessDesk/internal/service"
	"github.com/Strob0t/AccessDesk/internal/tracker"
)

// Handlers holds the dependencies of the console API.
type Handlers struct {
	Console *service.ConsoleService
	Hub     *ws.Hub
	Breaker *resilience.Breaker // optional, reported by Health
	Queue   messagequeue.Queue  // optional, reported by Health
}

// ListEmployees handles GET /api/v1/employees
func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q, err := filter.ParseQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "page_size", 0)
	if !ok {
		return
	}

	view, err := h.Console.View(q, page, size)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetEmployee handles GET /api/v1/employees/{id}
func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	row, err := h.Console.Employee(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "employee not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// ReloadDirectory handles POST /api/v1/employees/reload
func (h *Handlers) ReloadDirectory(w http.ResponseWriter, r *http.Request) {
	if err := h.Console.Load(r.Context()); err != nil {
		writeDomainError(w, err, "")
		return
	}
	view, err := h.Console.View(filter.Query{}, 1, 0)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ReloadEmployee handles POST /api/v1/employees/{id}/reload
func (h *Handlers) ReloadEmployee(w http.ResponseWriter, r *http.Request) {
	row, err := h.Console.ReloadEmployee(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "employee not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// EditEmployee handles PUT /api/v1/employees/{id}
func (h *Handlers) EditEmployee(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[employee.EditRequest](w, r)
	if !ok {
		return
	}
	row, err := h.Console.EditProfile(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "employee not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// StageToggle handles POST /api/v1/employees/{id}/systems/{system}/stage
func (h *Handlers) StageToggle(w http.ResponseWriter, r *http.Request) {
	sys, err := employee.ParseSystem(urlParam(r, "system"))
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	action, err := h.Console.Stage(r.Context(), urlParam(r, "id"), sys)
	if err != nil {
		writeDomainError(w, err, "employee or system account not found")
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// GetPending handles GET /api/v1/pending
func (h *Handlers) GetPending(w http.ResponseWriter, _ *http.Request) {
	action, ok := h.Console.Pending()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

type confirmResponse struct {
	service.ConfirmResult
	Error string `json:"error,omitempty"`
}

// ConfirmPending handles POST /api/v1/pending/confirm
//
// 200 applied, 502 rolled back, 409 when the cell is already updating or
// nothing is staged.
func (h *Handlers) ConfirmPending(w http.ResponseWriter, r *http.Request) {
	res, err := h.Console.Confirm(r.Context())
	switch {
	case errors.Is(err, tracker.ErrToggleTransport):
		writeJSON(w, http.StatusBadGateway, confirmResponse{ConfirmResult: res, Error: "could not update status"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, confirmResponse{ConfirmResult: res, Error: "employee or system account not found"})
	case err != nil:
		writeDomainError(w, err, "")
	case res.Outcome == tracker.OutcomeRejected:
		writeJSON(w, http.StatusConflict, confirmResponse{ConfirmResult: res, Error: "access cell is already updating"})
	default:
		writeJSON(w, http.StatusOK, confirmResponse{ConfirmResult: res})
	}
}

// CancelPending handles POST /api/v1/pending/cancel
func (h *Handlers) CancelPending(w http.ResponseWriter, r *http.Request) {
	h.Console.Cancel(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ListInFlight handles GET /api/v1/inflight
func (h *Handlers) ListInFlight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Console.InFlight())
}

// History handles GET /api/v1/history
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Console.History(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Filters handles GET /api/v1/filters
func (h *Handlers) Filters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Console.Filters())
}

type healthResponse struct {
	Status    string `json:"status"`
	Employees int    `json:"employees"`
	Breaker   string `json:"remote_breaker,omitempty"`
	Queue     string `json:"queue,omitempty"`
	WSClients int    `json:"ws_clients"`
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Employees: h.Console.Size()}
	if h.Breaker != nil {
		resp.Breaker = string(h.Breaker.State())
		if h.Breaker.State() == resilience.StateOpen {
			resp.Status = "degraded"
		}
	}
	if h.Queue != nil {
		resp.Queue = "connected"
		if !h.Queue.IsConnected() {
			resp.Queue = "disconnected"
			resp.Status = "degraded"
		}
	}
	if h.Hub != nil {
		resp.WSClients = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, resp)
}
