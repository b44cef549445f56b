package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/adapter/ws"
	"github.com/Strob0t/AccessDesk/internal/directory"
	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/audit"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/filter"
	"github.com/Strob0t/AccessDesk/internal/gate"
	"github.com/Strob0t/AccessDesk/internal/paginate"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
	"github.com/Strob0t/AccessDesk/internal/port/broadcast"
	"github.com/Strob0t/AccessDesk/internal/port/messagequeue"
	"github.com/Strob0t/AccessDesk/internal/port/notifier"
	"github.com/Strob0t/AccessDesk/internal/tracker"
)

var (
	// ErrLoadFailure is returned when the directory could not be loaded.
	ErrLoadFailure = errors.New("directory load failed")
	// ErrReloadInProgress is returned when the employee is already reloading.
	ErrReloadInProgress = errors.New("employee reload already in progress")
)

// Notification titles shown to the operator.
const (
	titleLoaded       = "Data loaded successfully!"
	titleLoadFailed   = "Error loading employee data"
	titleToggleFailed = "Error updating status. Try again."
	titleReloaded     = "Employee data refreshed!"
	titleEdited       = "Employee updated successfully!"
)

// ConsoleOptions configures a ConsoleService.
type ConsoleOptions struct {
	UserLogin     string
	PageSize      int
	ReloadDelay   time.Duration
	ToggleTimeout time.Duration
	Deriver       employee.Deriver
}

// Cell is one system badge in a table row.
type Cell struct {
	System     employee.System     `json:"system"`
	Status     bool                `json:"status"`
	OriginalID employee.OriginalID `json:"originalId"`
	Updating   bool                `json:"updating"`
}

// Row is one employee as rendered in the table.
type Row struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Login       string    `json:"login"`
	Role        string    `json:"role"`
	Department  string    `json:"department"`
	Systems     []Cell    `json:"systems"`
	Reloading   bool      `json:"reloading"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// View is one page of the filtered table.
type View struct {
	Items      []Row           `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
	Prev       int             `json:"prev"`
	Next       int             `json:"next"`
	Links      []paginate.Link `json:"links"`
	Empty      bool            `json:"empty"`
}

// FilterOptions lists the choices offered by each filter control.
type FilterOptions struct {
	Systems     []employee.System `json:"systems"`
	Statuses    []string          `json:"statuses"`
	Departments []string          `json:"departments"`
	Roles       []string          `json:"roles"`
}

// ConfirmResult reports how a confirmed action settled.
type ConfirmResult struct {
	Outcome tracker.Outcome        `json:"outcome"`
	Action  gate.PendingAction     `json:"action"`
	Entry   *audit.Entry           `json:"entry,omitempty"`
	Message string                 `json:"message,omitempty"`
	Remote  accessapi.UpdateResult `json:"-"`
}

// ConsoleService orchestrates the employee access console: loading the
// directory, the filtered table, staged toggles and the audit trail.
type ConsoleService struct {
	remote  accessapi.Client
	store   *directory.Store
	tracker *tracker.Tracker
	gate    *gate.Gate
	audit   *AuditRecorder
	notify  *NotificationService
	filter  *filter.Engine
	deriver employee.Deriver

	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	metrics *cfotel.Metrics

	userLogin   string
	pageSize    int
	reloadDelay time.Duration

	reloadMu  sync.Mutex
	reloading map[string]struct{}

	unsubscribe func()
}

// NewConsoleService wires the console around store. Remote calls go
// through remote; toggles are recorded in rec.
func NewConsoleService(remote accessapi.Client, store *directory.Store, rec *AuditRecorder, notify *NotificationService, opts ConsoleOptions) *ConsoleService {
	if opts.Deriver == nil {
		opts.Deriver = employee.NameHashDeriver{}
	}
	if opts.PageSize < 1 {
		opts.PageSize = paginate.DefaultPageSize
	}
	if notify == nil {
		notify = NewNotificationService()
	}
	return &ConsoleService{
		remote:      remote,
		store:       store,
		tracker:     tracker.New(store, remote, opts.ToggleTimeout),
		gate:        gate.New(),
		audit:       rec,
		notify:      notify,
		filter:      filter.New(opts.Deriver),
		deriver:     opts.Deriver,
		userLogin:   opts.UserLogin,
		pageSize:    opts.PageSize,
		reloadDelay: opts.ReloadDelay,
		reloading:   make(map[string]struct{}),
	}
}

// SetBroadcaster pushes store changes and gate transitions to hub.
func (s *ConsoleService) SetBroadcaster(hub broadcast.Broadcaster) {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.hub = hub
	if hub != nil {
		s.unsubscribe = s.store.Subscribe(s.onChange)
	}
}

// SetQueue publishes settled toggles and loads to q. Nil disables publishing.
func (s *ConsoleService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetMetrics attaches metric instruments to the service and its tracker.
func (s *ConsoleService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
	s.tracker.SetMetrics(m)
}

// Close detaches the store subscription.
func (s *ConsoleService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Load fetches the directory from the remote and replaces the store.
// On failure the store keeps its previous contents.
func (s *ConsoleService) Load(ctx context.Context) error {
	ctx, span := cfotel.StartLoadSpan(ctx, "remote")
	defer span.End()

	list, err := s.remote.FetchEmployees(ctx)
	if err == nil {
		err = s.store.Load(list)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.countLoad(ctx, "error")
		slog.ErrorContext(ctx, "directory load failed", "error", err)
		s.notify.Notify(ctx, notifier.Notification{
			Title:   titleLoadFailed,
			Message: err.Error(),
			Level:   notifier.LevelError,
			Source:  "directory.load_failed",
		})
		s.publish(ctx, messagequeue.SubjectDirectoryLoaded, messagequeue.DirectoryLoadedPayload{
			Count:     s.store.Len(),
			Source:    "remote",
			Error:     err.Error(),
			Timestamp: audit.FormatTimestamp(time.Now()),
		})
		return fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}

	s.countLoad(ctx, "ok")
	slog.InfoContext(ctx, "directory loaded", "count", len(list))
	s.notify.Notify(ctx, notifier.Notification{
		Title:   titleLoaded,
		Message: fmt.Sprintf("%d employees loaded", len(list)),
		Level:   notifier.LevelSuccess,
		Source:  "directory.loaded",
		Fields:  map[string]string{notifier.FieldCount: strconv.Itoa(len(list))},
	})
	s.publish(ctx, messagequeue.SubjectDirectoryLoaded, messagequeue.DirectoryLoadedPayload{
		Count:     len(list),
		Source:    "remote",
		Timestamp: audit.FormatTimestamp(time.Now()),
	})
	return nil
}

// View filters the directory and returns the requested page. Page numbers
// past the end yield an empty page; callers reset to page 1 whenever the
// query changes. Page sizes above paginate.MaxPageSize are capped. Prev and
// Next are the targets of the previous/next controls, clamped to the range.
func (s *ConsoleService) View(q filter.Query, page, pageSize int) (View, error) {
	if err := q.Validate(); err != nil {
		return View{}, err
	}
	if pageSize < 1 {
		pageSize = s.pageSize
	}
	pageSize = min(pageSize, paginate.MaxPageSize)

	matched := s.filter.Apply(s.store.List(), q)
	p := paginate.Paginate(matched, pageSize, page)

	rows := make([]Row, 0, len(p.Items))
	for i := range p.Items {
		rows = append(rows, s.row(&p.Items[i]))
	}
	return View{
		Items:      rows,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		Prev:       paginate.Clamp(p.Page-1, p.TotalPages),
		Next:       paginate.Clamp(p.Page+1, p.TotalPages),
		Links:      paginate.Links(p.Page, p.TotalPages),
		Empty:      len(rows) == 0,
	}, nil
}

// Employee returns one row by id.
func (s *ConsoleService) Employee(id string) (Row, error) {
	e, err := s.store.Get(id)
	if err != nil {
		return Row{}, err
	}
	return s.row(&e), nil
}

func (s *ConsoleService) row(e *employee.Employee) Row {
	cells := make([]Cell, 0, len(e.Systems))
	for _, a := range e.Systems {
		cells = append(cells, Cell{
			System:     a.System,
			Status:     a.Status,
			OriginalID: a.OriginalID,
			Updating:   s.tracker.InFlight(e.ID, a.System),
		})
	}
	return Row{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Login:       employee.Login(e.Email),
		Role:        s.deriver.Role(e.Name),
		Department:  s.deriver.Department(e.Name),
		Systems:     cells,
		Reloading:   s.isReloading(e.ID),
		CreatedAt:   e.CreatedAt,
		LastUpdated: e.LastUpdated,
	}
}

// Filters returns the option lists for the filter controls.
func (s *ConsoleService) Filters() FilterOptions {
	systems := make([]employee.System, len(employee.Systems))
	copy(systems, employee.Systems)
	return FilterOptions{
		Systems:     systems,
		Statuses:    []string{filter.All, filter.StatusActive, filter.StatusInactive},
		Departments: employee.Departments(),
		Roles:       employee.Roles(),
	}
}

// Stage records a toggle of the employee's system for confirmation. The new
// status is the inverse of the current one.
func (s *ConsoleService) Stage(ctx context.Context, employeeID string, sys employee.System) (gate.PendingAction, error) {
	e, err := s.store.Get(employeeID)
	if err != nil {
		return gate.PendingAction{}, err
	}
	access, ok := e.Access(sys)
	if !ok {
		return gate.PendingAction{}, fmt.Errorf("employee %s has no %s account: %w", employeeID, sys, domain.ErrNotFound)
	}

	action := gate.PendingAction{Employee: e, Access: access, NewStatus: !access.Status}
	s.gate.Stage(action)
	s.broadcast(ctx, ws.EventPendingChanged, ws.PendingChangedEvent{
		State:      string(gate.StateStaged),
		EmployeeID: employeeID,
		System:     string(sys),
		NewStatus:  action.NewStatus,
	})
	return action, nil
}

// Pending returns the staged action, if any.
func (s *ConsoleService) Pending() (gate.PendingAction, bool) {
	return s.gate.Pending()
}

// Cancel discards the staged action.
func (s *ConsoleService) Cancel(ctx context.Context) {
	s.gate.Cancel()
	s.broadcast(ctx, ws.EventPendingChanged, ws.PendingChangedEvent{State: string(gate.StateIdle)})
}

// Confirm commits the staged action through the tracker. Dispatched
// toggles, applied or rolled back, are appended to the audit log with the
// status captured at staging time as OldStatus. A rolled-back toggle
// returns an error wrapping tracker.ErrToggleTransport alongside the result.
func (s *ConsoleService) Confirm(ctx context.Context) (ConfirmResult, error) {
	var result ConfirmResult
	err := s.gate.Confirm(ctx, func(ctx context.Context, a gate.PendingAction) error {
		result.Action = a
		res, err := s.tracker.RequestToggle(ctx, a.Employee.ID, a.Access.System, a.NewStatus)
		result.Outcome = res.Outcome
		result.Remote = res.Remote
		result.Message = res.Remote.Message

		if res.Outcome.Dispatched() {
			entry := audit.Entry{
				UserLogin:    s.userLogin,
				EmployeeName: a.Employee.Name,
				System:       string(a.Access.System),
				OldStatus:    a.Access.Status,
				NewStatus:    a.NewStatus,
			}
			s.audit.Append(ctx, entry)
			result.Entry = &entry
			s.publish(ctx, messagequeue.SubjectStatusChanged, messagequeue.StatusChangedPayload{
				Timestamp:    audit.FormatTimestamp(time.Now()),
				UserLogin:    entry.UserLogin,
				EmployeeID:   a.Employee.ID,
				EmployeeName: entry.EmployeeName,
				System:       entry.System,
				OldStatus:    entry.OldStatus,
				NewStatus:    entry.NewStatus,
				Outcome:      string(res.Outcome),
			})
		}

		switch res.Outcome {
		case tracker.OutcomeApplied:
			msg := res.Remote.Message
			if msg == "" {
				msg = fmt.Sprintf("Status for system %s updated successfully", a.Access.System)
			}
			s.notify.Notify(ctx, notifier.Notification{
				Title:   msg,
				Message: fmt.Sprintf("%s: %s is now %s", a.Employee.Name, a.Access.System, statusWord(a.NewStatus)),
				Level:   notifier.LevelSuccess,
				Source:  "access.applied",
				Fields:  s.accessFields(a),
			})
		case tracker.OutcomeRolledBack:
			s.notify.Notify(ctx, notifier.Notification{
				Title:   titleToggleFailed,
				Message: fmt.Sprintf("%s: %s stays %s", a.Employee.Name, a.Access.System, statusWord(res.Prior)),
				Level:   notifier.LevelError,
				Source:  "access.rolled_back",
				Fields:  s.accessFields(a),
			})
		}
		return err
	})

	s.broadcast(ctx, ws.EventPendingChanged, ws.PendingChangedEvent{State: string(s.gate.State())})
	return result, err
}

// EditProfile replaces the employee's name and email after validation.
func (s *ConsoleService) EditProfile(ctx context.Context, id string, req employee.EditRequest) (Row, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return Row{}, err
	}
	if err := s.store.EditProfile(id, req.Name, req.Email); err != nil {
		return Row{}, err
	}

	s.notify.Notify(ctx, notifier.Notification{
		Title:   titleEdited,
		Message: req.Name,
		Level:   notifier.LevelSuccess,
		Source:  "employee.edited",
		Fields: map[string]string{
			notifier.FieldEmployee: req.Name,
			notifier.FieldOperator: s.userLogin,
		},
	})
	s.publish(ctx, messagequeue.SubjectProfileEdited, messagequeue.ProfileEditedPayload{
		EmployeeID: id,
		Name:       req.Name,
		Email:      req.Email,
		UserLogin:  s.userLogin,
	})
	return s.Employee(id)
}

// ReloadEmployee refreshes one employee's row after the configured delay.
// Only one reload per employee runs at a time.
func (s *ConsoleService) ReloadEmployee(ctx context.Context, id string) (Row, error) {
	if _, err := s.store.Get(id); err != nil {
		return Row{}, err
	}

	s.reloadMu.Lock()
	if _, busy := s.reloading[id]; busy {
		s.reloadMu.Unlock()
		return Row{}, fmt.Errorf("reload %s: %w", id, ErrReloadInProgress)
	}
	s.reloading[id] = struct{}{}
	s.reloadMu.Unlock()

	defer func() {
		s.reloadMu.Lock()
		delete(s.reloading, id)
		s.reloadMu.Unlock()
	}()

	if s.reloadDelay > 0 {
		t := time.NewTimer(s.reloadDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return Row{}, fmt.Errorf("reload %s: %w", id, ctx.Err())
		}
	}

	row, err := s.Employee(id)
	if err != nil {
		return Row{}, err
	}
	s.notify.Notify(ctx, notifier.Notification{
		Title:   titleReloaded,
		Message: row.Name,
		Level:   notifier.LevelSuccess,
		Source:  "employee.reloaded",
	})
	return row, nil
}

func (s *ConsoleService) isReloading(id string) bool {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	_, ok := s.reloading[id]
	return ok
}

// History returns the audit log, newest first.
func (s *ConsoleService) History(ctx context.Context) ([]audit.Entry, error) {
	return s.audit.ReadAll(ctx)
}

// Size returns the number of loaded employees.
func (s *ConsoleService) Size() int {
	return s.store.Len()
}

// InFlight returns the cells with an unsettled toggle.
func (s *ConsoleService) InFlight() []employee.UpdateKey {
	return s.tracker.Pending()
}

func (s *ConsoleService) onChange(c directory.Change) {
	ctx := context.Background()
	switch c.Kind {
	case directory.ChangeLoaded:
		s.broadcast(ctx, ws.EventDirectoryLoaded, ws.DirectoryLoadedEvent{Count: s.store.Len()})
	case directory.ChangeStatus, directory.ChangeRestored:
		if c.Status == nil {
			return
		}
		s.broadcast(ctx, ws.EventCellStatus, ws.CellStatusEvent{
			EmployeeID: c.EmployeeID,
			System:     string(c.System),
			Status:     *c.Status,
			InFlight:   c.Kind == directory.ChangeStatus,
			RolledBack: c.Kind == directory.ChangeRestored,
		})
	case directory.ChangeProfile:
		e, err := s.store.Get(c.EmployeeID)
		if err != nil {
			return
		}
		s.broadcast(ctx, ws.EventEmployeeUpdated, ws.EmployeeUpdatedEvent{
			EmployeeID: e.ID,
			Name:       e.Name,
			Email:      e.Email,
		})
	}
}

func (s *ConsoleService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

// publish sends payload to the queue. Failures are logged only.
func (s *ConsoleService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "queue publish failed", "subject", subject, "error", err)
	}
}

func (s *ConsoleService) countLoad(ctx context.Context, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.DirectoryLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// accessFields describes the access change a staged action requested.
func (s *ConsoleService) accessFields(a gate.PendingAction) map[string]string {
	return map[string]string{
		notifier.FieldEmployee:  a.Employee.Name,
		notifier.FieldSystem:    string(a.Access.System),
		notifier.FieldOldStatus: statusWord(a.Access.Status),
		notifier.FieldNewStatus: statusWord(a.NewStatus),
		notifier.FieldOperator:  s.userLogin,
	}
}

func statusWord(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
