package ws

// Event type constants for WebSocket messages.
const (
	EventCellStatus      = "cell.status"
	EventEmployeeUpdated = "employee.updated"
	EventDirectoryLoaded = "directory.loaded"
	EventPendingChanged  = "pending.changed"
	EventToast           = "toast"
)

// CellStatusEvent is broadcast when one employee/system cell changes,
// optimistically or on rollback.
type CellStatusEvent struct {
	EmployeeID string `json:"employee_id"`
	System     string `json:"system"`
	Status     bool   `json:"status"`
	InFlight   bool   `json:"in_flight"`
	RolledBack bool   `json:"rolled_back,omitempty"`
}

// EmployeeUpdatedEvent is broadcast after a profile edit or single reload.
type EmployeeUpdatedEvent struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// DirectoryLoadedEvent is broadcast after a full directory load.
type DirectoryLoadedEvent struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// PendingChangedEvent is broadcast when the confirmation gate changes state.
type PendingChangedEvent struct {
	State      string `json:"state"`
	EmployeeID string `json:"employee_id,omitempty"`
	System     string `json:"system,omitempty"`
	NewStatus  bool   `json:"new_status,omitempty"`
}
