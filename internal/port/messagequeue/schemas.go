package messagequeue

// StatusChangedPayload is the schema for access.status.changed messages.
type StatusChangedPayload struct {
	Timestamp    string `json:"timestamp"`
	UserLogin    string `json:"userLogin"`
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	System       string `json:"system"`
	OldStatus    bool   `json:"oldStatus"`
	NewStatus    bool   `json:"newStatus"`
	Outcome      string `json:"outcome"` // "applied" | "rolled_back"
}

// DirectoryLoadedPayload is the schema for access.directory.loaded messages.
type DirectoryLoadedPayload struct {
	Count     int    `json:"count"`
	Source    string `json:"source"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ProfileEditedPayload is the schema for access.profile.edited messages.
type ProfileEditedPayload struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	UserLogin  string `json:"userLogin"`
}
