// Package audit defines the access change audit log entry.
package audit

import "time"

// TimestampLayout is the ISO-8601 layout used for entry timestamps
// (millisecond precision, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry records one dispatched access toggle. The JSON shape is the one
// stored in the history slot and must stay stable.
type Entry struct {
	Timestamp    string `json:"timestamp"`
	UserLogin    string `json:"userLogin"`
	EmployeeName string `json:"employeeName"`
	System       string `json:"system"`
	OldStatus    bool   `json:"oldStatus"`
	NewStatus    bool   `json:"newStatus"`
}

// FormatTimestamp renders t the way entries store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the entry timestamp. Returns the zero time if it is malformed.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
