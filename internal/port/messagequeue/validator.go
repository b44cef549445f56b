package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch subject {
	case SubjectStatusChanged:
		target = &StatusChangedPayload{}
	case SubjectDirectoryLoaded:
		target = &DirectoryLoadedPayload{}
	case SubjectProfileEdited:
		target = &ProfileEditedPayload{}
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if p, ok := target.(*StatusChangedPayload); ok && (p.EmployeeID == "" || p.System == "") {
		return fmt.Errorf("schema validation failed for %s: employeeId and system are required", subject)
	}
	return nil
}
