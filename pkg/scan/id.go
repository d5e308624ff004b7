package scan

import "github.com/google/uuid"

// NewRunID generates a unique identifier for a scan run.
func NewRunID() string {
	return uuid.NewString()
}
