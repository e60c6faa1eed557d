package scan

import "github.com/google/uuid"

// NewTag returns a fresh correlation tag.
func NewTag() string {
	return uuid.New().String()
}
