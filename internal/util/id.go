package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a time-ordered identifier (UUIDv7 without dashes), so media
// ids and request ids sort by creation time.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}
