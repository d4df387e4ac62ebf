package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber generates a human-facing order number. Uniqueness is
// enforced by the database constraint; callers retry on conflict.
func NewOrderNumber() string {
	id := uuid.New().String()

	return fmt.Sprintf("ORD-%s", strings.ToUpper(id[:8]))
}

// GenerateID generates a prefixed ID for events
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
