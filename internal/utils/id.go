package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random identifier for an upload.
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether s looks like an identifier from GenerateID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
