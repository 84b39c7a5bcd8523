package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isUniqueViolation detects a unique-index conflict from the drivers in use
// (pgx surfaces 23505 text, sqlite its own constraint message).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
