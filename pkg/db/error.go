package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports a unique constraint violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key value violates unique constraint"), // postgres 23505
		strings.Contains(msg, "Error 1062"),               // mysql
		strings.Contains(msg, "UNIQUE constraint failed"): // sqlite 2067
		return true
	default:
		return false
	}
}
