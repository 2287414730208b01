package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"gorm.io/gorm"
)

// wrapErr maps driver errors onto errorx sentinels
func wrapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, errorx.ErrNotFound)
	case isDuplicateKey(err):
		return fmt.Errorf("%s: %w", what, errorx.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}

func offset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	return (page - 1) * limit
}
