// Package validator syntax-checks translated queries before execution.
package validator

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDatabase is returned for databases without a validator.
var ErrUnsupportedDatabase = errors.New("no validator for database")

// ValidationResult contains detailed validation info
type ValidationResult struct {
	Valid    bool
	Error    string
	Position int // 1-based character position of the error, 0 when unknown
}

// Supports reports whether SQL written for dbType can be validated.
func Supports(dbType string) bool {
	switch dbType {
	case "PostgreSQL", "MySQL":
		return true
	}
	return false
}

// ValidateSQL validates SQL based on database type
func ValidateSQL(query string, dbType string) error {
	switch dbType {
	case "PostgreSQL":
		return ValidatePostgreSQL(query)
	case "MySQL":
		return ValidateMySQL(query)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}

// ValidateSQLWithDetails returns detailed validation result
func ValidateSQLWithDetails(query string, dbType string) (*ValidationResult, error) {
	switch dbType {
	case "PostgreSQL":
		return ValidatePostgreSQLWithDetails(query), nil
	case "MySQL":
		return ValidateMySQLWithDetails(query), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}
