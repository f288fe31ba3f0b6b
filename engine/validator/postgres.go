package validator

import (
	"errors"
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	pg_parser "github.com/pganalyze/pg_query_go/v5/parser"
)

// ValidatePostgreSQL validates PostgreSQL SQL syntax
func ValidatePostgreSQL(query string) error {
	if _, err := pg_query.Parse(query); err != nil {
		return fmt.Errorf("invalid PostgreSQL: %w", err)
	}
	return nil
}

// ValidatePostgreSQLWithDetails returns detailed validation result
func ValidatePostgreSQLWithDetails(query string) *ValidationResult {
	_, err := pg_query.Parse(query)
	if err == nil {
		return &ValidationResult{Valid: true}
	}
	result := &ValidationResult{Error: err.Error()}
	var perr *pg_parser.Error
	if errors.As(err, &perr) {
		result.Error = perr.Message
		result.Position = perr.Cursorpos
	}
	return result
}
