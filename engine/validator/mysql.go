package validator

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/xwb1989/sqlparser"
)

var mysqlErrorPosition = regexp.MustCompile(`at position (\d+)`)

// ValidateMySQL validates MySQL SQL syntax
func ValidateMySQL(query string) error {
	if _, err := sqlparser.Parse(query); err != nil {
		return fmt.Errorf("invalid MySQL: %w", err)
	}
	return nil
}

// ValidateMySQLWithDetails returns detailed validation result
func ValidateMySQLWithDetails(query string) *ValidationResult {
	_, err := sqlparser.Parse(query)
	if err == nil {
		return &ValidationResult{Valid: true}
	}
	result := &ValidationResult{Error: err.Error()}
	if m := mysqlErrorPosition.FindStringSubmatch(err.Error()); m != nil {
		result.Position, _ = strconv.Atoi(m[1])
	}
	return result
}
