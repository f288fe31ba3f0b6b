package validator

import (
	"fmt"
	"strings"
)

// ValidateRedis validates a SCAN key pattern
func ValidateRedis(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty Redis key pattern")
	}
	if strings.ContainsAny(pattern, " \t\r\n") {
		return fmt.Errorf("Redis key pattern %q contains whitespace", pattern)
	}
	return nil
}
