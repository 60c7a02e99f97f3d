package utils

import (
	"fmt"
	"time"
)

// ValidatePriority checks an RFC 5545 PRIORITY value: 0 is undefined, 1 the
// highest and 9 the lowest priority.
func ValidatePriority(priority int) error {
	if priority < 0 || priority > 9 {
		return fmt.Errorf("priority %d out of range 0-9 (0=undefined, 1=highest, 9=lowest)", priority)
	}
	return nil
}

// ParseDateFlag parses a YYYY-MM-DD date argument in the local timezone.
// The empty string means "no date" and parses to nil.
func ParseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}
