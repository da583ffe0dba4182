package validation

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used throughout the service,
// the Go spelling of yyyy-MM-dd.
const DateLayout = "2006-01-02"

// IsValidDate reports whether text parses as a date under layout.
// Blank text is invalid. An unusable layout makes the text invalid
// rather than raising an error.
func IsValidDate(text, layout string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	_, err := time.Parse(layout, text)
	return err == nil
}

// IsValidDateInRange reports whether text is a valid date under layout
// and falls within [min, max] inclusive.
func IsValidDateInRange(text, layout string, min, max time.Time) bool {
	if !IsValidDate(text, layout) {
		return false
	}
	d, err := time.Parse(layout, text)
	if err != nil {
		return false
	}
	return !d.Before(min) && !d.After(max)
}
