package model

import "time"

// AvailabilityQuery is sent to the external availability service.
type AvailabilityQuery struct {
	Date       time.Time
	ServiceIDs []int
	Tenant     string
}

// AvailabilityResult is the availability service's answer for one date.
type AvailabilityResult struct {
	AvailableSlots  []string `json:"available_slots"`
	DateChecked     string   `json:"date_checked"`
	TimezoneQueried string   `json:"timezone_queried"`
}

// DateLayout is the wire form of a calendar date.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date, dropping the clock and location.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
