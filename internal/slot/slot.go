// Package slot converts bookable HH:MM slot lists into labelled, non-overlapping segments.
package slot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jwalitptl/booking-console/internal/model"
)

// DefaultStep is the minute granularity between adjacent slots.
const DefaultStep = 15

// MinutesPerDay bounds the minutes-since-midnight value of a valid slot.
const MinutesPerDay = 1440

// Segment title labels, chosen from the hour of a run's first slot: before 12 is morning,
// before 17 is afternoon, anything later is evening.
const (
	CategoryMorning   = "Morning"
	CategoryAfternoon = "Afternoon"
	CategoryEvening   = "Evening"
)

// Parse converts "HH:MM" to minutes since midnight.
func Parse(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid slot %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid slot %q: hour out of range", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid slot %q: minute out of range", s)
	}
	return h*60 + m, nil
}

// Minutes is Parse for slots already known to be well formed.
func Minutes(s string) int {
	m, _ := Parse(s)
	return m
}

// Format renders minutes since midnight as "HH:MM", wrapping past midnight.
func Format(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Validate checks every slot in the list.
func Validate(slots []string) error {
	for _, s := range slots {
		if _, err := Parse(s); err != nil {
			return err
		}
	}
	return nil
}

// Sort returns a copy of slots ordered by minutes since midnight.
func Sort(slots []string) []string {
	out := make([]string, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return Minutes(out[i]) < Minutes(out[j])
	})
	return out
}

// Contains reports whether want is one of slots.
func Contains(slots []string, want string) bool {
	for _, s := range slots {
		if s == want {
			return true
		}
	}
	return false
}

// Category labels a run by the hour of its first slot.
func Category(first string) string {
	hour := Minutes(first) / 60
	switch {
	case hour < 12:
		return CategoryMorning
	case hour < 17:
		return CategoryAfternoon
	default:
		return CategoryEvening
	}
}

// Segment partitions a sorted slot list into runs where consecutive slots are at most
// step minutes apart. Concatenating the returned slots reproduces the input.
//
// The title category is taken from the first slot of each run only, so a run that
// crosses noon keeps its morning label.
func Segment(slots []string, step int) []model.Segment {
	if step <= 0 {
		step = DefaultStep
	}
	segments := make([]model.Segment, 0)
	var run []string

	for i, t := range slots {
		run = append(run, t)
		if i+1 < len(slots) && Minutes(slots[i+1])-Minutes(t) <= step {
			continue
		}
		segments = append(segments, model.Segment{
			ID:        len(segments),
			Title:     fmt.Sprintf("%s (%s - %s)", Category(run[0]), run[0], run[len(run)-1]),
			Slots:     run,
			SlotCount: len(run),
		})
		run = nil
	}
	return segments
}

// EndTime is the slot plus the booked duration.
func EndTime(start string, durationMinutes int) string {
	return Format(Minutes(start) + durationMinutes)
}

// Range renders the "start - end" readout shown once a slot is chosen.
func Range(start string, durationMinutes int) string {
	return start + " - " + EndTime(start, durationMinutes)
}
