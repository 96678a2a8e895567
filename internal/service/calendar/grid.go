// Package calendar lays out a month grid and buckets appointments by day.
package calendar

import (
	"sort"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
)

const DaysPerWeek = 7

// MoreServicesMarker follows the first service name on a full chip when more were booked.
const MoreServicesMarker = "..."

// Chip is an appointment summary inside a day cell.
type Chip struct {
	AppointmentID int    `json:"appointment_id"`
	Time          string `json:"time"`
	ClientName    string `json:"client_name"`
	Service       string `json:"service,omitempty"`
	Minimized     bool   `json:"minimized"`
}

// Cell is one grid position. Blank cells pad the first and last week.
type Cell struct {
	Blank bool   `json:"blank"`
	Day   int    `json:"day,omitempty"`
	Date  string `json:"date,omitempty"`
	Today bool   `json:"today,omitempty"`
	Chips []Chip `json:"chips,omitempty"`
}

type MonthView struct {
	Year    int                         `json:"year"`
	Month   time.Month                  `json:"month"`
	Title   string                      `json:"title"`
	Cells   []Cell                      `json:"cells"`
	Buckets map[int][]model.Appointment `json:"buckets"`
}

// Build renders the grid for year/month. Appointments are placed by their start in loc.
func Build(year int, month time.Month, appointments []model.Appointment, now time.Time, loc *time.Location) MonthView {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	leading := int(first.Weekday())

	buckets := Bucket(year, month, appointments, loc)

	today := now.In(loc)
	isCurrentMonth := today.Year() == year && today.Month() == month

	cells := make([]Cell, 0, leading+daysInMonth+DaysPerWeek)
	for i := 0; i < leading; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= daysInMonth; d++ {
		cells = append(cells, Cell{
			Day:   d,
			Date:  time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(model.DateLayout),
			Today: isCurrentMonth && today.Day() == d,
			Chips: chips(buckets[d], loc),
		})
	}
	if rem := len(cells) % DaysPerWeek; rem != 0 {
		for i := 0; i < DaysPerWeek-rem; i++ {
			cells = append(cells, Cell{Blank: true})
		}
	}

	return MonthView{
		Year:    year,
		Month:   month,
		Title:   first.Format("January 2006"),
		Cells:   cells,
		Buckets: buckets,
	}
}

// Bucket groups the appointments that start in year/month by day of month, each day
// sorted ascending by start. Appointments outside the month are dropped.
func Bucket(year int, month time.Month, appointments []model.Appointment, loc *time.Location) map[int][]model.Appointment {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[int][]model.Appointment)
	for _, a := range appointments {
		start := a.StartInstant.In(loc)
		if start.Year() != year || start.Month() != month {
			continue
		}
		buckets[start.Day()] = append(buckets[start.Day()], a)
	}
	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].StartInstant.Before(bucket[j].StartInstant)
		})
	}
	return buckets
}

func chips(bucket []model.Appointment, loc *time.Location) []Chip {
	if len(bucket) == 0 {
		return nil
	}
	minimized := len(bucket) > 1
	out := make([]Chip, 0, len(bucket))
	for _, a := range bucket {
		chip := Chip{
			AppointmentID: a.ID,
			Time:          a.StartInstant.In(loc).Format("15:04"),
			ClientName:    a.ClientName,
			Minimized:     minimized,
		}
		if !minimized && len(a.Services) > 0 {
			chip.Service = a.Services[0].Name
			if len(a.Services) > 1 {
				chip.Service += MoreServicesMarker
			}
		}
		out = append(out, chip)
	}
	return out
}

// Prev returns the month before year/month.
func Prev(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return t.Year(), t.Month()
}

// Next returns the month after year/month.
func Next(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return t.Year(), t.Month()
}

// Range is the half-open instant range covered by year/month in loc.
func Range(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}
