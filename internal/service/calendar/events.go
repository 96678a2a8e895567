package calendar

import (
	"fmt"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// Event is either DayClicked or AppointmentClicked, never both for one click.
type Event interface {
	Name() string
}

// DayClicked opens a booking flow pre-filled with Date.
type DayClicked struct {
	Date time.Time `json:"date"`
}

// AppointmentClicked opens the detail flow for Appointment.
type AppointmentClicked struct {
	Appointment model.Appointment `json:"appointment"`
}

func (DayClicked) Name() string         { return "day_clicked" }
func (AppointmentClicked) Name() string { return "appointment_clicked" }

// Click is a pointer interaction on a day cell. AppointmentID is set when the pointer
// was over one of the cell's chips.
type Click struct {
	Day           int  `json:"day" binding:"required,min=1,max=31"`
	AppointmentID *int `json:"appointment_id,omitempty"`
}

// Dispatch resolves a click to exactly one event. The innermost target wins: a click on a
// chip yields AppointmentClicked and never DayClicked.
func (v MonthView) Dispatch(c Click) (Event, error) {
	bucket, ok := v.day(c.Day)
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("day %d is not in %s", c.Day, v.Title), nil)
	}

	if c.AppointmentID != nil {
		for _, a := range bucket {
			if a.ID == *c.AppointmentID {
				return AppointmentClicked{Appointment: a}, nil
			}
		}
		return nil, apperrors.NewNotFound(fmt.Sprintf("appointment %d on day %d", *c.AppointmentID, c.Day), nil)
	}

	return DayClicked{Date: time.Date(v.Year, v.Month, c.Day, 0, 0, 0, 0, time.UTC)}, nil
}

func (v MonthView) day(d int) ([]model.Appointment, bool) {
	if d < 1 {
		return nil, false
	}
	last := time.Date(v.Year, v.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if d > last {
		return nil, false
	}
	return v.Buckets[d], true
}
