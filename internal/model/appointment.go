package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
	AppointmentStatusDone      AppointmentStatus = "done"
)

// Appointment is supplied by the appointment feed and never mutated here.
type Appointment struct {
	ID           int               `json:"id" db:"id"`
	ClientName   string            `json:"client_name" db:"client_name"`
	ClientEmail  string            `json:"client_email" db:"client_email"`
	StartInstant time.Time         `json:"appointment_time" db:"appointment_time"`
	Status       AppointmentStatus `json:"status" db:"status"`
	Services     []Service         `json:"services"`
}

// AppointmentQuery narrows the appointment feed.
type AppointmentQuery struct {
	Tenant string
	From   time.Time
	To     time.Time
	Limit  int
}
