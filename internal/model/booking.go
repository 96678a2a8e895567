package model

import "time"

// BookingDraft is the booking form's field state.
type BookingDraft struct {
	ClientName   string    `json:"client_name" validate:"required,min=2"`
	ClientEmail  string    `json:"client_email" validate:"required,email"`
	ClientPhone  string    `json:"client_phone,omitempty" validate:"omitempty,phone"`
	SelectedDate time.Time `json:"selected_date" validate:"required,notpast"`
	SelectedSlot string    `json:"selected_slot" validate:"required,offered"`
	ServiceIDs   []int     `json:"service_ids" validate:"required,min=1"`
}

// ClientPreInfo pre-fills and locks the contact fields for a known client.
type ClientPreInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CreateAppointmentRequest is the booking-creation payload.
type CreateAppointmentRequest struct {
	ClientName         string    `json:"client_name"`
	ClientEmail        string    `json:"client_email"`
	ClientPhone        string    `json:"client_phone,omitempty"`
	AppointmentInstant time.Time `json:"appointment_time"`
	ServiceIDs         []int     `json:"service_ids"`
}

// BookingEvent is published after a booking was created.
type BookingEvent struct {
	Type          string    `json:"type"`
	Tenant        string    `json:"tenant"`
	SessionID     string    `json:"session_id"`
	AppointmentID int       `json:"appointment_id"`
	StartInstant  time.Time `json:"appointment_time"`
	ServiceIDs    []int     `json:"service_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const EventAppointmentBooked = "appointment.booked"
