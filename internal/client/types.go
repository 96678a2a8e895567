package client

import (
	"strings"
	"time"

	"github.com/jwalitptl/booking-console/internal/model"
)

type serviceDTO struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type clientDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

type appointmentDTO struct {
	ID              int          `json:"id"`
	AppointmentTime time.Time    `json:"appointment_time"`
	Status          string       `json:"status"`
	Client          *clientDTO   `json:"client"`
	Services        []serviceDTO `json:"services"`
}

func (s serviceDTO) toModel() model.Service {
	out := model.Service{
		ID:              s.ID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
	}
	if s.Description != nil {
		out.Description = *s.Description
	}
	return out
}

func (a appointmentDTO) toModel() model.Appointment {
	out := model.Appointment{
		ID:           a.ID,
		StartInstant: a.AppointmentTime.UTC(),
		Status:       model.AppointmentStatus(strings.ToLower(a.Status)),
		Services:     make([]model.Service, 0, len(a.Services)),
	}
	if a.Client != nil {
		out.ClientName = strings.TrimSpace(deref(a.Client.FirstName) + " " + deref(a.Client.LastName))
		out.ClientEmail = deref(a.Client.Email)
	}
	for _, s := range a.Services {
		out.Services = append(out.Services, s.toModel())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
