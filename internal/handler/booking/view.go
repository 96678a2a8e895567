package booking

import (
	"context"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/service/availability"
	bookingsvc "github.com/jwalitptl/booking-console/internal/service/booking"
	"github.com/jwalitptl/booking-console/internal/session"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// View is the rendered state of a booking session.
type View struct {
	ID     string `json:"id"`
	Tenant string `json:"tenant"`

	State        availability.Kind   `json:"state"`
	Date         string              `json:"date,omitempty"`
	ServiceIDs   []int               `json:"service_ids"`
	NeedsService bool                `json:"needs_service"`
	Slots        []string            `json:"slots"`
	Segments     []model.Segment     `json:"segments"`
	Message      string              `json:"message,omitempty"`
	ErrorCode    apperrors.ErrorCode `json:"error_code,omitempty"`

	ChosenSlot    string `json:"chosen_slot,omitempty"`
	TotalDuration int    `json:"total_duration"`
	Readout       string `json:"readout,omitempty"`

	Contact       bookingsvc.Contact     `json:"contact"`
	ContactLocked bool                   `json:"contact_locked"`
	FieldErrors   []apperrors.FieldError `json:"field_errors,omitempty"`
	CanSubmit     bool                   `json:"can_submit"`
	Submission    bookingsvc.SubmitState `json:"submission"`
	SubmitError   string                 `json:"submit_error,omitempty"`
	Appointment   *model.Appointment     `json:"appointment,omitempty"`
}

func NewView(ctx context.Context, s *session.Session) View {
	coord := s.Coordinator
	state := coord.State()

	v := View{
		ID:            s.ID,
		Tenant:        s.Tenant,
		State:         state.Kind(),
		ServiceIDs:    coord.Services(),
		NeedsService:  coord.NeedsService(),
		Slots:         []string{},
		Segments:      coord.Segments(),
		ChosenSlot:    coord.Chosen(),
		TotalDuration: coord.TotalDuration(),
		Readout:       coord.Readout(),
		Contact:       s.Form.Contact(),
		ContactLocked: s.Form.ContactLocked(),
		FieldErrors:   s.Form.Validate(ctx),
		CanSubmit:     s.Form.CanSubmit(ctx),
		Submission:    s.Form.State(),
		SubmitError:   bookingsvc.ErrorMessage(s.Form.Err()),
		Appointment:   s.Form.Result(),
	}
	if v.ServiceIDs == nil {
		v.ServiceIDs = []int{}
	}
	if date := coord.Date(); !date.IsZero() {
		v.Date = date.Format(model.DateLayout)
	}

	switch st := state.(type) {
	case availability.Loaded:
		v.Slots = st.Slots
		v.Message = st.Message
	case availability.Failed:
		v.Message = st.Message
		v.ErrorCode = st.Code
	}
	return v
}
