package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/service/availability"
	"github.com/jwalitptl/booking-console/internal/slot"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/metrics"
	pkgvalidator "github.com/jwalitptl/booking-console/pkg/validator"
)

type SubmitState string

const (
	StateReady      SubmitState = "ready"
	StateSubmitting SubmitState = "submitting"
	StateSuccess    SubmitState = "success"
	StateFailed     SubmitState = "failed"
)

// FailureMessage is shown when a failed submission carries no server message.
const FailureMessage = "failed to create appointment"

// Submitter is the external booking-creation operation.
type Submitter interface {
	CreateAppointment(ctx context.Context, tenant string, req model.CreateAppointmentRequest) (*model.Appointment, error)
}

// Publisher announces created bookings.
type Publisher interface {
	PublishBooking(ctx context.Context, event model.BookingEvent) error
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Options struct {
	Tenant    string
	SessionID string
	Location  *time.Location
	// PhoneRegion is the default region for numbers written without a country code.
	PhoneRegion string
	PreInfo     *model.ClientPreInfo
	Publisher   Publisher
	Now         func() time.Time
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	// OnTransition observes every submission state change.
	OnTransition func(from, to SubmitState)
}

// Form holds the booking contact fields and drives submission. Date, services and the
// chosen slot are read from the availability coordinator.
type Form struct {
	coord     *availability.Coordinator
	submitter Submitter
	validator *pkgvalidator.Validator
	opts      Options

	mu      sync.Mutex
	contact Contact
	locked  bool
	state   SubmitState
	lastErr error
	result  *model.Appointment
}

type offeredKey struct{}

func NewForm(coord *availability.Coordinator, submitter Submitter, opts Options) (*Form, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("console")
	}

	f := &Form{
		coord:     coord,
		submitter: submitter,
		validator: pkgvalidator.New(),
		opts:      opts,
		state:     StateReady,
	}
	if err := f.registerRules(); err != nil {
		return nil, err
	}

	if opts.PreInfo != nil {
		f.contact = Contact{Name: opts.PreInfo.Name, Email: opts.PreInfo.Email, Phone: opts.PreInfo.Phone}
		f.locked = true
	}
	return f, nil
}

func (f *Form) registerRules() error {
	if err := f.validator.RegisterRule("notpast", "must not be in the past", func(ctx context.Context, fl validator.FieldLevel) bool {
		date, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !model.DateOf(date).Before(f.today())
	}); err != nil {
		return err
	}
	return f.validator.RegisterRule("offered", "must be one of the available times", func(ctx context.Context, fl validator.FieldLevel) bool {
		offered, ok := ctx.Value(offeredKey{}).(func(string) bool)
		return ok && offered(fl.Field().String())
	})
}

func (f *Form) today() time.Time {
	return model.DateOf(f.opts.Now().In(f.opts.Location))
}

// SetContact updates the contact fields unless they were locked by client pre-info.
func (f *Form) SetContact(c Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return apperrors.NewState("contact details are locked for this client")
	}
	f.contact = Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
	return nil
}

func (f *Form) Contact() Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contact
}

func (f *Form) ContactLocked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// Draft assembles the current field values.
func (f *Form) Draft() model.BookingDraft {
	f.mu.Lock()
	c := f.contact
	f.mu.Unlock()
	return model.BookingDraft{
		ClientName:   c.Name,
		ClientEmail:  c.Email,
		ClientPhone:  c.Phone,
		SelectedDate: f.coord.Date(),
		SelectedSlot: f.coord.Chosen(),
		ServiceIDs:   f.coord.Services(),
	}
}

// Validate returns the failing fields of the current draft.
func (f *Form) Validate(ctx context.Context) []apperrors.FieldError {
	ctx = context.WithValue(ctx, offeredKey{}, f.coord.Offered)
	return f.validator.Validate(ctx, f.Draft())
}

func (f *Form) State() SubmitState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the error of the last failed submission.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Form) Result() *model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// CanSubmit is false while any field is invalid, availability is loading or a submission is running.
func (f *Form) CanSubmit(ctx context.Context) bool {
	if f.State() != StateReady || f.coord.Loading() {
		return false
	}
	return len(f.Validate(ctx)) == 0
}

// Instant combines the selected date and slot as wall-clock time in the tenant location
// and returns it in UTC.
func (f *Form) Instant() (time.Time, error) {
	return Combine(f.coord.Date(), f.coord.Chosen(), f.opts.Location)
}

// Combine converts a calendar date and HH:MM slot in loc to a UTC instant.
func Combine(date time.Time, s string, loc *time.Location) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, apperrors.NewState("no date selected")
	}
	minutes, err := slot.Parse(s)
	if err != nil {
		return time.Time{}, apperrors.NewState("no time selected")
	}
	local := time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, loc)
	return local.UTC(), nil
}

// Submit validates the draft and creates the appointment. Field errors are returned
// before any network call. A failed call leaves the form editable in the Ready state.
func (f *Form) Submit(ctx context.Context) (*model.Appointment, error) {
	f.mu.Lock()
	if f.state != StateReady {
		state := f.state
		f.mu.Unlock()
		return nil, apperrors.NewState(fmt.Sprintf("cannot submit while %s", state))
	}
	f.mu.Unlock()

	if f.coord.Loading() {
		f.opts.Metrics.BookingSubmissions.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewState("available times are still loading")
	}
	if fields := f.Validate(ctx); len(fields) > 0 {
		f.opts.Metrics.BookingSubmissions.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewValidation(fields)
	}

	draft := f.Draft()
	instant, err := Combine(draft.SelectedDate, draft.SelectedSlot, f.opts.Location)
	if err != nil {
		return nil, err
	}
	req := model.CreateAppointmentRequest{
		ClientName:         draft.ClientName,
		ClientEmail:        draft.ClientEmail,
		ClientPhone:        pkgvalidator.NormalizePhone(draft.ClientPhone, f.opts.PhoneRegion),
		AppointmentInstant: instant,
		ServiceIDs:         draft.ServiceIDs,
	}

	f.mu.Lock()
	if f.state != StateReady {
		f.mu.Unlock()
		return nil, apperrors.NewState("submission already in progress")
	}
	f.transitionLocked(StateSubmitting)
	f.lastErr = nil
	f.mu.Unlock()

	created, err := f.submitter.CreateAppointment(ctx, f.opts.Tenant, req)

	f.mu.Lock()
	if err != nil {
		f.lastErr = err
		f.transitionLocked(StateFailed)
		f.transitionLocked(StateReady)
		f.mu.Unlock()

		f.opts.Metrics.BookingSubmissions.WithLabelValues("failed").Inc()
		f.opts.Logger.Warn("booking submission failed",
			"tenant", f.opts.Tenant,
			"session_id", f.opts.SessionID,
			"error", err.Error(),
		)
		return nil, err
	}
	f.result = created
	f.transitionLocked(StateSuccess)
	f.mu.Unlock()

	f.opts.Metrics.BookingSubmissions.WithLabelValues("success").Inc()
	f.opts.Logger.Info("appointment booked",
		"tenant", f.opts.Tenant,
		"session_id", f.opts.SessionID,
		"appointment_id", created.ID,
	)
	f.publish(ctx, created, req)
	return created, nil
}

// ErrorMessage renders a submission error for display.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return apperrors.Message(err, FailureMessage)
}

func (f *Form) publish(ctx context.Context, created *model.Appointment, req model.CreateAppointmentRequest) {
	if f.opts.Publisher == nil {
		return
	}
	event := model.BookingEvent{
		Type:          model.EventAppointmentBooked,
		Tenant:        f.opts.Tenant,
		SessionID:     f.opts.SessionID,
		AppointmentID: created.ID,
		StartInstant:  req.AppointmentInstant,
		ServiceIDs:    req.ServiceIDs,
		OccurredAt:    f.opts.Now().UTC(),
	}
	if err := f.opts.Publisher.PublishBooking(ctx, event); err != nil {
		f.opts.Logger.Error(err, "failed to publish booking event", "appointment_id", created.ID)
	}
}

func (f *Form) transitionLocked(to SubmitState) {
	from := f.state
	f.state = to
	if f.opts.OnTransition != nil {
		f.opts.OnTransition(from, to)
	}
}
