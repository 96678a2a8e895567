package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-console/internal/handler"
	"github.com/jwalitptl/booking-console/internal/middleware"
	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/repository"
	"github.com/jwalitptl/booking-console/internal/service/calendar"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/httputil"
)

type MonthRef struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

type MonthResponse struct {
	View calendar.MonthView `json:"view"`
	Prev MonthRef           `json:"prev"`
	Next MonthRef           `json:"next"`
}

type ClickRequest struct {
	Year  int        `json:"year" binding:"required"`
	Month time.Month `json:"month" binding:"required,min=1,max=12"`
	calendar.Click
}

type ClickResponse struct {
	Event       string             `json:"event"`
	Date        string             `json:"date,omitempty"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
}

type Handler struct {
	feed     repository.AppointmentFeed
	settings repository.TenantSettings
	location *time.Location
	now      func() time.Time
}

// NewHandler builds the calendar routes. settings may be nil, in which case every tenant
// uses loc.
func NewHandler(feed repository.AppointmentFeed, settings repository.TenantSettings, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{feed: feed, settings: settings, location: loc, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cal := r.Group("/calendar")
	{
		cal.GET("", h.Month)
		cal.POST("/clicks", h.Click)
	}
}

// Month renders the month grid for ?year=&month=, defaulting to the current month.
func (h *Handler) Month(c *gin.Context) {
	tenant := middleware.Tenant(c)
	loc, err := h.tenantLocation(c.Request.Context(), tenant)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	now := h.now().In(loc)
	year, err := handler.IntQuery(c, "year", now.Year())
	if err != nil {
		handler.Abort(c, err)
		return
	}
	month, err := handler.IntQuery(c, "month", int(now.Month()))
	if err != nil {
		handler.Abort(c, err)
		return
	}
	if month < 1 || month > 12 {
		handler.Abort(c, apperrors.NewBadRequest(fmt.Sprintf("month %d is out of range", month), nil))
		return
	}

	view, err := h.build(c.Request.Context(), tenant, year, time.Month(month), loc)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	py, pm := calendar.Prev(year, time.Month(month))
	ny, nm := calendar.Next(year, time.Month(month))
	httputil.RespondWithSuccess(c, MonthResponse{
		View: view,
		Prev: MonthRef{Year: py, Month: pm},
		Next: MonthRef{Year: ny, Month: nm},
	})
}

// Click resolves a pointer interaction on the grid to a single event.
func (h *Handler) Click(c *gin.Context) {
	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}

	tenant := middleware.Tenant(c)
	loc, err := h.tenantLocation(c.Request.Context(), tenant)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	view, err := h.build(c.Request.Context(), tenant, req.Year, req.Month, loc)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	event, err := view.Dispatch(req.Click)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	resp := ClickResponse{Event: event.Name()}
	switch e := event.(type) {
	case calendar.DayClicked:
		resp.Date = e.Date.Format(model.DateLayout)
	case calendar.AppointmentClicked:
		resp.Appointment = &e.Appointment
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) build(ctx context.Context, tenant string, year int, month time.Month, loc *time.Location) (calendar.MonthView, error) {
	from, to := calendar.Range(year, month, loc)
	appointments, err := h.feed.Appointments(ctx, model.AppointmentQuery{Tenant: tenant, From: from, To: to})
	if err != nil {
		return calendar.MonthView{}, err
	}
	return calendar.Build(year, month, appointments, h.now(), loc), nil
}

func (h *Handler) tenantLocation(ctx context.Context, tenant string) (*time.Location, error) {
	if h.settings == nil {
		return h.location, nil
	}
	loc, err := h.settings.Location(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return h.location, nil
	}
	return loc, nil
}
