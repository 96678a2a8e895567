package booking

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-console/internal/handler"
	"github.com/jwalitptl/booking-console/internal/middleware"
	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/service/availability"
	bookingsvc "github.com/jwalitptl/booking-console/internal/service/booking"
	"github.com/jwalitptl/booking-console/internal/session"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/httputil"
)

type OpenRequest struct {
	Date       string               `json:"date,omitempty"`
	ServiceIDs []int                `json:"service_ids,omitempty"`
	PreInfo    *model.ClientPreInfo `json:"pre_info,omitempty"`
}

type DateRequest struct {
	// Date is YYYY-MM-DD. An empty string clears the selection.
	Date string `json:"date"`
}

type ServicesRequest struct {
	ServiceIDs []int `json:"service_ids"`
}

type SlotRequest struct {
	Slot     string `json:"slot,omitempty"`
	Earliest bool   `json:"earliest,omitempty"`
}

type Handler struct {
	sessions *session.Registry
}

func NewHandler(sessions *session.Registry) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/bookings/sessions")
	{
		sessions.POST("", h.Open)
		sessions.GET("/:id", h.Get)
		sessions.DELETE("/:id", h.Close)
		sessions.PUT("/:id/date", h.SetDate)
		sessions.PUT("/:id/services", h.SetServices)
		sessions.POST("/:id/services/:service_id/toggle", h.ToggleService)
		sessions.POST("/:id/retry", h.Retry)
		sessions.PUT("/:id/slot", h.ChooseSlot)
		sessions.DELETE("/:id/slot", h.ClearSlot)
		sessions.PUT("/:id/contact", h.SetContact)
		sessions.POST("/:id/submit", h.Submit)
	}
}

// Open starts a booking session, optionally pre-filled from a calendar day click or a
// known client.
func (h *Handler) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}

	open := session.OpenRequest{
		Tenant:     middleware.Tenant(c),
		ServiceIDs: req.ServiceIDs,
		PreInfo:    req.PreInfo,
	}
	if req.Date != "" {
		date, err := model.ParseDate(req.Date)
		if err != nil {
			handler.Abort(c, apperrors.NewBadRequest("invalid date", err))
			return
		}
		open.Date = date
	}

	s, err := h.sessions.Open(c.Request.Context(), open)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	h.respond(c, http.StatusCreated, s)
}

// Get returns the session view. Every session route accepts ?wait=true to let an
// in-flight availability fetch settle before the view is rendered.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) Close(c *gin.Context) {
	if err := h.sessions.Close(middleware.Tenant(c), c.Param("id")); err != nil {
		handler.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetDate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req DateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}

	if req.Date == "" {
		s.Coordinator.SetDate(time.Time{})
	} else {
		date, err := model.ParseDate(req.Date)
		if err != nil {
			handler.Abort(c, apperrors.NewBadRequest("invalid date", err))
			return
		}
		s.Coordinator.SetDate(date)
	}
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) SetServices(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ServicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}
	s.Coordinator.SetServices(req.ServiceIDs)
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) ToggleService(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("service_id"))
	if err != nil {
		handler.Abort(c, apperrors.NewBadRequest("invalid service ID", err))
		return
	}
	s.Coordinator.ToggleService(id)
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) Retry(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Coordinator.Retry()
	h.respond(c, http.StatusOK, s)
}

// ChooseSlot selects {"slot": "HH:MM"} or, with {"earliest": true}, the first offered time.
func (h *Handler) ChooseSlot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}

	var err error
	switch {
	case req.Earliest:
		_, err = s.Coordinator.ChooseEarliest()
	case req.Slot != "":
		err = s.Coordinator.Choose(req.Slot)
	default:
		err = apperrors.NewBadRequest("slot or earliest is required", nil)
	}
	if err != nil {
		handler.Abort(c, err)
		return
	}
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) ClearSlot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Coordinator.ClearChoice()
	h.respond(c, http.StatusOK, s)
}

func (h *Handler) SetContact(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req bookingsvc.Contact
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}
	if err := s.Form.SetContact(req); err != nil {
		handler.Abort(c, err)
		return
	}
	h.respond(c, http.StatusOK, s)
}

// Submit creates the appointment. Field errors come back as 422 without calling the
// booking backend; backend failures keep the session editable. A successful booking
// returns the final view and closes the session.
func (h *Handler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if _, err := s.Form.Submit(c.Request.Context()); err != nil {
		handler.Abort(c, err)
		return
	}

	view := NewView(c.Request.Context(), s)
	if err := h.sessions.Close(s.Tenant, s.ID); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, view)
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(middleware.Tenant(c), c.Param("id"))
	if err != nil {
		handler.Abort(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(c *gin.Context, status int, s *session.Session) {
	if c.Query("wait") == "true" {
		if err := wait(c.Request.Context(), s.Coordinator); err != nil {
			handler.Abort(c, apperrors.NewNetwork(err))
			return
		}
	}
	httputil.RespondWithStatus(c, status, NewView(c.Request.Context(), s))
}

// wait blocks until the coordinator is no longer loading or ctx ends.
func wait(ctx context.Context, coord *availability.Coordinator) error {
	settled := make(chan struct{}, 1)
	unsubscribe := coord.Subscribe(func(s availability.State) {
		if s.Kind() == availability.KindLoading {
			return
		}
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if !coord.Loading() {
		return nil
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
