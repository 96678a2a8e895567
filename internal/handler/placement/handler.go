package placement

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-console/internal/handler"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/geometry"
	"github.com/jwalitptl/booking-console/pkg/httputil"
)

type Request struct {
	Trigger  geometry.Rect `json:"trigger"`
	Content  geometry.Size `json:"content"`
	Viewport geometry.Size `json:"viewport"`
	Gap      *float64      `json:"gap,omitempty"`
	Margin   *float64      `json:"margin,omitempty"`
}

type Response struct {
	Position  geometry.Position  `json:"position"`
	Placement geometry.Placement `json:"placement"`
}

type Handler struct {
	defaults geometry.Options
}

func NewHandler(defaults geometry.Options) *Handler {
	return &Handler{defaults: defaults}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/placements", h.Place)
}

// Place positions a tooltip of the given size next to its trigger.
func (h *Handler) Place(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}
	if req.Viewport.Width <= 0 || req.Viewport.Height <= 0 {
		handler.Abort(c, apperrors.NewBadRequest("viewport must have a positive size", nil))
		return
	}
	if req.Content.Width < 0 || req.Content.Height < 0 || req.Trigger.Width < 0 || req.Trigger.Height < 0 {
		handler.Abort(c, apperrors.NewBadRequest("sizes must not be negative", nil))
		return
	}

	opts := h.defaults
	if req.Gap != nil {
		opts.Gap = *req.Gap
	}
	if req.Margin != nil {
		opts.Margin = *req.Margin
	}

	pos, placement := geometry.Place(req.Trigger, req.Content, req.Viewport, opts)
	httputil.RespondWithSuccess(c, Response{Position: pos, Placement: placement})
}
