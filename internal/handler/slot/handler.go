package slot

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-console/internal/handler"
	"github.com/jwalitptl/booking-console/internal/model"
	"github.com/jwalitptl/booking-console/internal/slot"
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
	"github.com/jwalitptl/booking-console/pkg/httputil"
)

type SegmentRequest struct {
	Slots []string `json:"slots" binding:"required"`
	Step  int      `json:"step" binding:"omitempty,min=1,max=1440"`
}

type SegmentResponse struct {
	Slots    []string        `json:"slots"`
	Segments []model.Segment `json:"segments"`
}

type Handler struct {
	step int
}

func NewHandler(step int) *Handler {
	if step <= 0 {
		step = slot.DefaultStep
	}
	return &Handler{step: step}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/slots")
	{
		slots.POST("/segments", h.Segments)
	}
}

// Segments groups the posted slots into contiguous runs.
func (h *Handler) Segments(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, handler.BindError(err))
		return
	}
	if err := slot.Validate(req.Slots); err != nil {
		handler.Abort(c, apperrors.NewBadRequest(err.Error(), err))
		return
	}

	step := req.Step
	if step == 0 {
		step = h.step
	}
	sorted := slot.Sort(req.Slots)
	httputil.RespondWithSuccess(c, SegmentResponse{
		Slots:    sorted,
		Segments: slot.Segment(sorted, step),
	})
}
