package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// Handler is implemented by every route group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// BindError turns a request binding failure into an AppError. Struct tag violations become
// field errors; anything else, such as malformed JSON, is a bad request.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperrors.FieldError{
				Field:   fe.Field(),
				Message: "failed on the '" + fe.Tag() + "' rule",
			})
		}
		return apperrors.NewValidation(fields)
	}
	return apperrors.NewBadRequest("invalid request body", err)
}

// Abort records err for the error middleware and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// IntQuery parses an optional integer query parameter.
func IntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewBadRequest("invalid "+name, err)
	}
	return v, nil
}
