package validator

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// phonePattern accepts anything that looks like a phone number; strict checks are left to the backend.
var phonePattern = regexp.MustCompile(`^\+?[0-9(][0-9\s\-().]{5,19}$`)

var defaultMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"phone":    "must be a valid phone number",
}

// Validator validates tagged structs and reports field errors keyed by json name.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})

	messages := make(map[string]string, len(defaultMessages))
	for tag, msg := range defaultMessages {
		messages[tag] = msg
	}
	return &Validator{validate: v, messages: messages}
}

// RegisterRule adds a context-aware rule under tag with the message shown when it fails.
func (v *Validator) RegisterRule(tag, message string, fn func(ctx context.Context, fl validator.FieldLevel) bool) error {
	if err := v.validate.RegisterValidationCtx(tag, fn); err != nil {
		return fmt.Errorf("failed to register rule %s: %w", tag, err)
	}
	v.messages[tag] = message
	return nil
}

// Validate returns the failing fields of obj, or nil when it is valid.
func (v *Validator) Validate(ctx context.Context, obj interface{}) []apperrors.FieldError {
	err := v.validate.StructCtx(ctx, obj)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !stderrors.As(err, &errs) {
		return []apperrors.FieldError{{Message: err.Error()}}
	}

	fields := make([]apperrors.FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, apperrors.FieldError{
			Field:   e.Field(),
			Message: v.message(e),
		})
	}
	return fields
}

func (v *Validator) message(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	}
	if msg, ok := v.messages[e.Tag()]; ok {
		return msg
	}
	return "is invalid"
}

// IsPhone applies the permissive phone pattern.
func IsPhone(raw string) bool {
	return phonePattern.MatchString(strings.TrimSpace(raw))
}

// NormalizePhone formats raw as E.164 when it parses as a possible number in region,
// and returns it trimmed but otherwise unchanged when it does not.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
