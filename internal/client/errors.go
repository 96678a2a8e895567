package client

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldDetail struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// decodeError maps a non-2xx response to the error taxonomy. A list-valued detail is a
// field validation failure; a string detail is shown verbatim.
func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(env.Detail, &detail); err == nil {
			return apperrors.NewServer(status, detail)
		}

		var fields []fieldDetail
		if err := json.Unmarshal(env.Detail, &fields); err == nil && len(fields) > 0 {
			out := make([]apperrors.FieldError, 0, len(fields))
			for _, f := range fields {
				out = append(out, apperrors.FieldError{Field: joinLoc(f.Loc), Message: f.Msg})
			}
			appErr := apperrors.NewValidation(out)
			appErr.Status = status
			return appErr
		}
	}
	return apperrors.NewServer(status, fmt.Sprintf("request failed with status %d %s", status, http.StatusText(status)))
}

func joinLoc(loc []interface{}) string {
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}
