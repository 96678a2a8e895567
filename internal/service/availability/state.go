package availability

import (
	apperrors "github.com/jwalitptl/booking-console/pkg/errors"
)

// NoTimesMessage is attached to an empty Loaded state.
const NoTimesMessage = "no times found for this date/service combination"

// FailureMessage is shown when a failed fetch carries no server message.
const FailureMessage = "could not load available times"

type Kind string

const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindLoaded  Kind = "loaded"
	KindFailed  Kind = "failed"
)

// State is one of Idle, Loading, Loaded or Failed.
type State interface {
	Kind() Kind
	isState()
}

// Idle means no date or no service is selected.
type Idle struct{}

type Loading struct{}

// Loaded holds the sorted slot list of the latest fetch.
type Loaded struct {
	Slots   []string
	Message string
}

type Failed struct {
	Code    apperrors.ErrorCode
	Message string
}

func (Idle) Kind() Kind    { return KindIdle }
func (Loading) Kind() Kind { return KindLoading }
func (Loaded) Kind() Kind  { return KindLoaded }
func (Failed) Kind() Kind  { return KindFailed }

func (Idle) isState()    {}
func (Loading) isState() {}
func (Loaded) isState()  {}
func (Failed) isState()  {}

func loaded(slots []string) Loaded {
	if len(slots) == 0 {
		return Loaded{Slots: []string{}, Message: NoTimesMessage}
	}
	return Loaded{Slots: slots}
}

func failed(err error) Failed {
	code := apperrors.ErrInternal
	if appErr, ok := apperrors.As(err); ok {
		code = appErr.Code
	}
	return Failed{Code: code, Message: apperrors.Message(err, FailureMessage)}
}
