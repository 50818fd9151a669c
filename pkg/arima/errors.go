package arima

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData reports a series too short for the requested orders.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidParameterIndex reports access to a lag that is not a fitted coefficient.
	ErrInvalidParameterIndex = errors.New("invalid parameter index")
	// ErrSingularSystem reports normal equations that could not be solved.
	ErrSingularSystem = errors.New("singular system")
	// ErrNoValidModel reports a grid search in which every candidate failed.
	ErrNoValidModel = errors.New("no valid model")
	// ErrInvalidHorizon reports a non-positive forecast horizon.
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrInvalidOrder reports a malformed model order or configuration.
	ErrInvalidOrder = errors.New("invalid order")
)

// InsufficientDataError carries the minimum series length an operation
// needed and the length it was given.
type InsufficientDataError struct {
	Op       string
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d points, have %d", e.Op, e.Required, e.Actual)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

func insufficient(op string, required, actual int) error {
	return &InsufficientDataError{Op: op, Required: required, Actual: actual}
}

// ParameterIndexError names the lag that was addressed.
type ParameterIndexError struct {
	Lag int
}

func (e *ParameterIndexError) Error() string {
	return fmt.Sprintf("lag %d is not an active coefficient", e.Lag)
}

func (e *ParameterIndexError) Unwrap() error { return ErrInvalidParameterIndex }
