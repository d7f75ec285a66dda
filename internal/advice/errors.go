package advice

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why an endpoint call failed.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindStatus      ErrorKind = "status"
	KindMalformed   ErrorKind = "malformed"
	KindEmpty       ErrorKind = "empty"
	KindCanceled    ErrorKind = "canceled"
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindProvider    ErrorKind = "provider"
)

var (
	ErrUnavailable = errors.New("advice provider is not configured")
	ErrEmptyAdvice = errors.New("advice provider returned no text")
)

// EndpointError is returned by Endpoint implementations.
type EndpointError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *EndpointError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("advice %s error (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("advice %s error: %v", e.Kind, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, falling back to context and sentinel
// inspection for errors that are not an *EndpointError.
func KindOf(err error) ErrorKind {
	var ee *EndpointError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ee):
		return ee.Kind
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrEmptyAdvice):
		return KindEmpty
	default:
		return KindProvider
	}
}

// contextKind maps a context error to its kind, or returns fallback.
func contextKind(ctx context.Context, fallback ErrorKind) ErrorKind {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return KindTimeout
	default:
		return fallback
	}
}
