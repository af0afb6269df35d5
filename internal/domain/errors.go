package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every failure surfaced to a caller maps
// to exactly one kind.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindUnavailable       Kind = "unavailable"
	KindUpstream          Kind = "upstream_error"
	KindMalformedResponse Kind = "malformed_response"
	KindServerError       Kind = "server_error"
)

// Error is a typed failure returned by the weather source and the extractor.
type Error struct {
	Kind   Kind
	City   string // set for KindNotFound
	Status int    // upstream HTTP status for KindUpstream
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotFound:
		msg = fmt.Sprintf("city %q not found", e.City)
	case KindUpstream:
		msg = fmt.Sprintf("weather API returned status %d", e.Status)
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Errors that carry no classification are
// KindServerError.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindServerError
}

// ErrMalformed builds a KindMalformedResponse error for a missing or
// unusable field.
func ErrMalformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Err: fmt.Errorf(format, args...)}
}
