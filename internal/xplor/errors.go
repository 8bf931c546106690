// Package xplor talks to Xplor/PerfectMind-style booking sites: it acquires
// the anti-forgery token from a facility's landing page, posts to the
// FacilityAvailability endpoint and normalizes the response into the
// schedule model.
package xplor

import "fmt"

// ParameterError means a required request field is missing or invalid for
// one facility. It is raised before any network activity for that facility.
type ParameterError struct {
	Field  string
	Reason string
}

func (e *ParameterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("parameter %s: missing", e.Field)
}

// TokenError means the anti-forgery token could not be acquired, or the API
// kept rejecting it after a refresh.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anti-forgery token: %s: %v", e.Reason, e.Err)
	}
	return "anti-forgery token: " + e.Reason
}

func (e *TokenError) Unwrap() error { return e.Err }

type HTTPKind int

const (
	HTTPOther HTTPKind = iota
	HTTPNotFound
	HTTPServerError
)

// HTTPError is a non-2xx response that is not an anti-forgery rejection.
type HTTPError struct {
	Kind   HTTPKind
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	switch e.Kind {
	case HTTPNotFound:
		return fmt.Sprintf("facility not found (status=%d)", e.Status)
	case HTTPServerError:
		return fmt.Sprintf("server error (status=%d)", e.Status)
	default:
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
}

// NetworkError is a connection or timeout failure that survived the retry
// budget.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means the response body was not a recognizable availability
// envelope. Malformed individual entries inside a valid envelope are not
// ParseErrors; they become notes on the result.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }
