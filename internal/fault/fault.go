// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fault defines the error taxonomy shared by the packager and the gateway.
//
// Every failure is classified by one sentinel. Callers branch with errors.Is on the
// sentinel and read details with errors.As on *Error.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed input: bad request paths, empty or headerless
	// playlists, missing source files. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrProcessing marks transcoder failures and undecodable content.
	ErrProcessing = errors.New("processing failed")
	// ErrStorage marks object-store and local disk failures.
	ErrStorage = errors.New("storage failure")
	// ErrUpstream marks a non-200 CDN response that could not be remediated.
	ErrUpstream = errors.New("upstream error")
	// ErrTimeout marks an upstream request that exceeded its deadline.
	ErrTimeout = errors.New("upstream timed out")
	// ErrTransport marks DNS, connection and body-read failures towards the CDN.
	ErrTransport = errors.New("upstream transport failure")
)

// Error wraps one of the sentinels with operation context.
type Error struct {
	Kind   error  // one of the package sentinels
	Op     string // operation that failed, e.g. "encode stream pass"
	Status int    // upstream HTTP status, if any
	Body   string // upstream body or transcoder diagnostics, if any
	Err    error  // lower-level cause
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation returns a validation error for op.
func Validation(op string, err error) error {
	return &Error{Kind: ErrValidation, Op: op, Err: err}
}

// Validationf returns a validation error with a formatted cause.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Processing returns a processing error carrying optional diagnostics.
func Processing(op string, err error, diagnostics string) error {
	return &Error{Kind: ErrProcessing, Op: op, Err: err, Body: diagnostics}
}

// Storage returns a storage error for op.
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// Upstream returns an upstream error with the CDN status and body.
func Upstream(op string, status int, body string) error {
	return &Error{Kind: ErrUpstream, Op: op, Status: status, Body: body}
}

// Timeout returns a timeout error for op.
func Timeout(op string, err error) error {
	return &Error{Kind: ErrTimeout, Op: op, Err: err}
}

// Transport returns a transport error for op.
func Transport(op string, err error) error {
	return &Error{Kind: ErrTransport, Op: op, Err: err}
}

// KindOf returns the sentinel of the outermost *Error in err's chain, or nil.
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return nil
}

// HTTPStatus maps an error onto the status code surfaced to proxy callers.
// Upstream errors carry the CDN status through unchanged, including 2xx and
// 3xx codes other than 200.
// The outermost classification wins, so a validation failure re-classified as a
// processing failure by the gateway maps to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrProcessing, ErrStorage:
		return http.StatusInternalServerError
	case ErrUpstream:
		if fe.Status >= 200 && fe.Status <= 599 {
			return fe.Status
		}
		return http.StatusBadGateway
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
