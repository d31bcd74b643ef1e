// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/manifest"
)

// Error titles returned in the "error" field.
const (
	TitleInvalidPath     = "Invalid path"
	TitleCDNError        = "CDN Error"
	TitleGatewayTimeout  = "Gateway Timeout"
	TitleRequestFailed   = "CDN Request Failed"
	TitleInvalidContent  = "Invalid Content"
	TitleProcessingError = "Processing Error"
	TitleInternal        = "Internal Server Error"
)

// ErrorBody is the JSON body of every failed proxy response.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type problem struct {
	status  int
	title   string
	message string
}

// describe maps an error onto status, title and message.
func describe(err error) problem {
	p := problem{status: fault.HTTPStatus(err), title: TitleInternal, message: err.Error()}

	var fe *fault.Error
	if !errors.As(err, &fe) {
		return p
	}

	switch {
	case errors.Is(err, manifest.ErrEmpty), errors.Is(err, manifest.ErrMissingHeader):
		p.title = TitleInvalidContent
		p.message = sentence(innermost(err))
	case errors.Is(err, manifest.ErrNotUTF8):
		p.title = TitleProcessingError
		p.message = sentence(manifest.ErrNotUTF8.Error())
	case fe.Kind == fault.ErrValidation:
		p.title = TitleInvalidPath
		p.message = sentence(causeText(fe))
	case fe.Kind == fault.ErrUpstream:
		p.title = TitleCDNError
		if fe.Op == opRetry {
			p.message = fmt.Sprintf("CDN retry failed with status %d", fe.Status)
		} else {
			p.message = fmt.Sprintf("CDN returned status %d", fe.Status)
			if fe.Body != "" {
				p.message += ": " + fe.Body
			}
		}
	case fe.Kind == fault.ErrTimeout:
		p.title = TitleGatewayTimeout
		p.message = "Request to CDN timed out"
	case fe.Kind == fault.ErrTransport:
		p.title = TitleRequestFailed
		p.message = causeText(fe)
	case fe.Kind == fault.ErrProcessing:
		p.title = TitleProcessingError
		p.message = causeText(fe)
	}
	return p
}

func causeText(fe *fault.Error) string {
	if fe.Err != nil {
		return fe.Err.Error()
	}
	return fe.Kind.Error()
}

// innermost returns the message of the deepest single-cause error in the chain.
func innermost(err error) string {
	for {
		var next error
		switch e := err.(type) {
		case *fault.Error:
			next = e.Err
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		}
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// writeError logs err and writes the JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := describe(err)
	reqID := xglog.RequestIDFromContext(r.Context())
	logger := xglog.FromContext(r.Context())

	evt := logger.Warn()
	if p.status >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).
		Str(xglog.FieldEvent, "gateway.request_failed").
		Int("status", p.status).
		Str("title", p.title).
		Msg("proxy request failed")

	writeJSON(w, p.status, ErrorBody{
		Error:     p.title,
		Message:   strings.ToValidUTF8(p.message, ""),
		RequestID: reqID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		xglog.L().Debug().Err(err).Int("status", status).Msg("write json response")
	}
}
