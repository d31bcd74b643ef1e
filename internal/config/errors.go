// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrMissingCredentials is returned when the storage access/secret pair is incomplete.
	ErrMissingCredentials = errors.New("storage credentials not configured")

	// ErrMissingCDNBaseURL is returned by ValidateServe when no CDN origin is configured.
	ErrMissingCDNBaseURL = errors.New("cdn base url not configured")
)
