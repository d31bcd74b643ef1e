// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldAssetID   = "asset_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPass      = "pass"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Storage fields
	FieldTier      = "tier"
	FieldBucket    = "bucket"
	FieldObjectKey = "object_key"

	// Path / URL fields
	FieldPath      = "path"
	FieldSource    = "source"
	FieldOriginURL = "origin_url"

	// Upstream fields
	FieldUpstreamStatus = "upstream_status"
	FieldAttempt        = "attempt"
)
