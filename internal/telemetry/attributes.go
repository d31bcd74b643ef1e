// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	// Asset attributes
	AssetIDKey       = "asset.id"
	AssetResourceKey = "asset.resource"
	AssetKindKey     = "asset.kind"

	// Packaging attributes
	PackageStateKey    = "package.state"
	PackageSegmentsKey = "package.segments"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AssetAttributes describes the asset resource a span operates on.
// Empty values are omitted.
func AssetAttributes(assetID, resource, kind string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if assetID != "" {
		attrs = append(attrs, attribute.String(AssetIDKey, assetID))
	}
	if resource != "" {
		attrs = append(attrs, attribute.String(AssetResourceKey, resource))
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AssetKindKey, kind))
	}
	return attrs
}

// PackageAttributes describes the outcome of one packaging run.
func PackageAttributes(state string, segments int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PackageStateKey, state),
		attribute.Int(PackageSegmentsKey, segments),
	}
}

// ErrorAttributes marks a span as failed with a classification.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
