// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func lookup(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/proxy/*", "/proxy/videos/demo/stream.m3u8", 200)
	assert.Len(t, attrs, 4)

	v, ok := lookup(attrs, HTTPRouteKey)
	assert.True(t, ok)
	assert.Equal(t, "/proxy/*", v.AsString())
	v, _ = lookup(attrs, HTTPStatusCodeKey)
	assert.Equal(t, int64(200), v.AsInt64())
}

func TestAssetAttributes_OmitsEmpty(t *testing.T) {
	assert.Len(t, AssetAttributes("demo", "stream.m3u8", "playlist"), 3)

	attrs := AssetAttributes("demo", "", "")
	assert.Len(t, attrs, 1)
	v, ok := lookup(attrs, AssetIDKey)
	assert.True(t, ok)
	assert.Equal(t, "demo", v.AsString())
}

func TestPackageAttributes(t *testing.T) {
	attrs := PackageAttributes("uploaded", 12)
	v, _ := lookup(attrs, PackageSegmentsKey)
	assert.Equal(t, int64(12), v.AsInt64())
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("timeout")
	v, _ := lookup(attrs, ErrorKey)
	assert.True(t, v.AsBool())
	v, _ = lookup(attrs, ErrorTypeKey)
	assert.Equal(t, "timeout", v.AsString())
}
