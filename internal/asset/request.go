// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"errors"
	"strings"

	"github.com/ManuGH/hlsvault/internal/fault"
)

var errBadPath = errors.New("could not extract video name")

// Request is an inbound proxy path of the form videos/{assetId}/{resource}.
type Request struct {
	AssetID  string
	Resource string // path below videos/{assetId}/, e.g. segments/segment_001.ts
	Kind     Kind
}

// ParseRequest validates a proxy path (without the /proxy/ prefix).
// Empty, "." and ".." segments are rejected.
func ParseRequest(path string) (Request, error) {
	const op = "parse proxy path"

	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != Prefix {
		return Request{}, fault.Validation(op, errBadPath)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return Request{}, fault.Validationf(op, "invalid segment in path %q", path)
		}
		if strings.ContainsAny(p, "\\\x00") {
			return Request{}, fault.Validationf(op, "invalid character in path %q", path)
		}
	}
	if !IsSafeID(parts[1]) {
		return Request{}, fault.Validation(op, errBadPath)
	}

	resource := strings.Join(parts[2:], "/")
	return Request{
		AssetID:  parts[1],
		Resource: resource,
		Kind:     Classify(resource),
	}, nil
}

// Path returns the object path videos/{assetId}/{resource}.
func (r Request) Path() string {
	return ObjectKey(r.AssetID, r.Resource)
}

// ContentType returns the MIME type for the requested resource.
func (r Request) ContentType() string {
	return r.Kind.ContentType()
}
