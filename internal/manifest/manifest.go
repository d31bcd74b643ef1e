// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manifest validates HLS playlists and rewrites their URI lines so
// every follow-up request routes back through the proxy.
package manifest

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
)

// Header is the format marker every playlist must start with.
const Header = "#EXTM3U"

// ProxyPrefix is the path namespace served by the gateway.
const ProxyPrefix = "/proxy/"

var (
	// ErrEmpty reports a playlist that is blank after trimming.
	ErrEmpty = errors.New("empty m3u8 file received")
	// ErrMissingHeader reports a playlist without the #EXTM3U marker.
	ErrMissingHeader = errors.New("invalid m3u8 file format")
	// ErrNotUTF8 reports playlist bytes that are not valid UTF-8.
	ErrNotUTF8 = errors.New("failed to decode m3u8 content")
)

// Decode converts raw playlist bytes to text.
func Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fault.Processing("decode playlist", ErrNotUTF8, "")
	}
	return string(b), nil
}

// Validate enforces the rewrite preconditions.
func Validate(text string) error {
	const op = "validate playlist"
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fault.Validation(op, ErrEmpty)
	}
	if !strings.HasPrefix(trimmed, Header) {
		return fault.Validation(op, ErrMissingHeader)
	}
	return nil
}

// Rewrite maps every relative .ts, .m3u8 and .key line onto
// /proxy/videos/{assetID}/{line}. Directive and blank lines are returned
// byte-identical; URI lines with a scheme are left alone.
func Rewrite(text, assetID string) string {
	lines := strings.Split(text, "\n")
	prefix := ProxyPrefix + asset.ObjectKey(assetID, "")
	for i, line := range lines {
		uri := strings.TrimSpace(line)
		if uri == "" || !asset.Classify(uri).IsURI() || hasScheme(uri) {
			continue
		}
		lines[i] = prefix + uri
	}
	return strings.Join(lines, "\n")
}

// Process validates and rewrites raw playlist bytes in one step.
func Process(b []byte, assetID string) ([]byte, error) {
	text, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(text); err != nil {
		return nil, err
	}
	return []byte(Rewrite(text, assetID)), nil
}

func hasScheme(line string) bool {
	u, err := url.Parse(line)
	if err != nil {
		return strings.Contains(line, "://")
	}
	return u.Scheme != "" && u.Host != ""
}
