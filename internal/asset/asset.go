// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package asset holds the VideoAsset model, resource classification and the
// fixed object-key layout shared by the packager and the proxy gateway.
package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Fixed resource names inside an asset directory and under videos/{id}/.
const (
	KeyName        = "key.key"
	KeyInfoName    = "key_info"
	StreamPlaylist = "stream.m3u8"
	IFramePlaylist = "iframes.m3u8"
	SegmentsDir    = "segments"
	SegmentPattern = "segment_%03d.ts"

	// Prefix is the object-key namespace for all assets.
	Prefix = "videos"
)

// State is a VideoAsset lifecycle state.
type State string

const (
	StatePending  State = "pending"
	StatePackaged State = "packaged"
	StateUploaded State = "uploaded"
	StateFailed   State = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s State) IsTerminal() bool {
	return s == StateUploaded || s == StateFailed
}

var idRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]{0,127}$`)

// IsSafeID reports whether id is usable as a single path segment in object keys,
// local directories and proxy URLs.
func IsSafeID(id string) bool {
	return idRe.MatchString(id) && id != "." && id != ".."
}

// ValidateID returns an error describing why id is not a safe asset identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("asset id is empty")
	}
	if !IsSafeID(id) {
		return fmt.Errorf("asset id %q must match %s", id, idRe.String())
	}
	return nil
}

// IDFromSource derives the asset identifier from a source file name by
// stripping the directory and the extension.
func IDFromSource(path string) (string, error) {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

// VideoAsset describes one packaged source file.
type VideoAsset struct {
	ID     string
	Source string // local source file
	Dir    string // local staging directory
	State  State
}

// KeyPath returns the local path of the encryption key.
func (a VideoAsset) KeyPath() string { return filepath.Join(a.Dir, KeyName) }

// KeyInfoPath returns the local path of the transcoder key-info file.
func (a VideoAsset) KeyInfoPath() string { return filepath.Join(a.Dir, KeyInfoName) }

// StreamPath returns the local path of the media playlist.
func (a VideoAsset) StreamPath() string { return filepath.Join(a.Dir, StreamPlaylist) }

// IFramePath returns the local path of the i-frame playlist.
func (a VideoAsset) IFramePath() string { return filepath.Join(a.Dir, IFramePlaylist) }

// SegmentsPath returns the local segment directory.
func (a VideoAsset) SegmentsPath() string { return filepath.Join(a.Dir, SegmentsDir) }

// ObjectKey returns videos/{id}/{name} for a control-tier object.
func ObjectKey(id, name string) string {
	return Prefix + "/" + id + "/" + name
}

// SegmentObjectKey returns videos/{id}/segments/{name} for a segment object.
func SegmentObjectKey(id, name string) string {
	return Prefix + "/" + id + "/" + SegmentsDir + "/" + name
}

// Tier names a storage bucket tier. Assignment is fixed by resource kind.
type Tier string

const (
	TierControl Tier = "control"
	TierSegment Tier = "cdn"
)

// TierFor routes a resource kind to its storage tier.
func TierFor(k Kind) Tier {
	if k == KindSegment {
		return TierSegment
	}
	return TierControl
}
