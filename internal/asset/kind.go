// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import "strings"

// Kind classifies a resource by its file extension.
type Kind int

const (
	KindOther Kind = iota
	KindPlaylist
	KindSegment
	KindKey
)

const (
	ContentTypePlaylist = "application/vnd.apple.mpegurl"
	ContentTypeSegment  = "video/mp2t"
	ContentTypeBinary   = "application/octet-stream"
)

// Classify derives the Kind of a resource path. Matching is case-sensitive.
func Classify(path string) Kind {
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return KindPlaylist
	case strings.HasSuffix(path, ".ts"):
		return KindSegment
	case strings.HasSuffix(path, ".key"):
		return KindKey
	default:
		return KindOther
	}
}

// ContentType returns the MIME type served for resources of kind k.
func (k Kind) ContentType() string {
	switch k {
	case KindPlaylist:
		return ContentTypePlaylist
	case KindSegment:
		return ContentTypeSegment
	case KindKey, KindOther:
		return ContentTypeBinary
	default:
		return ContentTypeBinary
	}
}

// IsURI reports whether a playlist line of this kind references another resource.
func (k Kind) IsURI() bool {
	return k != KindOther
}

func (k Kind) String() string {
	switch k {
	case KindPlaylist:
		return "playlist"
	case KindSegment:
		return "segment"
	case KindKey:
		return "key"
	default:
		return "other"
	}
}

// ContentType is shorthand for Classify(path).ContentType().
func ContentType(path string) string {
	return Classify(path).ContentType()
}
