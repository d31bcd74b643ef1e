// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import (
	"strings"
	"testing"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PLAYLIST-TYPE:VOD
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-KEY:METHOD=AES-128,URI="key.key",IV=0x00000000000000000000000000000000
#EXTINF:6.000000,
segments/segment_000.ts
#EXTINF:6.000000,
segments/segment_001.ts
#EXTINF:2.500000,
segment_002.ts
#EXT-X-ENDLIST
`

func TestRewrite_MediaPlaylist(t *testing.T) {
	got := Rewrite(mediaPlaylist, "demo")
	want := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PLAYLIST-TYPE:VOD
#EXT-X-INDEPENDENT-SEGMENTS
#EXT-X-KEY:METHOD=AES-128,URI="key.key",IV=0x00000000000000000000000000000000
#EXTINF:6.000000,
/proxy/videos/demo/segments/segment_000.ts
#EXTINF:6.000000,
/proxy/videos/demo/segments/segment_001.ts
#EXTINF:2.500000,
/proxy/videos/demo/segment_002.ts
#EXT-X-ENDLIST
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rewrite() mismatch (-want +got):\n%s", diff)
	}
}

func TestRewrite_SegmentsPrefixCollapses(t *testing.T) {
	assert.Equal(t, "/proxy/videos/demo/segments/segment_001.ts", Rewrite("segments/segment_001.ts", "demo"))
}

func TestRewrite_AbsoluteURIsUntouched(t *testing.T) {
	in := "#EXTM3U\nhttps://cdn.example.com/videos/other/stream.m3u8\nhttp://cdn.example.com/a.ts\nhttps://keys.example.com/k.key"
	assert.Equal(t, in, Rewrite(in, "demo"))
}

func TestRewrite_NestedPlaylistAndKey(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nstream.m3u8\nkey.key"
	want := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\n/proxy/videos/demo/stream.m3u8\n/proxy/videos/demo/key.key"
	assert.Equal(t, want, Rewrite(in, "demo"))
}

func TestRewrite_DirectiveLinesByteIdentical(t *testing.T) {
	in := "#EXTM3U\r\n  #EXTINF:6.0,  \r\n\r\n#EXT-X-ENDLIST"
	assert.Equal(t, in, Rewrite(in, "demo"))
}

func TestRewrite_TrimsURILines(t *testing.T) {
	assert.Equal(t, "#EXTM3U\n/proxy/videos/demo/segments/segment_000.ts", Rewrite("#EXTM3U\n  segments/segment_000.ts\r", "demo"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(mediaPlaylist))
	require.NoError(t, Validate("\n  #EXTM3U\n"))

	err := Validate("")
	require.ErrorIs(t, err, fault.ErrValidation)
	assert.ErrorIs(t, err, ErrEmpty)

	err = Validate("   \n\t")
	assert.ErrorIs(t, err, ErrEmpty)

	err = Validate("#EXTINF:6,\nsegment.ts")
	require.ErrorIs(t, err, fault.ErrValidation)
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestProcess(t *testing.T) {
	out, err := Process([]byte(mediaPlaylist), "demo")
	require.NoError(t, err)
	assert.Contains(t, string(out), "/proxy/videos/demo/segments/segment_000.ts")

	_, err = Process([]byte{0xff, 0xfe, 0x00}, "demo")
	require.ErrorIs(t, err, fault.ErrProcessing)
	assert.ErrorIs(t, err, ErrNotUTF8)

	_, err = Process([]byte("not a playlist"), "demo")
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func FuzzRewrite(f *testing.F) {
	f.Add(mediaPlaylist, "demo")
	f.Add("#EXTM3U\nhttps://x/y.ts\n", "a")
	f.Add("", "demo")
	f.Add("#EXTM3U\n\n\n", "x_1")

	f.Fuzz(func(t *testing.T, text, id string) {
		if !asset.IsSafeID(id) {
			t.Skip()
		}
		out := Rewrite(text, id)
		in := strings.Split(text, "\n")
		got := strings.Split(out, "\n")
		if len(in) != len(got) {
			t.Fatalf("line count changed: %d -> %d", len(in), len(got))
		}
		for i := range in {
			if in[i] == got[i] {
				continue
			}
			if !strings.HasPrefix(got[i], "/proxy/videos/"+id+"/") {
				t.Fatalf("line %d rewritten without proxy prefix: %q", i, got[i])
			}
			if !strings.HasSuffix(got[i], strings.TrimSpace(in[i])) {
				t.Fatalf("line %d lost its original URI: %q -> %q", i, in[i], got[i])
			}
		}
	})
}
