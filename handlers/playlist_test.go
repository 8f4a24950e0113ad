package handlers

import (
	"strings"
	"testing"
)

func TestRewritePlaylistSegments(t *testing.T) {
	playlist := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"",
		"#EXTINF:10.0,",
		"seg001.ts",
		"#EXTINF:10.0,",
		"/abs/seg002.ts",
		"#EXTINF:10.0,",
		"//cdn2.example/seg003.ts",
		"#EXTINF:10.0,",
		"https://other.example/seg004.ts",
		"#EXT-X-ENDLIST",
	}, "\n")

	got := RewritePlaylist(playlist, "https://cdn.example/a/index.m3u8", func(abs string) string {
		return "proxied(" + abs + ")"
	})

	wants := []string{
		"proxied(https://cdn.example/a/seg001.ts)",
		"proxied(https://cdn.example/abs/seg002.ts)",
		"proxied(https://cdn2.example/seg003.ts)",
		"proxied(https://other.example/seg004.ts)",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("rewritten playlist missing %q:\n%s", w, got)
		}
	}
	if !strings.Contains(got, "#EXTM3U") || !strings.Contains(got, "#EXT-X-ENDLIST") {
		t.Error("directives must pass through untouched")
	}
}

func TestRewritePlaylistURIAttribute(t *testing.T) {
	playlist := "#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\",IV=0x1234\n#EXTINF:4.0,\nseg.ts"

	got := RewritePlaylist(playlist, "https://cdn.example/v/index.m3u8", func(abs string) string {
		return "P:" + abs
	})

	if !strings.Contains(got, `URI="P:https://cdn.example/v/key.bin"`) {
		t.Errorf("key URI not rewritten:\n%s", got)
	}
	if !strings.Contains(got, "METHOD=AES-128") || !strings.Contains(got, "IV=0x1234") {
		t.Errorf("surrounding attributes must survive:\n%s", got)
	}
	if !strings.Contains(got, "P:https://cdn.example/v/seg.ts") {
		t.Errorf("segment line not rewritten:\n%s", got)
	}
}

func TestMediaFilename(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example/a/seg001.ts":          "seg001.ts",
		"https://cdn.example/a/index.m3u8?tok=abc": "index.m3u8",
		"https://cdn.example/":                     "file.m3u8",
	}
	for in, want := range cases {
		if got := mediaFilename(in); got != want {
			t.Errorf("mediaFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
