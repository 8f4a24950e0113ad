package handlers

import (
	"net/url"
	"regexp"
	"strings"
)

var uriAttrPattern = regexp.MustCompile(`(URI=")([^"]+)(")`)

// RewritePlaylist rewrites every media reference inside an HLS playlist so
// the client fetches everything back through the proxy. baseURL is the
// absolute URL the playlist was fetched from; proxyURL turns a resolved
// absolute URL into a proxy path.
//
// Rules: blank lines and comment/directive lines pass through untouched at
// the line level; every other line is a media URI and gets resolved against
// baseURL and re-masked. Independently, any URI="..." attribute inside a
// directive (encryption keys, alternate renditions) has its quoted value
// rewritten the same way.
func RewritePlaylist(content, baseURL string, proxyURL func(absURL string) string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines[i] = proxyURL(resolveRef(baseURL, trimmed))
	}
	rewritten := strings.Join(lines, "\n")

	return uriAttrPattern.ReplaceAllStringFunc(rewritten, func(m string) string {
		parts := uriAttrPattern.FindStringSubmatch(m)
		return parts[1] + proxyURL(resolveRef(baseURL, parts[2])) + parts[3]
	})
}

// resolveRef resolves a playlist reference against the playlist's own URL
// per standard URL-resolution semantics: absolute URLs pass through,
// //-prefixed are scheme-relative, /-prefixed are origin-relative, anything
// else is relative to the playlist's directory. Unparseable input comes back
// unchanged; masked garbage is still better than a dropped segment.
func resolveRef(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// mediaFilename extracts the trailing path segment of a URL, query stripped,
// for client-side extension sniffing. Falls back to a playlist name.
func mediaFilename(absURL string) string {
	s := absURL
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "file.m3u8"
	}
	return s
}
