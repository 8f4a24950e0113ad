package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup tags from upstream description text.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// metaType maps an upstream item type onto the protocol's movie/series
// split. Upstream animation ("hoathinh") is episodic and treated as series.
func metaType(upstreamType string) string {
	if upstreamType == "series" || upstreamType == "hoathinh" {
		return "series"
	}
	return "movie"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] encode response: %v", err)
	}
}
