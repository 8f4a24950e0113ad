package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"phimgate/models"
	"phimgate/services/kkphim"
	"phimgate/services/resolve"
	"phimgate/utils/token"
)

// slugResolver maps external identifiers onto upstream slugs.
type slugResolver interface {
	Slug(ctx context.Context, imdbID, kind string, season int) (string, error)
}

var _ slugResolver = (*resolve.Service)(nil)

// StreamHandler answers stream requests for both native kkphim ids and
// external IMDb-style ids, the latter via the resolver.
type StreamHandler struct {
	client   filmClient
	resolver slugResolver
	codec    *token.Codec
}

func NewStreamHandler(client filmClient, resolver slugResolver, codec *token.Codec) *StreamHandler {
	return &StreamHandler{client: client, resolver: resolver, codec: codec}
}

func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mediaType := vars["type"]
	id := strings.TrimSuffix(vars["id"], ".json")

	slug, epSlug := "", "1"
	switch {
	case strings.HasPrefix(id, "kkphim:"):
		bits := strings.Split(id, ":")
		slug = bits[1]
		if len(bits) > 3 && bits[3] != "" {
			epSlug = bits[3]
		}
	case strings.HasPrefix(id, "tt"):
		bits := strings.Split(id, ":")
		season := 1
		if mediaType == "series" {
			if len(bits) > 1 {
				if s, err := strconv.Atoi(bits[1]); err == nil && s > 0 {
					season = s
				}
			}
			if len(bits) > 2 && bits[2] != "" {
				epSlug = bits[2]
			}
		}
		resolved, err := h.resolver.Slug(r.Context(), bits[0], mediaType, season)
		if err != nil {
			if !errors.Is(err, resolve.ErrNotFound) {
				log.Printf("[stream] resolve %s: %v", bits[0], err)
			}
			writeJSON(w, models.StreamResponse{Streams: []models.Stream{}})
			return
		}
		slug = resolved
	}

	if slug == "" {
		writeJSON(w, models.StreamResponse{Streams: []models.Stream{}})
		return
	}

	detail, err := h.client.Film(r.Context(), slug)
	if err != nil || detail.Movie == nil {
		log.Printf("[stream] detail fetch for %s failed: %v", slug, err)
		writeJSON(w, models.StreamResponse{Streams: []models.Stream{}})
		return
	}

	quality := detail.Movie.Quality
	if quality == "" {
		quality = "FHD"
	}

	origin := requestOrigin(r)
	streams := []models.Stream{}
	for _, group := range detail.Episodes {
		ep, ok := findEpisode(group.ServerData, epSlug)
		if !ok || ep.LinkM3U8 == "" {
			continue
		}
		streams = append(streams, models.Stream{
			Name:  "KKPhim\n" + group.ServerName,
			Title: fmt.Sprintf("%s\n%s [%s]", detail.Movie.Name, ep.Name, quality),
			URL:   videoProxyURL(h.codec, origin, ep.LinkM3U8),
		})
	}
	writeJSON(w, models.StreamResponse{Streams: streams})
}

// findEpisode matches a requested episode against a server group. Upstream
// episode naming is loose: the slug, the bare number, "Tập N" with or
// without a leading zero, or "Full" for single-episode titles.
func findEpisode(eps []kkphim.Episode, epSlug string) (kkphim.Episode, bool) {
	for _, ep := range eps {
		switch {
		case ep.Slug == epSlug,
			ep.Name == epSlug,
			ep.Name == "Tập "+epSlug,
			ep.Name == "Tập 0"+epSlug,
			epSlug == "1" && strings.EqualFold(ep.Name, "full"):
			return ep, true
		}
	}
	return kkphim.Episode{}, false
}
