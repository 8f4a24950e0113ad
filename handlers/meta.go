package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"phimgate/models"
	"phimgate/services/kkphim"
	"phimgate/utils/token"
)

// filmClient is the detail surface of the upstream client.
type filmClient interface {
	Film(ctx context.Context, slug string) (*kkphim.FilmDetail, error)
	ImageURL(p string) string
}

var _ filmClient = (*kkphim.Client)(nil)

// MetaHandler translates an upstream detail record into a Stremio meta.
type MetaHandler struct {
	client filmClient
	codec  *token.Codec
}

func NewMetaHandler(client filmClient, codec *token.Codec) *MetaHandler {
	return &MetaHandler{client: client, codec: codec}
}

func (h *MetaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(mux.Vars(r)["id"], ".json")
	slug := id
	if _, rest, found := strings.Cut(id, ":"); found {
		slug = strings.SplitN(rest, ":", 2)[0]
	}

	detail, err := h.client.Film(r.Context(), slug)
	if err != nil || detail.Movie == nil {
		writeJSON(w, models.MetaResponse{Meta: &models.Meta{}})
		return
	}

	item := detail.Movie
	origin := requestOrigin(r)
	maskImg := func(p string) string {
		return imageProxyURL(h.codec, origin, h.client.ImageURL(p))
	}

	// A "movie" record with several playable entries is really a series the
	// upstream mislabeled; trust the episode list over the type field.
	mType := metaType(item.Type)
	if len(detail.Episodes) > 0 && len(detail.Episodes[0].ServerData) > 1 {
		mType = "series"
	}

	meta := &models.Meta{
		ID:          "kkphim:" + item.Slug,
		Type:        mType,
		Name:        item.Name,
		Poster:      maskImg(item.ThumbURL),
		Background:  maskImg(item.PosterURL),
		Description: stripHTML(item.Content),
		ReleaseInfo: strconv.Itoa(item.Year),
		Runtime:     item.Time,
		Genres:      termNames(item.Category),
		Director:    item.Director,
		Cast:        item.Actor,
	}
	if item.TMDB.VoteAverage > 0 {
		meta.IMDBRating = strconv.FormatFloat(item.TMDB.VoteAverage, 'f', 1, 64)
	}

	if mType == "series" {
		released := time.Now().UTC().Format(time.RFC3339)
		for _, group := range detail.Episodes {
			for _, ep := range group.ServerData {
				episode, err := strconv.Atoi(ep.Name)
				if err != nil {
					episode = len(meta.Videos) + 1
				}
				meta.Videos = append(meta.Videos, models.Video{
					ID:       fmt.Sprintf("kkphim:%s:1:%s", item.Slug, ep.Slug),
					Title:    fmt.Sprintf("Tập %s (%s)", ep.Name, group.ServerName),
					Season:   1,
					Episode:  episode,
					Released: released,
				})
			}
		}
		sort.SliceStable(meta.Videos, func(i, j int) bool {
			return meta.Videos[i].Episode < meta.Videos[j].Episode
		})
	}

	writeJSON(w, models.MetaResponse{Meta: meta})
}
