package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"

	"phimgate/models"
	"phimgate/services/kkphim"
	"phimgate/utils/token"
)

const catalogPageSize = 24

// listClient is the catalog surface of the upstream client.
type listClient interface {
	Search(ctx context.Context, keyword string, page int) ([]kkphim.ListItem, error)
	ListNewest(ctx context.Context, page int) ([]kkphim.ListItem, error)
	List(ctx context.Context, listType string, page int, category, country string, year int) ([]kkphim.ListItem, error)
	ImageURL(p string) string
}

var _ listClient = (*kkphim.Client)(nil)

// CatalogHandler translates Stremio catalog requests into upstream list and
// search queries.
type CatalogHandler struct {
	client   listClient
	taxonomy *kkphim.Taxonomy
	codec    *token.Codec
}

func NewCatalogHandler(client listClient, taxonomy *kkphim.Taxonomy, codec *token.Codec) *CatalogHandler {
	return &CatalogHandler{client: client, taxonomy: taxonomy, codec: codec}
}

// catalogQuery is the decoded extra segment of a catalog path.
type catalogQuery struct {
	search  string
	genre   string
	country string
	year    int
	skip    int
}

func (h *CatalogHandler) parseExtra(ctx context.Context, extra string) catalogQuery {
	var q catalogQuery
	if extra == "" {
		return q
	}
	if err := h.taxonomy.Ensure(ctx); err != nil {
		log.Printf("[catalog] %v", err)
	}
	for _, pair := range strings.Split(extra, "&") {
		k, v, _ := strings.Cut(pair, "=")
		// Path-style decoding: the extra segment is a path component, so a
		// literal "+" is a plus, not a space.
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
		switch k {
		case "search":
			q.search = v
		case "genre":
			q.genre = h.taxonomy.GenreSlug(v)
		case "country":
			q.country = h.taxonomy.CountrySlug(v)
		case "year":
			q.year, _ = strconv.Atoi(v)
		case "skip":
			q.skip, _ = strconv.Atoi(v)
		}
	}
	return q
}

// Serve handles /catalog/{type}/{id}.json and its /{extra}.json variant.
// Failures degrade to an empty catalog, never an error status.
func (h *CatalogHandler) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := strings.TrimSuffix(vars["id"], ".json")
	extra := strings.TrimSuffix(vars["extra"], ".json")

	q := h.parseExtra(r.Context(), extra)
	page := q.skip/catalogPageSize + 1

	fetch := func(ctx context.Context, p int) ([]kkphim.ListItem, error) {
		switch {
		case q.search != "":
			return h.client.Search(ctx, q.search, p)
		case id == "kkphim_phim-moi", id == "", id == "kkphim_search":
			return h.client.ListNewest(ctx, p)
		default:
			listType := strings.TrimPrefix(id, "kkphim_")
			return h.client.List(ctx, listType, p, q.genre, q.country, q.year)
		}
	}

	// Two pages per request so the client always gets a full scroll buffer.
	// The second page is best-effort: losing it degrades to fewer results.
	var first, second []kkphim.ListItem
	p := pool.New().WithErrors().WithContext(r.Context())
	p.Go(func(ctx context.Context) error {
		items, err := fetch(ctx, page)
		if err != nil {
			return err
		}
		first = items
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := fetch(ctx, page+1)
		if err != nil {
			log.Printf("[catalog] page %d fetch failed: %v", page+1, err)
			return nil
		}
		second = items
		return nil
	})
	if err := p.Wait(); err != nil {
		log.Printf("[catalog] %s fetch failed: %v", id, err)
		writeJSON(w, models.CatalogResponse{Metas: []models.Meta{}})
		return
	}

	origin := requestOrigin(r)
	items := append(first, second...)
	metas := make([]models.Meta, 0, len(items))
	for _, item := range items {
		poster := h.client.ImageURL(item.PosterURL)
		metas = append(metas, models.Meta{
			ID:          "kkphim:" + item.Slug,
			Type:        metaType(item.Type),
			Name:        item.Name,
			Poster:      imageProxyURL(h.codec, origin, poster),
			Description: fmt.Sprintf("%s (%d)", item.OriginName, item.Year),
			ReleaseInfo: strconv.Itoa(item.Year),
		})
	}
	writeJSON(w, models.CatalogResponse{Metas: metas})
}
