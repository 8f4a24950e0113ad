// Package resolve maps external IMDb-style identifiers onto upstream catalog
// slugs through an ordered, best-effort pipeline: cache, canonical metadata
// lookup, exact TMDB-id lookup, fuzzy title search, and a last-resort search
// by the raw identifier.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"phimgate/services/kkphim"
)

// ErrNotFound is the defined "no match" outcome. It is not a fault: callers
// render it as an empty result set.
var ErrNotFound = errors.New("resolve: no match")

const defaultCacheSize = 4096

// Options configures a Service. Zero values take defaults.
type Options struct {
	CinemetaMirrors []string
	CacheSize       int
	HTTPClient      *http.Client
}

// Service resolves (imdbID, kind, season) to an upstream slug.
type Service struct {
	kk       *kkphim.Client
	cinemeta *cinemetaClient
	cache    *lru.Cache[string, string]
}

func NewService(kk *kkphim.Client, opts Options) (*Service, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("resolve cache: %w", err)
	}
	return &Service{
		kk:       kk,
		cinemeta: newCinemetaClient(opts.CinemetaMirrors, opts.HTTPClient),
		cache:    cache,
	}, nil
}

// cacheKey: movies are keyed by id alone, series by id:season.
func cacheKey(imdbID, kind string, season int) string {
	if kind == "series" && season > 0 {
		return fmt.Sprintf("%s:%d", imdbID, season)
	}
	return imdbID
}

// Slug resolves an external identifier to an upstream slug, consulting the
// cache first and short-circuiting on the first tier that matches. A
// successful tier writes the cache entry before returning; an entry is never
// overwritten once present. Exhausting every tier returns ErrNotFound.
func (s *Service) Slug(ctx context.Context, imdbID, kind string, season int) (string, error) {
	if kind != "series" || season < 1 {
		season = 1
	}
	key := cacheKey(imdbID, kind, season)

	// Tier 1: cache.
	if slug, ok := s.cache.Get(key); ok {
		return slug, nil
	}

	// Tier 2: canonical metadata. Without a title name the remaining tiers
	// have nothing to search with, so failure here ends the resolution.
	title, err := s.cinemeta.Lookup(ctx, kind, imdbID)
	if err != nil {
		log.Printf("[resolve] %s: canonical metadata unavailable: %v", imdbID, err)
		return "", ErrNotFound
	}
	log.Printf("[resolve] %s: name=%q year=%d tmdb=%d", imdbID, title.Name, title.Year, title.TMDBID)

	// Tier 3: exact TMDB-id lookup. Authoritative on success.
	if title.TMDBID != 0 {
		kkKind := "movie"
		if kind == "series" {
			kkKind = "tv"
		}
		slug, err := s.kk.LookupTMDB(ctx, kkKind, title.TMDBID)
		if err != nil {
			log.Printf("[resolve] %s: tmdb lookup failed, falling through: %v", imdbID, err)
		} else if slug != "" {
			return s.remember(key, slug, "tmdb"), nil
		}
	}

	// Tier 4: fuzzy title search over derived keywords.
	for _, kw := range searchKeywords(title.Name) {
		items, err := s.kk.Search(ctx, kw, 1)
		if err != nil {
			log.Printf("[resolve] %s: search %q failed: %v", imdbID, kw, err)
			continue
		}
		for _, item := range items {
			if !nameMatches(item.Name, item.OriginName, title.Name) {
				continue
			}
			if !yearMatches(item.Year, title.Year) {
				continue
			}
			if kind == "series" && !seasonMatches(item.Name, season) {
				continue
			}
			return s.remember(key, item.Slug, fmt.Sprintf("search %q", kw)), nil
		}
	}

	// Tier 5: last resort, search by the raw identifier and take whatever
	// comes back first.
	items, err := s.kk.Search(ctx, imdbID, 1)
	if err == nil && len(items) > 0 {
		return s.remember(key, items[0].Slug, "id search"), nil
	}

	log.Printf("[resolve] %s: no match (%s)", imdbID, title.Name)
	return "", ErrNotFound
}

// remember writes the cache entry for a successful tier. Existing entries
// win: a key is only ever written once for the process lifetime.
func (s *Service) remember(key, slug, tier string) string {
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}
	s.cache.Add(key, slug)
	log.Printf("[resolve] %s -> %s (%s)", key, slug, tier)
	return slug
}
