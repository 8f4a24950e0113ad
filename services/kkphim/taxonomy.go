package kkphim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

const taxonomyTTL = time.Hour

// Taxonomy caches the upstream genre and country lists. Refresh is
// best-effort: a failed fetch keeps serving the previous snapshot.
type Taxonomy struct {
	client *Client

	mu          sync.RWMutex
	genres      []Term
	countries   []Term
	lastRefresh time.Time
}

func NewTaxonomy(client *Client) *Taxonomy {
	return &Taxonomy{client: client}
}

// Ensure refreshes the taxonomy when it is empty or older than an hour.
// Both lists are fetched concurrently. A failed refresh is reported but the
// previous snapshot stays in place.
func (t *Taxonomy) Ensure(ctx context.Context) error {
	t.mu.RLock()
	fresh := len(t.genres) > 0 && len(t.countries) > 0 && time.Since(t.lastRefresh) < taxonomyTTL
	t.mu.RUnlock()
	if fresh {
		return nil
	}

	var genres, countries []Term
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		g, err := t.client.Genres(ctx)
		if err == nil {
			genres = g
		}
		return err
	})
	p.Go(func(ctx context.Context) error {
		c, err := t.client.Countries(ctx)
		if err == nil {
			countries = c
		}
		return err
	})
	if err := p.Wait(); err != nil {
		return fmt.Errorf("taxonomy refresh: %w", err)
	}

	t.mu.Lock()
	t.genres = genres
	t.countries = countries
	t.lastRefresh = time.Now()
	t.mu.Unlock()
	log.Printf("[kkphim] taxonomy refreshed: %d genres, %d countries", len(genres), len(countries))
	return nil
}

// Genres returns the cached genre list.
func (t *Taxonomy) Genres() []Term {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.genres
}

// Countries returns the cached country list.
func (t *Taxonomy) Countries() []Term {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countries
}

// GenreSlug maps a display name back to its slug, "" when unknown.
func (t *Taxonomy) GenreSlug(name string) string {
	return slugFor(t.Genres(), name)
}

// CountrySlug maps a display name back to its slug, "" when unknown.
func (t *Taxonomy) CountrySlug(name string) string {
	return slugFor(t.Countries(), name)
}

func slugFor(terms []Term, name string) string {
	for _, term := range terms {
		if term.Name == name {
			return term.Slug
		}
	}
	return ""
}
