package kkphim

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
)

func TestTaxonomyEnsureCachesSnapshot(t *testing.T) {
	var calls int64
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt64(&calls, 1)
		switch r.URL.Path {
		case "/the-loai":
			return jsonResponse(200, `[{"name":"Hành Động","slug":"hanh-dong"}]`), nil
		case "/quoc-gia":
			return jsonResponse(200, `[{"name":"Hàn Quốc","slug":"han-quoc"}]`), nil
		}
		t.Errorf("unexpected request: %s", r.URL)
		return jsonResponse(404, `[]`), nil
	})
	tax := NewTaxonomy(c)

	if err := tax.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if got := tax.GenreSlug("Hành Động"); got != "hanh-dong" {
		t.Fatalf("GenreSlug = %q", got)
	}
	if got := tax.CountrySlug("Hàn Quốc"); got != "han-quoc" {
		t.Fatalf("CountrySlug = %q", got)
	}
	if got := tax.GenreSlug("Không Tồn Tại"); got != "" {
		t.Fatalf("unknown genre = %q", got)
	}

	before := atomic.LoadInt64(&calls)
	if err := tax.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if after := atomic.LoadInt64(&calls); after != before {
		t.Fatalf("fresh taxonomy refetched (%d extra calls)", after-before)
	}
}

func TestTaxonomyFailedRefreshKeepsSnapshot(t *testing.T) {
	var fail atomic.Bool
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		if fail.Load() {
			return jsonResponse(404, ``), nil
		}
		switch r.URL.Path {
		case "/the-loai":
			return jsonResponse(200, `[{"name":"Kinh Dị","slug":"kinh-di"}]`), nil
		default:
			return jsonResponse(200, `[{"name":"Nhật Bản","slug":"nhat-ban"}]`), nil
		}
	})
	tax := NewTaxonomy(c)

	if err := tax.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if got := tax.GenreSlug("Kinh Dị"); got != "kinh-di" {
		t.Fatalf("GenreSlug = %q", got)
	}

	// Force a refresh attempt by clearing freshness, then make upstream fail:
	// the previous snapshot must survive.
	fail.Store(true)
	tax.mu.Lock()
	tax.lastRefresh = tax.lastRefresh.Add(-2 * taxonomyTTL)
	tax.mu.Unlock()

	if err := tax.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure must report the failed refresh")
	}
	if got := tax.GenreSlug("Kinh Dị"); got != "kinh-di" {
		t.Fatalf("failed refresh dropped the snapshot, GenreSlug = %q", got)
	}
}
