package kkphim

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(rt roundTripFunc) *Client {
	c := NewClient("https://api.test", "https://img.test", "https://api.test/", &http.Client{Transport: rt})
	c.minInterval = 0
	return c
}

func TestSearchRequestShape(t *testing.T) {
	var gotURL string
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		return jsonResponse(200, `{"data":{"items":[{"name":"Phim A","slug":"phim-a","year":2024}]}}`), nil
	})

	items, err := c.Search(context.Background(), "dune phần hai", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 1 || items[0].Slug != "phim-a" {
		t.Fatalf("items = %+v", items)
	}
	if !strings.Contains(gotURL, "/v1/api/tim-kiem?keyword=dune+ph%E1%BA%A7n+hai&page=1") {
		t.Errorf("url = %q", gotURL)
	}
}

func TestListRequestShape(t *testing.T) {
	var gotURL string
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(200, `{"data":{"items":[]}}`), nil
	})

	if _, err := c.List(context.Background(), "phim-bo", 2, "hanh-dong", "han-quoc", 2024); err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, want := range []string{"/v1/api/danh-sach/phim-bo?page=2", "category=hanh-dong", "country=han-quoc", "year=2024"} {
		if !strings.Contains(gotURL, want) {
			t.Errorf("url %q missing %q", gotURL, want)
		}
	}
}

func TestLookupTMDBMiss(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":false}`), nil
	})
	slug, err := c.LookupTMDB(context.Background(), "movie", 42)
	if err != nil || slug != "" {
		t.Fatalf("LookupTMDB = (%q, %v)", slug, err)
	}
}

func TestDoGETRetriesServerErrors(t *testing.T) {
	var calls int64
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return jsonResponse(500, ``), nil
		}
		return jsonResponse(200, `{"items":[]}`), nil
	})

	if _, err := c.ListNewest(context.Background(), 1); err != nil {
		t.Fatalf("ListNewest: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want retry after 500", calls)
	}
}

func TestDoGETDoesNotRetryClientErrors(t *testing.T) {
	var calls int64
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt64(&calls, 1)
		return jsonResponse(404, ``), nil
	})

	if _, err := c.ListNewest(context.Background(), 1); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, 4xx must not retry", calls)
	}
}

func TestImageURL(t *testing.T) {
	c := newTestClient(nil)
	cases := map[string]string{
		"":                              "",
		"upload/vod/poster.jpg":         "https://img.test/upload/vod/poster.jpg",
		"/upload/vod/poster.jpg":        "https://img.test/upload/vod/poster.jpg",
		"https://cdn.other/full/ab.jpg": "https://cdn.other/full/ab.jpg",
	}
	for in, want := range cases {
		if got := c.ImageURL(in); got != want {
			t.Errorf("ImageURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchMediaHeaders(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		if got := r.Header.Get("Referer"); got != "https://api.test/" {
			t.Errorf("Referer = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Chrome/120") {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Accept-Language"); !strings.HasPrefix(got, "vi,") {
			t.Errorf("Accept-Language = %q", got)
		}
		if got := r.Header.Get("Range"); got != "bytes=100-200" {
			t.Errorf("Range = %q", got)
		}
		return jsonResponse(206, `x`), nil
	})

	resp, err := c.FetchMedia(context.Background(), "https://cdn.test/seg.ts", "bytes=100-200")
	if err != nil {
		t.Fatalf("FetchMedia: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 206 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestFetchMediaErrorsPassThrough(t *testing.T) {
	var calls int64
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt64(&calls, 1)
		return jsonResponse(403, `blocked`), nil
	})

	resp, err := c.FetchMedia(context.Background(), "https://cdn.test/seg.ts", "")
	if err != nil {
		t.Fatalf("FetchMedia: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Fatalf("status = %d, upstream status must pass through", resp.StatusCode)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, media fetches must never retry", calls)
	}
}
