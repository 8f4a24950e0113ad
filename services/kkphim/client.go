package kkphim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultAPIBase = "https://phimapi.com"
	defaultImgBase = "https://phimimg.com"

	// Browser-like identity for media fetches. The CDN rejects requests
	// without a plausible Referer/User-Agent pair.
	mediaUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
)

// Client wraps the phimapi.com catalog API and the media gateway.
type Client struct {
	apiBase string
	imgBase string
	referer string
	httpc   *http.Client

	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient builds a client for the given API base, image host and media
// referer. Empty strings fall back to the public defaults. A nil httpc gets
// a 30s-timeout client; media fetches share the same transport.
func NewClient(apiBase, imgBase, referer string, httpc *http.Client) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if imgBase == "" {
		imgBase = defaultImgBase
	}
	if referer == "" {
		referer = defaultAPIBase + "/"
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiBase:     strings.TrimRight(apiBase, "/"),
		imgBase:     strings.TrimRight(imgBase, "/"),
		referer:     referer,
		httpc:       httpc,
		minInterval: 50 * time.Millisecond,
	}
}

// ImageURL absolutizes a poster/thumb path. V3 list responses already carry
// full URLs, V1 paths are relative to the image host.
func (c *Client) ImageURL(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return c.imgBase + "/" + strings.TrimLeft(p, "/")
}

// doGET performs a throttled API GET and decodes the JSON body into v.
// Transport errors, 429 and 5xx are retried with backoff; other 4xx are not.
func (c *Client) doGET(ctx context.Context, endpoint string, v any) error {
	return retry.Do(
		func() error {
			c.throttleMu.Lock()
			if since := time.Since(c.lastRequest); since < c.minInterval {
				time.Sleep(c.minInterval - since)
			}
			c.lastRequest = time.Now()
			c.throttleMu.Unlock()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("kkphim request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				io.Copy(io.Discard, resp.Body)
				return retry.Unrecoverable(fmt.Errorf("kkphim request failed: %s", resp.Status))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode %s: %w", endpoint, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Search queries the free-text search endpoint.
func (c *Client) Search(ctx context.Context, keyword string, page int) ([]ListItem, error) {
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/v1/api/tim-kiem?keyword=%s&page=%d", c.apiBase, url.QueryEscape(keyword), page)
	var out v1ListResponse
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Data.Items, nil
}

// ListNewest returns the latest-updates list (V3 shape).
func (c *Client) ListNewest(ctx context.Context, page int) ([]ListItem, error) {
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/danh-sach/phim-moi-cap-nhat-v3?page=%d", c.apiBase, page)
	var out v3ListResponse
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// List returns one of the named V1 lists (phim-bo, phim-le, tv-shows,
// hoat-hinh), optionally narrowed by genre slug, country slug and year.
func (c *Client) List(ctx context.Context, listType string, page int, category, country string, year int) ([]ListItem, error) {
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/v1/api/danh-sach/%s?page=%d", c.apiBase, url.PathEscape(listType), page)
	if category != "" {
		endpoint += "&category=" + url.QueryEscape(category)
	}
	if country != "" {
		endpoint += "&country=" + url.QueryEscape(country)
	}
	if year > 0 {
		endpoint += fmt.Sprintf("&year=%d", year)
	}
	var out v1ListResponse
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Data.Items, nil
}

// LookupTMDB resolves a TMDB numeric id to a slug via the dedicated lookup
// endpoint. kind is "movie" or "tv". Returns "" when the upstream reports no
// match.
func (c *Client) LookupTMDB(ctx context.Context, kind string, tmdbID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/tmdb/%s/%d", c.apiBase, url.PathEscape(kind), tmdbID)
	var out tmdbLookupResponse
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if !out.Status || out.Movie == nil {
		return "", nil
	}
	return out.Movie.Slug, nil
}

// Film fetches the detail record for a slug.
func (c *Client) Film(ctx context.Context, slug string) (*FilmDetail, error) {
	endpoint := fmt.Sprintf("%s/phim/%s", c.apiBase, url.PathEscape(slug))
	var out FilmDetail
	if err := c.doGET(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Genres fetches the genre taxonomy.
func (c *Client) Genres(ctx context.Context) ([]Term, error) {
	var out []Term
	if err := c.doGET(ctx, c.apiBase+"/the-loai", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Countries fetches the country taxonomy.
func (c *Client) Countries(ctx context.Context) ([]Term, error) {
	var out []Term
	if err := c.doGET(ctx, c.apiBase+"/quoc-gia", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchMedia issues a GET for a media URL with the full browser header set.
// Redirects are followed by the underlying client. Never retried: upstream
// media failures are typically geo or hotlink blocks that a retry will not
// fix, so the response (whatever its status) goes straight back to the
// caller, which must close the body.
func (c *Client) FetchMedia(ctx context.Context, mediaURL, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	h := req.Header
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "vi,en;q=0.9,en-GB;q=0.8,en-US;q=0.7")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Priority", "u=1, i")
	h.Set("Sec-Ch-Ua", `"Not:A-Brand";v="99", "Chromium";v="120"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "cross-site")
	h.Set("Referer", c.referer)
	h.Set("User-Agent", mediaUserAgent)
	if rangeHeader != "" {
		h.Set("Range", rangeHeader)
	}
	return c.httpc.Do(req)
}
