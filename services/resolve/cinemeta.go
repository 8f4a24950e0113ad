package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// canonicalTitle is what the metadata service knows about an IMDb id: enough
// to drive the search tiers.
type canonicalTitle struct {
	Name   string
	Year   int
	TMDBID int64
}

// cinemetaClient queries the Cinemeta metadata service across an ordered
// list of mirror hosts, taking the first that yields a usable title.
type cinemetaClient struct {
	mirrors []string
	httpc   *http.Client
}

var defaultCinemetaMirrors = []string{
	"https://cinemeta-live.strem.io",
	"https://v3-cinemeta.strem.io",
}

func newCinemetaClient(mirrors []string, httpc *http.Client) *cinemetaClient {
	if len(mirrors) == 0 {
		mirrors = defaultCinemetaMirrors
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &cinemetaClient{mirrors: mirrors, httpc: httpc}
}

type cinemetaResponse struct {
	Meta *struct {
		Name        string          `json:"name"`
		ReleaseInfo string          `json:"releaseInfo"`
		MovieDBID   json.RawMessage `json:"moviedb_id"`
	} `json:"meta"`
}

// Lookup tries each mirror in order and returns the first response carrying
// a non-empty title name. All mirrors failing (or none knowing the id) is a
// hard error: nothing downstream can run without a title name.
func (c *cinemetaClient) Lookup(ctx context.Context, kind, imdbID string) (*canonicalTitle, error) {
	var lastErr error
	for _, mirror := range c.mirrors {
		endpoint := fmt.Sprintf("%s/meta/%s/%s.json", mirror, kind, imdbID)
		title, err := c.fetchOne(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		if title.Name != "" {
			return title, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("cinemeta lookup %s: %w", imdbID, lastErr)
	}
	return nil, fmt.Errorf("cinemeta lookup %s: no mirror returned a title", imdbID)
}

func (c *cinemetaClient) fetchOne(ctx context.Context, endpoint string) (*canonicalTitle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("cinemeta returned %s", resp.Status)
	}
	var out cinemetaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Meta == nil {
		return &canonicalTitle{}, nil
	}
	title := &canonicalTitle{
		Name:   out.Meta.Name,
		Year:   leadingYear(out.Meta.ReleaseInfo),
		TMDBID: parseTMDBID(out.Meta.MovieDBID),
	}
	return title, nil
}

// leadingYear parses the year prefix of a releaseInfo string ("2024",
// "2021-2024", "2021-"). Returns 0 when absent.
func leadingYear(s string) int {
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0
	}
	year, err := strconv.Atoi(s[:digits])
	if err != nil {
		return 0
	}
	return year
}

// parseTMDBID tolerates moviedb_id arriving as a number or a quoted string.
func parseTMDBID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
