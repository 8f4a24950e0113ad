package kkphim

// API response shapes for phimapi.com. The list endpoints come in two
// generations: V3 (`/danh-sach/...`) returns items at the top level with
// absolute image URLs, V1 (`/v1/api/...`) nests them under data.items with
// image paths relative to the image host. Callers get the normalized slice
// and should absolutize poster paths via Client.ImageURL.

// Term is a named slug pair (genre or country).
type Term struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListItem is one title in a list or search response.
type ListItem struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	OriginName string `json:"origin_name"`
	PosterURL  string `json:"poster_url"`
	ThumbURL   string `json:"thumb_url"`
	Year       int    `json:"year"`
	Type       string `json:"type"`
}

type v1ListResponse struct {
	Data struct {
		Items []ListItem `json:"items"`
	} `json:"data"`
}

type v3ListResponse struct {
	Items []ListItem `json:"items"`
}

type tmdbLookupResponse struct {
	Status bool `json:"status"`
	Movie  *struct {
		Slug string `json:"slug"`
	} `json:"movie"`
}

// Movie is the title record inside a detail response.
type Movie struct {
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	OriginName string   `json:"origin_name"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	ThumbURL   string   `json:"thumb_url"`
	PosterURL  string   `json:"poster_url"`
	Time       string   `json:"time"`
	Quality    string   `json:"quality"`
	Year       int      `json:"year"`
	Actor      []string `json:"actor"`
	Director   []string `json:"director"`
	Category   []Term   `json:"category"`
	TMDB       struct {
		VoteAverage float64 `json:"vote_average"`
	} `json:"tmdb"`
}

// Episode is one playable entry inside a server group.
type Episode struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Filename string `json:"filename"`
	LinkM3U8 string `json:"link_m3u8"`
}

// ServerGroup is one upstream server's episode list for a title.
type ServerGroup struct {
	ServerName string    `json:"server_name"`
	ServerData []Episode `json:"server_data"`
}

// FilmDetail is the `/phim/{slug}` response.
type FilmDetail struct {
	Movie    *Movie        `json:"movie"`
	Episodes []ServerGroup `json:"episodes"`
}
