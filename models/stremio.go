package models

// Stremio addon protocol payloads. Field names follow the protocol's JSON
// shapes; everything optional is omitempty so empty responses stay small.

// Manifest describes the addon to Stremio clients.
type Manifest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Logo        string            `json:"logo,omitempty"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Resources   []ManifestResource `json:"resources"`
	Types       []string          `json:"types"`
	Catalogs    []ManifestCatalog `json:"catalogs"`
	IDPrefixes  []string          `json:"idPrefixes"`
}

type ManifestResource struct {
	Name       string   `json:"name"`
	Types      []string `json:"types"`
	IDPrefixes []string `json:"idPrefixes,omitempty"`
}

type ManifestCatalog struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Extra []CatalogExtra `json:"extra,omitempty"`
}

type CatalogExtra struct {
	Name       string   `json:"name"`
	Options    []string `json:"options,omitempty"`
	IsRequired bool     `json:"isRequired"`
}

// Meta is a single catalog/detail item.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Director    []string `json:"director,omitempty"`
	Cast        []string `json:"cast,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Videos      []Video  `json:"videos,omitempty"`
}

// Video is one episode entry under a series meta.
type Video struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Season   int    `json:"season"`
	Episode  int    `json:"episode"`
	Released string `json:"released"`
}

// Stream is one playable source for a title.
type Stream struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

type MetaResponse struct {
	Meta *Meta `json:"meta"`
}

type StreamResponse struct {
	Streams []Stream `json:"streams"`
}
