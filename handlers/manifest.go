package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"phimgate/models"
	"phimgate/services/kkphim"
)

const (
	addonID      = "com.phimgate.kkphim"
	addonVersion = "1.0.0"
)

// ManifestHandler serves the addon manifest. Genre and country catalog
// options come from the live upstream taxonomy.
type ManifestHandler struct {
	taxonomy *kkphim.Taxonomy
}

func NewManifestHandler(taxonomy *kkphim.Taxonomy) *ManifestHandler {
	return &ManifestHandler{taxonomy: taxonomy}
}

func (h *ManifestHandler) Serve(w http.ResponseWriter, r *http.Request) {
	// Best-effort: an unreachable taxonomy just means empty option lists.
	if err := h.taxonomy.Ensure(r.Context()); err != nil {
		log.Printf("[manifest] %v", err)
	}

	genres := termNames(h.taxonomy.Genres())
	countries := termNames(h.taxonomy.Countries())

	years := make([]string, 0, 26)
	for y := time.Now().Year() + 1; len(years) < 26; y-- {
		years = append(years, fmt.Sprintf("%d", y))
	}

	browseExtra := []models.CatalogExtra{
		{Name: "genre", Options: genres},
		{Name: "country", Options: countries},
		{Name: "year", Options: years},
		{Name: "skip"},
	}
	types := []string{"movie", "series", "anime", "tv"}

	writeJSON(w, models.Manifest{
		ID:          addonID,
		Name:        "KKPhim Stremio Addon",
		Version:     addonVersion,
		Description: "Addon xem phim từ KKPhim (phimapi.com) với dữ liệu cập nhật tự động.",
		Resources: []models.ManifestResource{
			{Name: "catalog", Types: types, IDPrefixes: []string{"kkphim:"}},
			{Name: "meta", Types: types, IDPrefixes: []string{"kkphim:"}},
			{Name: "stream", Types: types, IDPrefixes: []string{"kkphim:", "tt"}},
		},
		Types: types,
		Catalogs: []models.ManifestCatalog{
			{Type: "movie", ID: "kkphim_search", Name: "KKPhim - Tìm kiếm", Extra: []models.CatalogExtra{{Name: "search", IsRequired: true}}},
			{Type: "movie", ID: "kkphim_phim-moi", Name: "KKPhim - Phim Mới", Extra: browseExtra},
			{Type: "series", ID: "kkphim_phim-bo", Name: "KKPhim - Phim Bộ", Extra: browseExtra},
			{Type: "movie", ID: "kkphim_phim-le", Name: "KKPhim - Phim Lẻ", Extra: browseExtra},
			{Type: "series", ID: "kkphim_tv-shows", Name: "KKPhim - Shows", Extra: browseExtra},
			{Type: "movie", ID: "kkphim_hoat-hinh", Name: "KKPhim - Hoạt Hình", Extra: browseExtra},
		},
		IDPrefixes: []string{"kkphim:", "tt"},
	})
}

func termNames(terms []kkphim.Term) []string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return names
}
