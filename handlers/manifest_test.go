package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"phimgate/models"
)

func TestManifest(t *testing.T) {
	h := NewManifestHandler(testTaxonomy(t))

	w := httptest.NewRecorder()
	h.Serve(w, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var m models.Manifest
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if m.ID != "com.phimgate.kkphim" || m.Version == "" {
		t.Fatalf("manifest identity: %+v", m)
	}

	catalogIDs := map[string]models.ManifestCatalog{}
	for _, c := range m.Catalogs {
		catalogIDs[c.ID] = c
	}
	for _, id := range []string{"kkphim_search", "kkphim_phim-moi", "kkphim_phim-bo", "kkphim_phim-le", "kkphim_tv-shows", "kkphim_hoat-hinh"} {
		if _, ok := catalogIDs[id]; !ok {
			t.Errorf("catalog %s missing", id)
		}
	}

	// Search catalog requires its extra; browse catalogs carry live taxonomy
	// options.
	search := catalogIDs["kkphim_search"]
	if len(search.Extra) != 1 || search.Extra[0].Name != "search" || !search.Extra[0].IsRequired {
		t.Errorf("search extra = %+v", search.Extra)
	}
	browse := catalogIDs["kkphim_phim-bo"]
	var genreOpts []string
	for _, e := range browse.Extra {
		if e.Name == "genre" {
			genreOpts = e.Options
		}
	}
	found := false
	for _, o := range genreOpts {
		if o == "Hành Động" {
			found = true
		}
	}
	if !found {
		t.Errorf("genre options missing taxonomy entries: %v", genreOpts)
	}

	var streamRes *models.ManifestResource
	for i := range m.Resources {
		if m.Resources[i].Name == "stream" {
			streamRes = &m.Resources[i]
		}
	}
	if streamRes == nil {
		t.Fatal("stream resource missing")
	}
	hasTT := false
	for _, p := range streamRes.IDPrefixes {
		if p == "tt" {
			hasTT = true
		}
	}
	if !hasTT {
		t.Errorf("stream resource must accept IMDb ids: %+v", streamRes.IDPrefixes)
	}
}
