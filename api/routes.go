package api

import (
	"log"
	"net/http"
	"time"

	"phimgate/handlers"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// corsMiddleware sets permissive CORS headers on every response. Addon
// clients load the manifest and catalogs cross-origin, so the headers go
// on real responses as well as preflights.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// accessLogMiddleware tags each request with a short id and logs method,
// path, status and duration once the handler returns.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()[:8]
		w.Header().Set("X-Request-Id", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("[http] %s %s %s -> %d (%s)", reqID, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts the addon and proxy endpoints onto the provided router.
func Register(
	r *mux.Router,
	manifestHandler *handlers.ManifestHandler,
	catalogHandler *handlers.CatalogHandler,
	metaHandler *handlers.MetaHandler,
	streamHandler *handlers.StreamHandler,
	proxyHandler *handlers.ProxyHandler,
) {
	r.Use(corsMiddleware)
	r.Use(accessLogMiddleware)

	r.HandleFunc("/manifest.json", manifestHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/manifest.json", handleOptions).Methods(http.MethodOptions)

	// Catalog ids arrive with a .json suffix baked into the path segment;
	// handlers strip it themselves.
	r.HandleFunc("/catalog/{type}/{id}", catalogHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{type}/{id}", handleOptions).Methods(http.MethodOptions)
	r.HandleFunc("/catalog/{type}/{id}/{extra}", catalogHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{type}/{id}/{extra}", handleOptions).Methods(http.MethodOptions)

	r.HandleFunc("/meta/{type}/{id}", metaHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/meta/{type}/{id}", handleOptions).Methods(http.MethodOptions)

	r.HandleFunc("/stream/{type}/{id}", streamHandler.Serve).Methods(http.MethodGet)
	r.HandleFunc("/stream/{type}/{id}", handleOptions).Methods(http.MethodOptions)

	// Masked media endpoints. The trailing filename only exists so players
	// see a sensible extension; routing ignores it.
	r.HandleFunc("/p/i/{token}/{filename}", proxyHandler.Image).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/p/i/{token}/{filename}", handleOptions).Methods(http.MethodOptions)
	r.HandleFunc("/p/v/{token}", proxyHandler.Video).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/p/v/{token}", handleOptions).Methods(http.MethodOptions)
	r.HandleFunc("/p/v/{token}/{filename}", proxyHandler.Video).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/p/v/{token}/{filename}", handleOptions).Methods(http.MethodOptions)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/manifest.json", http.StatusFound)
	}).Methods(http.MethodGet)
}
