package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"phimgate/utils/token"
)

const defaultImageCacheSize = 256

// mediaFetcher is the narrow gateway surface the proxy needs.
type mediaFetcher interface {
	FetchMedia(ctx context.Context, mediaURL, rangeHeader string) (*http.Response, error)
}

type cachedImage struct {
	contentType string
	body        []byte
}

// ProxyHandler serves the two masked-token proxy endpoints: /p/i/{token}/...
// for images and /p/v/{token}/... for video and playlists.
type ProxyHandler struct {
	codec    *token.Codec
	gateway  mediaFetcher
	imgCache *lru.Cache[string, cachedImage]
}

func NewProxyHandler(codec *token.Codec, gateway mediaFetcher, imageCacheSize int) *ProxyHandler {
	if imageCacheSize <= 0 {
		imageCacheSize = defaultImageCacheSize
	}
	cache, _ := lru.New[string, cachedImage](imageCacheSize)
	return &ProxyHandler{codec: codec, gateway: gateway, imgCache: cache}
}

// Codec exposes the token codec so sibling handlers mint proxy links with
// the same key.
func (h *ProxyHandler) Codec() *token.Codec { return h.codec }

// Image proxies a masked image URL, caching successful responses in memory
// keyed by the inbound request URL.
func (h *ProxyHandler) Image(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(h.codec.Unmask(mux.Vars(r)["token"]))
	if target == "" {
		http.Error(w, "invalid image token", http.StatusBadRequest)
		return
	}

	cacheKey := r.Host + r.URL.RequestURI()
	if img, ok := h.imgCache.Get(cacheKey); ok {
		writeImageHeaders(w, img.contentType)
		w.Write(img.body)
		return
	}

	resp, err := h.gateway.FetchMedia(r.Context(), target, "")
	if err != nil {
		log.Printf("[proxy] image fetch error for %s: %v", target, err)
		http.Error(w, "image fetch failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		http.Error(w, fmt.Sprintf("image source error: %d", resp.StatusCode), resp.StatusCode)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[proxy] image read error for %s: %v", target, err)
		http.Error(w, "image read failed", http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	writeImageHeaders(w, contentType)
	w.Write(body)

	// Best-effort: losing the race to another request just means one extra
	// upstream fetch.
	h.imgCache.Add(cacheKey, cachedImage{contentType: contentType, body: body})
}

func writeImageHeaders(w http.ResponseWriter, contentType string) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=2592000")
}

// Video proxies a masked video or playlist URL. Playlists are rewritten line
// by line so every reference points back through this proxy; everything else
// streams through untouched (minus upstream cookies).
func (h *ProxyHandler) Video(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(h.codec.Unmask(mux.Vars(r)["token"]))
	if target == "" {
		http.Error(w, "invalid video token", http.StatusBadRequest)
		return
	}

	resp, err := h.gateway.FetchMedia(r.Context(), target, r.Header.Get("Range"))
	if err != nil {
		log.Printf("[proxy] video fetch error for %s: %v", target, err)
		http.Error(w, "video fetch failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[proxy] video source returned %d for %s", resp.StatusCode, target)
		http.Error(w, fmt.Sprintf("source error: %d | url: %s", resp.StatusCode, target), resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	isPlaylist := strings.Contains(target, ".m3u8") || strings.Contains(contentType, "mpegurl")

	if isPlaylist {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Printf("[proxy] playlist read error for %s: %v", target, err)
			http.Error(w, "playlist read failed", http.StatusBadGateway)
			return
		}
		origin := requestOrigin(r)
		rewritten := RewritePlaylist(string(body), target, func(absURL string) string {
			return videoProxyURL(h.codec, origin, absURL)
		})
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-cache")
		io.WriteString(w, rewritten)
		return
	}

	// Pass-through: keep the payload headers, drop upstream session cookies.
	for _, k := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// requestOrigin reconstructs the externally visible scheme://host for this
// request, honoring the reverse-proxy forwarded-proto header.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// imageProxyURL mints a masked image-proxy link for rawURL, "" in "" out.
func imageProxyURL(codec *token.Codec, origin, rawURL string) string {
	if rawURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/i/%s/%s", origin, codec.Mask(rawURL), mediaFilename(rawURL))
}

// videoProxyURL mints a masked video-proxy link for rawURL.
func videoProxyURL(codec *token.Codec, origin, rawURL string) string {
	return fmt.Sprintf("%s/p/v/%s/%s", origin, codec.Mask(rawURL), mediaFilename(rawURL))
}
