package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"phimgate/api"
	"phimgate/config"
	"phimgate/handlers"
	"phimgate/services/kkphim"
	"phimgate/services/resolve"
	"phimgate/utils/token"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("phimgate starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("PHIMGATE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	kkClient := kkphim.NewClient(settings.Upstream.APIBase, settings.Upstream.ImageBase, settings.Upstream.Referer, httpClient)
	taxonomy := kkphim.NewTaxonomy(kkClient)

	resolver, err := resolve.NewService(kkClient, resolve.Options{
		CinemetaMirrors: settings.Resolver.CinemetaMirrors,
		CacheSize:       settings.Resolver.CacheSize,
		HTTPClient:      httpClient,
	})
	if err != nil {
		log.Fatalf("failed to init resolver: %v", err)
	}

	codec := token.NewCodec(byte(settings.Proxy.Key))

	manifestHandler := handlers.NewManifestHandler(taxonomy)
	catalogHandler := handlers.NewCatalogHandler(kkClient, taxonomy, codec)
	metaHandler := handlers.NewMetaHandler(kkClient, codec)
	streamHandler := handlers.NewStreamHandler(kkClient, resolver, codec)
	proxyHandler := handlers.NewProxyHandler(codec, kkClient, settings.Proxy.ImageCacheSize)

	r := mux.NewRouter()
	api.Register(r, manifestHandler, catalogHandler, metaHandler, streamHandler, proxyHandler)

	// Warm taxonomy so the first manifest request does not pay for it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := taxonomy.Ensure(ctx); err != nil {
			log.Printf("taxonomy warmup failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for streaming
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
