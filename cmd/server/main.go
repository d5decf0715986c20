package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"flashbooth/internal/admin"
	"flashbooth/internal/api"
	"flashbooth/internal/blobstore"
	"flashbooth/internal/config"
	"flashbooth/internal/engine"
	"flashbooth/internal/store"
	"flashbooth/internal/worker"
)

func main() {
	// Local development convenience; real env always wins.
	_ = godotenv.Load()

	cfg := config.Load()

	// Open SQLite.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// Initialize store.
	s, err := store.New(db)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	// Initialize blob store.
	blobs, err := blobstore.NewLocal(cfg.BlobDir)
	if err != nil {
		log.Fatalf("init blob store: %v", err)
	}

	// Requeue jobs interrupted by a previous shutdown.
	if n, err := s.ResetStaleProcessing(context.Background()); err != nil {
		slog.Warn("reset stale processing", "error", err)
	} else if n > 0 {
		slog.Info("requeued interrupted generation jobs", "count", n)
	}

	// Pick the transformation backend.
	var transformer engine.Transformer
	switch {
	case cfg.UseStub():
		slog.Info("no provider API key set, using stub transformer")
		transformer = &engine.StubTransformer{}
	case cfg.Provider == "openai":
		slog.Info("using OpenAI transformer", "model", cfg.OpenAIModel)
		transformer = engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.OpenAIModel),
			engine.WithHTTPTimeout(cfg.HTTPTimeout),
		)
	default:
		slog.Info("using Gemini transformer", "model", cfg.GeminiModel)
		transformer = engine.NewGeminiClient(cfg.GeminiKey,
			engine.WithGeminiModel(cfg.GeminiModel),
			engine.WithGeminiHTTPTimeout(cfg.HTTPTimeout),
		)
	}

	pipeline := engine.NewPipeline(s, blobs, transformer)

	// Start worker in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.New(s, pipeline, cfg.WorkerInterval)
	go w.Start(ctx)

	// Start API server.
	if cfg.AdminToken == "" {
		slog.Warn("ADMIN_API_TOKEN not set, admin delete is disabled")
	}
	authority := admin.New(cfg.AdminToken, s, blobs)
	srv := api.New(s, blobs, authority, cfg)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("flashbooth server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
