package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brunobiangulo/godeck"
)

// runServe serves the generated site plus a small JSON API: catalog history
// and on-demand conversion of a watched input directory.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	out := fs.String("out", "", "Output directory (overrides config)")
	in := fs.String("in", "", "Input directory for POST /api/convert")
	configPath := fs.String("config", "", "Path to config file (YAML or JSON)")
	verbose := fs.Bool("v", false, "Debug logging")
	fs.Parse(args)

	setupLogging(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *out != "" {
		cfg.OutputDir = *out
	}

	engine, err := godeck.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/history", func(w http.ResponseWriter, req *http.Request) {
		records, err := engine.History(req.Context())
		if err != nil {
			slog.Error("history error", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"presentations": records})
	})

	r.Post("/api/convert", func(w http.ResponseWriter, req *http.Request) {
		input := *in
		var body struct {
			Input string `json:"input"`
			Force bool   `json:"force"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err == nil && body.Input != "" {
			input = body.Input
		}
		if input == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
			return
		}
		var opts []godeck.ConvertOption
		if body.Force {
			opts = append(opts, godeck.WithForce())
		}
		batch, err := engine.Convert(req.Context(), input, opts...)
		if err != nil {
			slog.Error("convert error", "input", input, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "conversion failed"})
			return
		}
		writeJSON(w, http.StatusOK, batch)
	})

	// The generated site itself: index.json, json/, media/.
	root, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return err
	}
	r.Handle("/*", http.FileServer(http.Dir(root)))

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // conversions can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", *addr, "site", root)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-done:
	}
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
