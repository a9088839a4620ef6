package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/engine"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/internal/resilience"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the batch processing HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := checklist.NewStore(cfg.Checklists.Dir)
		client := anthropic.NewClient(cfg.Anthropic.Key)
		eng := engine.New(cfg, client, store, nil)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(eng, store, cfg.Server),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownGraceSecs)*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP surface over the engine and checklist store.
func newRouter(eng *engine.Engine, store *checklist.Store, serverCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/upload-batch", func(w http.ResponseWriter, req *http.Request) {
		files, ok := readUploads(w, req, serverCfg.MaxUploadBytes)
		if !ok {
			return
		}

		summary, err := eng.UploadSummary(files)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	r.Post("/api/process-batch", func(w http.ResponseWriter, req *http.Request) {
		region, ok := model.ParseRegion(regionParam(req))
		if !ok {
			writeError(w, http.StatusBadRequest, "region must be 'AU' or 'NZ'")
			return
		}

		files, readOK := readUploads(w, req, serverCfg.MaxUploadBytes)
		if !readOK {
			return
		}

		manifest, err := eng.ProcessBatch(req.Context(), files, region)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, manifest)
	})

	r.Get("/api/checklist/{region}", func(w http.ResponseWriter, req *http.Request) {
		region, ok := model.ParseRegion(chi.URLParam(req, "region"))
		if !ok {
			writeError(w, http.StatusBadRequest, "region must be 'AU' or 'NZ'")
			return
		}

		raw, err := store.Raw(region)
		if err != nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("checklist not found for region %s", region))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"region":    region,
			"content":   json.RawMessage(raw),
			"file_path": store.Path(region),
		})
	})

	r.Put("/api/checklist/{region}", func(w http.ResponseWriter, req *http.Request) {
		region, ok := model.ParseRegion(chi.URLParam(req, "region"))
		if !ok {
			writeError(w, http.StatusBadRequest, "region must be 'AU' or 'NZ'")
			return
		}

		var body struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || len(body.Content) == 0 {
			writeError(w, http.StatusBadRequest, "request body must contain a content object")
			return
		}

		if err := store.Replace(region, body.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   fmt.Sprintf("Checklist for %s updated successfully", region),
			"region":    region,
			"file_path": store.Path(region),
		})
	})

	return r
}

// regionParam reads the region query parameter, defaulting to AU.
func regionParam(req *http.Request) string {
	if region := req.URL.Query().Get("region"); region != "" {
		return region
	}
	return string(model.RegionAU)
}

// readUploads parses the multipart form and enforces the PDF precondition.
// Writes the error response itself when the request is unusable.
func readUploads(w http.ResponseWriter, req *http.Request, maxBytes int) ([]model.FileUpload, bool) {
	if err := req.ParseMultipartForm(int64(maxBytes)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	parts := req.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return nil, false
	}

	files := make([]model.FileUpload, 0, len(parts))
	for _, part := range parts {
		if !isPDF(part.Filename, part.Header.Get("Content-Type")) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %q is not a PDF", part.Filename))
			return nil, false
		}

		f, err := part.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read file %q", part.Filename))
			return nil, false
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read file %q", part.Filename))
			return nil, false
		}

		files = append(files, model.FileUpload{Filename: part.Filename, Content: content})
	}
	return files, true
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps the engine taxonomy onto HTTP statuses: invalid
// input is the caller's fault, everything else is an engine fault.
func writeEngineError(w http.ResponseWriter, err error) {
	if resilience.IsInvalidInput(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zap.L().Error("engine fault", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}
