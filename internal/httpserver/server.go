package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/blackmichael/bubble-server/internal/config"
	"github.com/blackmichael/bubble-server/internal/domain"
	"github.com/blackmichael/bubble-server/internal/metrics"
)

// multipart request bodies get a little headroom over the payload cap for
// the form framing and metadata fields.
const maxRequestBytes = domain.MaxUploadBytes + 1<<20

// Server is the HTTP server for the bubble API.
type Server struct {
	cfg        *config.Config
	service    *domain.BubbleService
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server over the given service.
func NewServer(cfg *config.Config, service *domain.BubbleService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      withLogging(logger, s.Routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Routes builds the request mux. Exposed for handler tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bubble/upload", s.handleBubbleUpload)
	mux.HandleFunc("GET /bubble/feed", s.handleBubbleFeed)
	mux.HandleFunc("POST /bubble/impression", s.handleImpression)
	mux.HandleFunc("POST /api/audio/upload", s.handleAudioUpload)
	mux.HandleFunc("GET /api/audio/feed", s.handleAudioFeed)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBubbleUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		metrics.Uploads.WithLabelValues(domain.KindBubble, "bad_request").Inc()
		return
	}

	post, err := s.service.CreateBubble(r.Context(), up)
	if err != nil {
		s.writeUploadError(w, domain.KindBubble, err)
		return
	}

	metrics.Uploads.WithLabelValues(domain.KindBubble, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"bubble": post})
}

func (s *Server) handleAudioUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		metrics.Uploads.WithLabelValues(domain.KindAudio, "bad_request").Inc()
		return
	}
	up.Username = r.FormValue("username")

	post, err := s.service.CreateAudioPost(r.Context(), up)
	if err != nil {
		s.writeUploadError(w, domain.KindAudio, err)
		return
	}

	metrics.Uploads.WithLabelValues(domain.KindAudio, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// readUpload parses the multipart body into a domain.Upload. On failure it
// writes the error response and returns ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (domain.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.logger.Warn("upload without audio file", "error", err)
		writeError(w, http.StatusBadRequest, "No audio file received")
		return domain.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Warn("failed to read audio file", "error", err)
		writeError(w, http.StatusBadRequest, "No audio file received")
		return domain.Upload{}, false
	}

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	return domain.Upload{
		Data:        data,
		MimeType:    header.Header.Get("Content-Type"),
		AnonymousID: r.FormValue("anonymousId"),
		Avatar:      r.FormValue("avatar"),
		Duration:    duration,
	}, true
}

func (s *Server) writeUploadError(w http.ResponseWriter, kind string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		// The validation error text is client-facing: it names what was
		// wrong (missing payload, oversized clip, disallowed type).
		metrics.Uploads.WithLabelValues(kind, "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		metrics.Uploads.WithLabelValues(kind, "not_configured").Inc()
		writeError(w, http.StatusServiceUnavailable, "Cloudinary not configured")
	default:
		s.logger.Error("upload failed", "kind", kind, "error", err)
		metrics.Uploads.WithLabelValues(kind, "error").Inc()
		writeError(w, http.StatusInternalServerError, "Upload failed")
	}
}

func (s *Server) handleBubbleFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ComposeFeed(r.Context())
	if err != nil {
		s.logger.Error("feed failed", "error", err)
		metrics.FeedRequests.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "Feed failed")
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	metrics.FeedRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"bubbles": posts})
}

func (s *Server) handleAudioFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.AudioFeed(r.Context())
	if err != nil {
		s.logger.Error("audio feed failed", "error", err)
		metrics.FeedRequests.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "Feed failed")
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	metrics.FeedRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handleImpression(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	// Body is optional; old clients post an empty payload.
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.service.RecordImpression(body.ID)
	metrics.Impressions.Inc()
	writeJSON(w, http.StatusOK, map[string]any{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
