package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediahub/internal/util"
	"mediahub/services/media/internal/app"
	"mediahub/services/media/internal/storage"
)

const (
	mediaPrefix   = "/api/media"
	uploadsPrefix = "/uploads/"
	formOverhead  = 1 << 20
)

// Limiter throttles expensive write endpoints per client.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Blobs          storage.Blobs
	Limiter        Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
	MaxUploadBytes int64
	// FileBaseURL overrides the request origin in generated /uploads links.
	FileBaseURL string
}

// Server exposes the media REST API.
type Server struct {
	app            *app.App
	blobs          storage.Blobs
	limiter        Limiter
	trusted        *util.TrustedProxies
	cors           *util.CORSPolicy
	mux            *http.ServeMux
	maxUploadBytes int64
	fileBaseURL    string
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Blobs == nil {
		return nil, errors.New("blob storage required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 2 << 30
	}
	s := &Server{
		app:            cfg.App,
		blobs:          cfg.Blobs,
		limiter:        cfg.Limiter,
		trusted:        cfg.TrustedProxies,
		cors:           util.NewCORSPolicy(cfg.CORSOrigins),
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
		fileBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.FileBaseURL), "/"),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("media", util.WithSecurityHeaders(s.cors.Wrap(withMetrics(s.mux)))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc(uploadsPrefix, s.handleUpload)

	s.mux.HandleFunc(mediaPrefix, s.handleMediaCollection)
	s.mux.HandleFunc(mediaPrefix+"/", s.handleMediaPath)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, uploadsPrefix)
	if name == "" || strings.Contains(name, "/") {
		notFound(w, "not found")
		return
	}
	s.blobs.ServeBlob(w, r, name)
}

func (s *Server) handleMediaCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListMedia(w, r)
	case http.MethodPost:
		if !s.allow(w, r) {
			return
		}
		s.handleCreateMedia(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/media/{id}, /api/media/export/videos, /api/media/import/videos
func (s *Server) handleMediaPath(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, mediaPrefix+"/"), "/")
	if path == "" {
		s.handleMediaCollection(w, r)
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 2 && parts[0] == "export" && parts[1] == "videos":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleExportVideos(w, r)
		return
	case len(parts) == 2 && parts[0] == "import" && parts[1] == "videos":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if !s.allow(w, r) {
			return
		}
		s.handleImportVideos(w, r)
		return
	case len(parts) != 1:
		notFound(w, "not found")
		return
	}

	id := parts[0]
	switch r.Method {
	case http.MethodGet:
		item, err := s.app.GetMedia(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		if !s.allow(w, r) {
			return
		}
		s.handleUpdateMedia(w, r, id)
	case http.MethodDelete:
		if err := s.app.DeleteMedia(r.Context(), id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := s.app.ListMedia(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	fields, upload, cleanup, err := s.readMediaRequest(w, r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	defer cleanup()
	item, err := s.app.CreateMedia(r.Context(), fields.createInput(), upload, s.baseURL(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request, id string) {
	fields, upload, cleanup, err := s.readMediaRequest(w, r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	defer cleanup()
	patch, err := fields.patch()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	item, err := s.app.UpdateMedia(r.Context(), id, patch, upload, s.baseURL(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleExportVideos(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.app.ExportVideos(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportVideos(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			s.writeAppError(w, r, err)
			return
		}
		s.writeAppError(w, r, app.ErrNoFile)
		return
	}
	defer removeMultipart(r)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeAppError(w, r, app.ErrNoFile)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	n, err := s.app.ImportVideos(r.Context(), data)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Imported %d videos.", n),
		"imported": n,
	})
}

func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	ok, retryAfter := s.limiter.Allow(r.Context(), util.ClientIP(r, s.trusted))
	if ok {
		return true
	}
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
	}
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

// baseURL is the public origin used for upload links.
func (s *Server) baseURL(r *http.Request) string {
	if s.fileBaseURL != "" {
		return s.fileBaseURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrNotFound):
		notFound(w, "Media not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, app.ErrUnsupportedType), errors.Is(err, app.ErrNoFile), errors.Is(err, app.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, err.Error())
	case isTooLarge(err):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	default:
		util.LoggerFromContext(r.Context()).Error("media request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Message:   msg,
		Code:      errorCodeForMedia(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}

func errorCodeForMedia(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "media not found":
		return "MEDIA_NOT_FOUND"
	case message == "file too large":
		return "MEDIA_FILE_TOO_LARGE"
	case message == "no file uploaded":
		return "MEDIA_FILE_REQUIRED"
	case strings.HasPrefix(message, "only image and video"):
		return "MEDIA_UNSUPPORTED_FILE_TYPE"
	case strings.HasPrefix(message, "invalid json"):
		return "MEDIA_INVALID_IMPORT"
	case strings.HasPrefix(message, "media validation failed"):
		return "MEDIA_VALIDATION_FAILED"
	case message == "invalid form data", strings.HasPrefix(message, "invalid field"):
		return "MEDIA_INVALID_REQUEST"
	case message == "too many requests":
		return "SYSTEM_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "MEDIA_INVALID_REQUEST"
	case http.StatusNotFound:
		return "MEDIA_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "MEDIA_FILE_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= 500 {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "SYSTEM_REQUEST_FAILED"
	}
}
