package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/metrics"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Service is the part of *filevault.Service the API routes call.
type Service interface {
	UploadIntent(ctx context.Context, req filevault.UploadRequest) (filevault.UploadResult, error)
	ListFiles(ctx context.Context, q filevault.ListQuery) (filevault.FileList, error)
	DownloadTarget(ctx context.Context, fileID string) (filevault.DownloadResult, error)
	DeleteFile(ctx context.Context, fileID string) (filevault.FileSummary, error)
	ConfirmUpload(ctx context.Context, fileID string) (filevault.FileSummary, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// Identity authenticates API routes. Nil rejects every API request.
	Identity func(http.Handler) http.Handler
	// Blobs serves the local object store. Nil disables the blob route.
	Blobs *BlobHandler
	// Metrics records per-route request metrics. Nil disables them.
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer     prometheus.Gatherer
	CORS         CORSConfig
	MaxBodyBytes int64
}

// Handler provides the HTTP API over a Service.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	cfg := *config
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		config:  cfg,
		service: service,
	}
}

// Router returns an http.Handler with all routes configured.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(MetricsMiddleware(h.config.Metrics))
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "route_not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/healthz", h.handleHealth)
	if h.config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.config.Gatherer, promhttp.HandlerOpts{}))
	}

	if h.config.Blobs != nil {
		prefix := h.config.Blobs.Prefix()
		r.Put(prefix+"/*", h.config.Blobs.ServePut)
		r.Get(prefix+"/*", h.config.Blobs.ServeGet)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireIdentity(h.config.Identity))
		r.Post("/upload", h.handleUpload)
		r.Get("/files", h.handleList)
		r.Get("/files/{fileId}/download", h.handleDownload)
		r.Delete("/files/{fileId}", h.handleDelete)
		r.Post("/files/{fileId}/confirm", h.handleConfirm)
	})

	return r
}

type uploadResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	UploadURL string    `json:"uploadUrl"`
	FileID    string    `json:"fileId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type listResponse struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	Files      []filevault.FileSummary `json:"files"`
	Count      int                     `json:"count"`
	NextCursor string                  `json:"nextCursor,omitempty"`
}

type downloadResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	DownloadURL string    `json:"downloadUrl"`
	FileName    string    `json:"fileName"`
	FileSize    int64     `json:"fileSize"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type deletedFile struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

type deleteResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	DeletedFile deletedFile `json:"deletedFile"`
}

type confirmResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	File    filevault.FileSummary `json:"file"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req filevault.UploadRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object")
		return
	}

	result, err := h.service.UploadIntent(r.Context(), req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		Message:   "Upload URL generated successfully",
		UploadURL: result.UploadURL,
		FileID:    result.FileID,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := filevault.ListQuery{Cursor: r.URL.Query().Get("cursor")}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
			return
		}
		query.Limit = max(1, min(filevault.MaxListLimit, limit))
	}

	list, err := h.service.ListFiles(r.Context(), query)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Message:    fmt.Sprintf("Found %d files", len(list.Files)),
		Files:      list.Files,
		Count:      len(list.Files),
		NextCursor: list.NextCursor,
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DownloadTarget(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, downloadResponse{
		Success:     true,
		Message:     "Download URL generated successfully",
		DownloadURL: result.DownloadURL,
		FileName:    result.FileName,
		FileSize:    result.FileSize,
		ExpiresAt:   result.ExpiresAt,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DeleteFile(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "File deleted successfully",
		DeletedFile: deletedFile{
			FileID:   summary.FileID,
			FileName: summary.FileName,
		},
	})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ConfirmUpload(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, confirmResponse{
		Success: true,
		Message: "Upload confirmed",
		File:    summary,
	})
}

// decodeJSON reads at most MaxBodyBytes into dst. An empty body leaves dst
// untouched so request defaults apply.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON object")
	}

	return nil
}
