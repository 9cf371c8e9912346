package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/filesystem"
	"github.com/sagarc03/filevault/metrics"
)

// BlobStore is the byte storage behind the local object gateway.
// *filesystem.Store implements it.
type BlobStore interface {
	Open(ctx context.Context, key string) (*os.File, filesystem.BlobInfo, error)
	Write(ctx context.Context, key string, content io.Reader) (filesystem.BlobInfo, error)
}

// BlobHandler serves PUT and GET on presigned URLs issued by the local
// gateway. Each request must carry a valid signature for its method, path
// and signed headers.
type BlobHandler struct {
	prefix   string
	store    BlobStore
	verify   func(http.Handler) http.Handler
	metrics  *metrics.Metrics
	maxBytes int64
}

type BlobHandlerConfig struct {
	Prefix   string // route prefix the URLs are signed under, e.g. "/blobs"
	Store    BlobStore
	Verifier RequestVerifier
	Metrics  *metrics.Metrics // optional
	MaxBytes int64            // upload size cap, 0 for none
}

func NewBlobHandler(cfg BlobHandlerConfig) *BlobHandler {
	prefix := "/" + strings.Trim(cfg.Prefix, "/")
	return &BlobHandler{
		prefix:   prefix,
		store:    cfg.Store,
		verify:   SignedURLMiddleware(cfg.Verifier),
		metrics:  cfg.Metrics,
		maxBytes: cfg.MaxBytes,
	}
}

// Prefix returns the route prefix without a trailing slash.
func (b *BlobHandler) Prefix() string {
	return b.prefix
}

func (b *BlobHandler) ServePut(w http.ResponseWriter, r *http.Request) {
	b.verify(http.HandlerFunc(b.handlePut)).ServeHTTP(w, r)
}

func (b *BlobHandler) ServeGet(w http.ResponseWriter, r *http.Request) {
	b.verify(http.HandlerFunc(b.handleGet)).ServeHTTP(w, r)
}

func (b *BlobHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := b.key(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_key", "Invalid object key")
		return
	}

	var body io.Reader = r.Body
	if b.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, b.maxBytes)
	}

	info, err := b.store.Write(r.Context(), key, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Object too large")
			return
		}
		HandleError(w, r, err)
		return
	}

	if b.metrics != nil {
		b.metrics.BlobBytesIn.Add(float64(info.Size))
	}

	w.Header().Set("ETag", `"`+info.ETag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (b *BlobHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := b.key(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_key", "Invalid object key")
		return
	}

	f, info, err := b.store.Open(r.Context(), key)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Header().Set("Content-Type", info.ContentType)

	http.ServeContent(ww, r, key, info.ModTime, f)

	if b.metrics != nil {
		b.metrics.BlobBytesOut.Add(float64(ww.BytesWritten()))
	}
}

// key extracts the object key from the request path. Every segment must be
// non-empty and must not be "." or "..".
func (b *BlobHandler) key(r *http.Request) (string, bool) {
	key, ok := strings.CutPrefix(r.URL.Path, b.prefix+"/")
	if !ok || key == "" {
		return "", false
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", false
		}
	}

	return key, true
}

var _ BlobStore = (*filesystem.Store)(nil)
var _ RequestVerifier = (*filevault.SignatureVerifier)(nil)
