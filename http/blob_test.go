package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/filesystem"
	fvhttp "github.com/sagarc03/filevault/http"
	"github.com/sagarc03/filevault/keybackend"
	"github.com/sagarc03/filevault/metrics"
	"github.com/sagarc03/filevault/objectstore"
	"github.com/sagarc03/filevault/objectstore/local"
)

const (
	blobAccessKey = "FVBLOBTEST"
	blobSecretKey = "blob-secret"
)

type blobFixture struct {
	server  *httptest.Server
	gateway *local.Gateway
	metrics *metrics.Metrics
}

func newBlobFixture(t *testing.T, maxBytes int64) *blobFixture {
	t.Helper()

	root, err := os.OpenRoot(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	m := metrics.New(prometheus.NewRegistry())
	store := filesystem.NewStore(root)
	verifier := filevault.NewSignatureVerifier("us-east-1", "s3", func(ak string) (string, bool) {
		return blobSecretKey, ak == blobAccessKey
	})

	blobs := fvhttp.NewBlobHandler(fvhttp.BlobHandlerConfig{
		Prefix:   "/blobs/",
		Store:    store,
		Verifier: verifier,
		Metrics:  m,
		MaxBytes: maxBytes,
	})

	service := new(SpyService)
	server := httptest.NewServer(fvhttp.NewHandler(&fvhttp.HandlerConfig{Blobs: blobs}, service).Router())
	t.Cleanup(server.Close)

	presigner, err := filevault.NewPresigner(server.URL+"/blobs", blobAccessKey, blobSecretKey, "us-east-1", "s3")
	require.NoError(t, err)

	return &blobFixture{server: server, gateway: local.New(presigner, store), metrics: m}
}

func (f *blobFixture) put(t *testing.T, rawURL, contentType, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, rawURL, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *blobFixture) get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()

	resp, err := f.server.Client().Get(rawURL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestBlobHandler_PutThenGet(t *testing.T) {
	f := newBlobFixture(t, 0)
	ctx := context.Background()
	key := "alice/" + testFileID + "/my report.pdf"

	uploadURL, err := f.gateway.IssueUploadTarget(ctx, key, "application/pdf", 5*time.Minute)
	require.NoError(t, err)

	resp := f.put(t, uploadURL, "application/pdf", "%PDF-1.7 hello")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	downloadURL, err := f.gateway.IssueDownloadTarget(ctx, key, 5*time.Minute)
	require.NoError(t, err)

	resp, body := f.get(t, downloadURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.7 hello", body)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	assert.Equal(t, float64(14), testutil.ToFloat64(f.metrics.BlobBytesIn))
	assert.Equal(t, float64(14), testutil.ToFloat64(f.metrics.BlobBytesOut))
}

func TestBlobHandler_PutRequiresSignedContentType(t *testing.T) {
	f := newBlobFixture(t, 0)
	uploadURL, err := f.gateway.IssueUploadTarget(context.Background(), "alice/f1/a.pdf", "application/pdf", 5*time.Minute)
	require.NoError(t, err)

	resp := f.put(t, uploadURL, "text/html", "<script>")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.put(t, uploadURL, "", "<script>")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBlobHandler_URLIsBoundToMethodAndKey(t *testing.T) {
	f := newBlobFixture(t, 0)
	ctx := context.Background()

	uploadURL, err := f.gateway.IssueUploadTarget(ctx, "alice/f1/a.pdf", "application/pdf", 5*time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.put(t, uploadURL, "application/pdf", "data").StatusCode)

	// An upload URL cannot be used to read.
	resp, _ := f.get(t, uploadURL)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A download URL cannot be replayed against another key.
	downloadURL, err := f.gateway.IssueDownloadTarget(ctx, "alice/f1/a.pdf", 5*time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(downloadURL)
	require.NoError(t, err)
	u.Path = "/blobs/bob/f1/a.pdf"

	resp, _ = f.get(t, u.String())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBlobHandler_ExpiredURL(t *testing.T) {
	f := newBlobFixture(t, 0)

	presigner, err := filevault.NewPresigner(f.server.URL+"/blobs", blobAccessKey, blobSecretKey, "us-east-1", "s3")
	require.NoError(t, err)
	presigner.Now = func() time.Time { return time.Now().Add(-301 * time.Second) }

	gw := local.New(presigner, nil)
	downloadURL, err := gw.IssueDownloadTarget(context.Background(), "alice/f1/a.pdf", 300*time.Second)
	require.NoError(t, err)

	resp, _ := f.get(t, downloadURL)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBlobHandler_GetMissing(t *testing.T) {
	f := newBlobFixture(t, 0)

	downloadURL, err := f.gateway.IssueDownloadTarget(context.Background(), "alice/f1/never-uploaded.pdf", 5*time.Minute)
	require.NoError(t, err)

	resp, body := f.get(t, downloadURL)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "not_found")
}

func TestBlobHandler_MaxBytes(t *testing.T) {
	f := newBlobFixture(t, 8)

	uploadURL, err := f.gateway.IssueUploadTarget(context.Background(), "alice/f1/a.pdf", "application/pdf", 5*time.Minute)
	require.NoError(t, err)

	resp := f.put(t, uploadURL, "application/pdf", "more than eight bytes")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestBlobHandler_Prefix(t *testing.T) {
	blobs := fvhttp.NewBlobHandler(fvhttp.BlobHandlerConfig{Prefix: "objects/"})
	assert.Equal(t, "/objects", blobs.Prefix())
}

// newOpenedBlobFixture serves blobs the way the server binary does: the
// gateway and verifier both come from objectstore.Open and its signing keys.
func newOpenedBlobFixture(t *testing.T) (*blobFixture, *objectstore.Backend, string) {
	t.Helper()

	server := httptest.NewUnstartedServer(http.NotFoundHandler())
	publicURL := "http://" + server.Listener.Addr().String() + "/blobs"

	backend, err := objectstore.Open(context.Background(), objectstore.Config{
		Type: "local",
		Local: objectstore.LocalConfig{
			Path:      t.TempDir(),
			PublicURL: publicURL,
			Region:    "us-east-1",
			Service:   "s3",
			Keys: keybackend.KeysConfig{Inline: []keybackend.KeyPair{
				{AccessKey: blobAccessKey, SecretKey: blobSecretKey},
			}},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	blobs := fvhttp.NewBlobHandler(fvhttp.BlobHandlerConfig{
		Prefix:   backend.Local.RoutePrefix(),
		Store:    backend.Local.Blobs(),
		Verifier: filevault.NewSignatureVerifier("us-east-1", "s3", backend.SigningKeys.Find),
	})

	server.Config.Handler = fvhttp.NewHandler(&fvhttp.HandlerConfig{Blobs: blobs}, new(SpyService)).Router()
	server.Start()
	t.Cleanup(server.Close)

	return &blobFixture{server: server, gateway: backend.Local}, backend, publicURL
}

func TestBlobHandler_RejectsBearerTokenSecrets(t *testing.T) {
	f, backend, publicURL := newOpenedBlobFixture(t)
	ctx := context.Background()
	key := "bob/" + testFileID + "/payroll.pdf"

	tokenKeys := keybackend.NewMapSecretStore(map[string]string{"default": "token-secret"})
	require.Empty(t, backend.SigningKeys.SharedSecrets(tokenKeys))

	uploadURL, err := f.gateway.IssueUploadTarget(ctx, key, "application/pdf", 5*time.Minute)
	require.NoError(t, err)
	resp := f.put(t, uploadURL, "application/pdf", "%PDF-1.7 bob")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	forger, err := filevault.NewPresigner(publicURL, "default", "token-secret", "us-east-1", "s3")
	require.NoError(t, err)

	forgedGet, err := forger.Presign(http.MethodGet, key, 5*time.Minute, nil)
	require.NoError(t, err)
	resp, body := f.get(t, forgedGet)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, body, "%PDF-1.7 bob")

	signed := http.Header{}
	signed.Set("Content-Type", "application/pdf")
	forgedPut, err := forger.Presign(http.MethodPut, key, 5*time.Minute, signed)
	require.NoError(t, err)
	resp = f.put(t, forgedPut, "application/pdf", "overwritten")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	downloadURL, err := f.gateway.IssueDownloadTarget(ctx, key, 5*time.Minute)
	require.NoError(t, err)
	resp, body = f.get(t, downloadURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.7 bob", body)
}
