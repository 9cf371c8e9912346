// Package http exposes the file lifecycle operations as a JSON API and serves
// the local object store's presigned blob route.
//
// # Routes
//
//	POST   /upload                    upload intent
//	GET    /files?limit=&cursor=      list the caller's files, newest first
//	GET    /files/{fileId}/download   download URL
//	DELETE /files/{fileId}            delete
//	POST   /files/{fileId}/confirm    mark an upload confirmed (when enabled)
//	GET    /healthz                   liveness
//	GET    /metrics                   Prometheus exposition (when a Gatherer is set)
//	PUT    {prefix}/*                 local blob upload (presigned)
//	GET    {prefix}/*                 local blob download (presigned)
//
// Successful API responses are flat JSON objects with "success" and
// "message" plus the operation's fields. Errors use ErrorResponse and are
// mapped from the filevault sentinels in HandleError.
//
// # Identity
//
// API routes run behind the middleware built by IdentityMiddleware, which puts
// the caller's owner id on the request context. Two modes exist:
//
//	keys := keybackend.NewMapSecretStore(map[string]string{"default": secret})
//	identity, err := http.IdentityMiddleware(http.IdentityConfig{Mode: "jwt", Keys: keys})
//
//	identity, err := http.IdentityMiddleware(http.IdentityConfig{Mode: "header"})
//
// The header mode trusts X-Authenticated-Subject and must only be exposed
// behind an authorizer that sets and strips it.
//
// # Blob route
//
// BlobHandler verifies AWS Signature V4 presigned query parameters with a
// RequestVerifier before touching the BlobStore:
//
//	verifier := filevault.NewSignatureVerifier("us-east-1", "s3", keys.Find)
//	blobs := http.NewBlobHandler(http.BlobHandlerConfig{
//	    Prefix:   "/blobs",
//	    Store:    gateway.Blobs(),
//	    Verifier: verifier,
//	})
//	handler := http.NewHandler(&http.HandlerConfig{Identity: identity, Blobs: blobs}, service)
//	http.ListenAndServe(":5708", handler.Router())
package http
