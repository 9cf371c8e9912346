// Package filevault keeps file bytes in an object store and file metadata in a
// separate metadata store, and coordinates the two per owner.
//
// Callers never move bytes through this service. An upload intent records a
// pending file and returns a presigned PUT URL; a download returns a presigned
// GET URL. Both URLs expire after DefaultURLTTL.
//
// # Key Components
//
//   - Service: the file lifecycle controller (UploadIntent, ListFiles, DownloadTarget, DeleteFile)
//   - MetadataStore: owner-scoped record persistence (see the database package)
//   - ObjectGateway: URL issuance and object deletion (see the objectstore package)
//   - OrphanLedger: objects whose record is gone but whose delete failed
//   - WithOwner / OwnerFromContext: the trusted owner identity carried on a context
//   - Presigner / SignatureVerifier: AWS Signature V4 query signing for the local gateway
//
// # Delete ordering
//
// DeleteFile removes the metadata record before the object. If the object delete
// then fails, the file is already invisible to the owner, so the call reports
// success and the storage key is handed to the OrphanLedger for a later Sweep.
//
// # Example Usage
//
//	svc, err := filevault.NewService(store, gateway, filevault.ServiceConfig{Ledger: ledger})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = filevault.WithOwner(ctx, "user-123")
//	intent, err := svc.UploadIntent(ctx, filevault.UploadRequest{FileName: "a.pdf", FileSize: 2048})
package filevault
