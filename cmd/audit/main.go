package main

import (
	"context"
	"log"
	"time"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/config"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/auth"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/bootstrap"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/repository"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/storage"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/janitor"
)

// One-shot orphan audit. Reports blobs without a matching design record
// and records whose blob is gone; it never deletes anything.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	app, err := auth.InitializeApp(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase app: %v", err)
	}

	fsClient, err := bootstrap.OpenFirestore(ctx, app)
	if err != nil {
		log.Fatalf("firestore: %v", err)
	}
	defer fsClient.Close()

	var store storage.ObjectStore
	switch cfg.Storage.Backend {
	case "s3":
		s3Client, err := bootstrap.OpenS3(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		store = storage.NewS3Store(s3Client, cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3PublicURL)
	default:
		gcsClient, err := bootstrap.OpenStorage(ctx, cfg.Firebase)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		defer gcsClient.Close()
		store = storage.NewFirebaseStore(gcsClient, cfg.Firebase.StorageBucket)
	}

	audit := janitor.NewAudit(store, repository.NewDesignRepo(fsClient))

	report, err := audit.Run(ctx)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}

	log.Printf("audit complete: blobs=%d records=%d orphans=%d dangling=%d",
		report.Blobs, report.Records, len(report.Orphans), len(report.DanglingAt))
	for _, p := range report.Orphans {
		log.Printf("orphan blob: %s", p)
	}
	for _, p := range report.DanglingAt {
		log.Printf("dangling record path: %s", p)
	}
}
