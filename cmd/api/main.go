package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/config"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/auth"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/bootstrap"
	designshttp "github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/http"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/provider"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/repository"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/service"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/storage"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/janitor"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	app, err := auth.InitializeApp(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase app: %v", err)
	}

	authClient, err := auth.AuthClient(app)
	if err != nil {
		if cfg.App.Environment == "production" {
			log.Fatalf("firebase auth: %v", err)
		}
		log.Printf("firebase auth unavailable, using development auth: %v", err)
		authClient = nil
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

	var cache *repository.ListCache
	if cfg.Redis.Addr != "" {
		rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			log.Printf("redis unavailable, list cache disabled: %v", err)
		} else {
			defer rdb.Close()
			cache = repository.NewListCache(rdb)
		}
	}

	var (
		events *usage.Repo
		pool   *pgxpool.Pool
	)
	if cfg.Database.DSN != "" {
		pool, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
		if err != nil {
			log.Printf("db unavailable, usage events disabled: %v", err)
			pool = nil
		} else {
			defer pool.Close()
			events = usage.NewRepo(pool)
		}
	}

	repo := repository.NewDesignRepo(fsClient)
	persister := service.NewPersister(store)
	designSvc := service.NewDesignService(repo, persister, store, cache)

	client := provider.NewClient(provider.Options{
		APIToken:     cfg.Provider.APIToken,
		BaseURL:      cfg.Provider.BaseURL,
		ModelVersion: cfg.Provider.ModelVersion,
		Timeout:      cfg.Provider.Timeout,
	})

	handler := designshttp.NewHandler(client, designSvc, events, cfg.Provider.APIToken != "")

	janitor.NewScheduler(janitor.NewAudit(store, repo)).Start()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    "dreamcanvas-backend",
		Version:        cfg.App.Version,
		StorageBackend: cfg.Storage.Backend,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             pool,
		AuthClient:     authClient,
		Designs:        handler,
	})

	log.Printf("listening on :%s (storage=%s env=%s)", cfg.Server.Port, cfg.Storage.Backend, cfg.App.Environment)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
