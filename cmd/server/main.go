package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"manzil/internal/authclient"
	"manzil/internal/cache"
	"manzil/internal/catalog"
	"manzil/internal/config"
	"manzil/internal/drafts"
	"manzil/internal/ratelimit"
	"manzil/internal/server"
	"manzil/internal/storage"
	"manzil/internal/store"
	"manzil/internal/usertoken"
	"manzil/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	cacheTTL, err := config.ParseCacheTTL(cfg.CacheTTL)
	if err != nil {
		log.Fatalf("failed to parse cache TTL: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse JWT leeway: %v", err)
	}

	var listingStore store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init database: %v", err)
		}
		listingStore = gormStore
	} else {
		slog.Warn("databaseURL is empty, using volatile in-memory store")
		listingStore = store.NewMemoryStore()
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("failed to load property catalog: %v", err)
	}

	draftStore, err := drafts.NewStore(cfg.DraftsDir)
	if err != nil {
		log.Fatalf("failed to init draft storage: %v", err)
	}

	listingCache, err := cache.NewListingCache(cfg.RedisAddr, cfg.RedisPassword, cacheTTL)
	if err != nil {
		log.Fatalf("failed to init listing cache: %v", err)
	}

	var submitLimiter *ratelimit.FixedWindowLimiter
	if cfg.SubmitRateLimitPerMinute > 0 {
		submitLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "manzil:ratelimit:submit",
			cfg.SubmitRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioPublicBaseURL, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object storage: %v", err)
		}
	} else {
		slog.Warn("minioEndpoint is empty, image uploads are disabled")
	}

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	httpServer := server.New(server.Config{
		Store:                  listingStore,
		Catalog:                cat,
		Drafts:                 draftStore,
		Auth:                   authclient.NewClient(cfg.AuthServiceURL),
		TokenVerifier:          verifier,
		Objects:                objects,
		Cache:                  listingCache,
		SubmitLimiter:          submitLimiter,
		MaxUploadBytes:         cfg.MaxUploadBytes,
		AllowedImageExtensions: cfg.AllowedImageExtensions,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("manzil server listening", "addr", addr, "catalog_size", cat.Len())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
