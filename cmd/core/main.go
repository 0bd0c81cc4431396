// Command core runs the central archive process: it receives
// synchronized batches from edge agents, maintains the search index and
// hash-chained audit log, and serves the interactive read/admin API.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/adapters/search"
	"github.com/openarchive/archive/internal/adapters/storage"
	"github.com/openarchive/archive/internal/application"
	"github.com/openarchive/archive/internal/config"
	"github.com/openarchive/archive/internal/domain/crypto"
	"github.com/openarchive/archive/internal/domain/detection"
	"github.com/openarchive/archive/internal/domain/tenant"
	"github.com/openarchive/archive/internal/httpapi"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	relStore, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer relStore.Close()

	if err := relStore.InitSchema(ctx); err != nil {
		log.Fatal("init schema", zap.Error(err))
	}

	masterKey := crypto.DeriveMasterKey(cfg.MasterKey)
	cipher, err := crypto.NewBlobCipher(masterKey)
	if err != nil {
		log.Fatal("build blob cipher", zap.Error(err))
	}

	blobs, err := storage.NewMinioBlobStore(ctx, cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey, cfg.BlobBucket, cfg.BlobUseTLS, cipher)
	if err != nil {
		log.Fatal("connect minio", zap.Error(err))
	}

	index, err := search.NewMeilisearchIndex(ctx, cfg.IndexEndpoint, cfg.IndexAPIKey, cfg.IndexName)
	if err != nil {
		log.Fatal("connect meilisearch", zap.Error(err))
	}

	resolver := tenant.NewResolver(relStore, cfg.DefaultOrg, 30*time.Second)
	signer := crypto.NewSigner(cfg.SigningKey)

	// The detector runs with no internal or trusted domains configured;
	// a production deployment would source these from the organizations
	// table instead.
	detector := detection.NewDetector(nil, nil)

	ingress := application.NewIngressService(blobs, index, resolver, detector, signer, log)
	retrieval := application.NewRetrievalService(blobs, index, signer)
	audit := application.NewAuditService(relStore, log)
	holds := application.NewHoldService(relStore, index)
	cases := application.NewCaseService(relStore)
	analytics := application.NewAnalyticsService(index, relStore)
	retention := application.NewRetentionService(relStore, index, blobs, holds, log)

	audit.Start(ctx)
	defer audit.Stop()
	retention.Start(ctx)
	defer retention.Stop()

	router := httpapi.NewRouter(httpapi.Deps{
		Ingress:   ingress,
		Retrieval: retrieval,
		Audit:     audit,
		Holds:     holds,
		Cases:     cases,
		Analytics: analytics,
		Retention: retention,
		Index:     index,
		Resolver:  resolver,
		APIKey:    cfg.APIKey,
		Log:       log,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("core listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
	log.Info("core stopped")
}
