// Command edge-agent runs the durable SMTP journaling sidecar: it
// accepts inbound SMTP traffic, extracts and encrypts message content,
// buffers it locally, and syncs it to Core (§4.2).
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openarchive/archive/internal/adapters/coreclient"
	"github.com/openarchive/archive/internal/adapters/smtp"
	"github.com/openarchive/archive/internal/config"
	"github.com/openarchive/archive/internal/edge/buffer"
	"github.com/openarchive/archive/internal/edge/sync"
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

	buf, err := buffer.Open(cfg.BufferDBPath)
	if err != nil {
		log.Fatal("open local buffer", zap.Error(err))
	}
	defer buf.Close()

	allowlist := smtp.NewAllowlist(cfg.SMTPAllowCIDRs)
	srv := smtp.NewServer(cfg.SMTPAddr, allowlist, buf, log)

	client := coreclient.New(cfg.CoreAPIURL, cfg.APIKey, cfg.HTTPTimeout)
	syncer := sync.NewSyncer(buf, client, log, 50)

	go func() {
		log.Info("edge agent listening", zap.String("addr", cfg.SMTPAddr))
		if err := srv.ListenAndServe(); err != nil {
			log.Error("smtp server stopped", zap.Error(err))
		}
	}()

	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		if err := syncer.Run(ctx, 15*time.Second); err != nil {
			log.Error("sync loop exited", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down edge agent")
	srv.Close()
	<-syncDone
}
