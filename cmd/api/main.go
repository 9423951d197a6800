/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sakarnDev/jira-worklog/internal/adapters/jira"
	"github.com/sakarnDev/jira-worklog/internal/config"
	httpapi "github.com/sakarnDev/jira-worklog/internal/http"
	"github.com/sakarnDev/jira-worklog/internal/jobs"
	"github.com/sakarnDev/jira-worklog/internal/logger"
	"github.com/sakarnDev/jira-worklog/internal/repo"
	"github.com/sakarnDev/jira-worklog/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	repository := repo.NewRepository(db, log)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	// Adapters
	jc := jira.NewClient(cfg, log)

	// Services
	cache := services.NewIdentityCache(cfg.IdentityCacheTTL)
	svc := services.New(cfg, log, jc, cache)

	// HTTP server (Gin)
	router := httpapi.NewRouter(cfg, log, svc, repository)

	// Cron
	janitor := jobs.NewJanitor(cfg, log, repository, cache)
	janitor.Start()
	defer janitor.Stop()

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	time.Sleep(500 * time.Millisecond)
}
