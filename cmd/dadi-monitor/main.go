package main

import (
	"context"
	"log"
	"os"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/app"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/dedup"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/fetcher"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/normalize"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/notify"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/scraper"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/storage"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/storage/mssql"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability)
	defer func() { _ = logger.Close() }()

	// Shared collaborators; each domain gets its own pipeline and state.
	f := fetcher.NewFetcher(cfg, logger)
	extractor := scraper.NewExtractor(cfg.Selectors, cfg.BaseOrigin)
	parser := scraper.NewDateParser()
	sorter := scraper.NewSorter(parser)
	normalizer := normalize.NewNormalizer(cfg.Normalize, cfg.Selectors.PostBody)
	enricher := app.NewEnricher(f, normalizer)

	var notifier app.Notifier
	if cfg.Email.Enabled {
		notifier = notify.NewEmailSender(cfg.Email, logger)
	} else {
		logger.Warn("Email notifications disabled; new listings are only logged")
	}

	var archive storage.Repository
	if cfg.Archive.Enabled {
		repo, err := mssql.NewRepository(cfg.Archive.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			log.Fatalf("Failed to connect to archive database: %v", err)
		}
		defer func() { _ = repo.Close() }()
		archive = repo
	}

	sched := app.NewScheduler(logger)

	for _, domain := range cfg.Domains {
		store := dedup.NewFileStore(domain.StateFile, logger)
		pipeline := app.NewPipeline(cfg, domain, logger, f, extractor, parser, sorter, store, enricher, notifier, archive)

		task := func(ctx context.Context) { pipeline.RunOnce(ctx) }

		switch cfg.Scheduler.Mode {
		case "oneshot":
			task(context.Background())
		case "cron":
			if err := sched.Cron(cfg.Scheduler.CronExpr, domain.Name, task); err != nil {
				log.Fatalf("Failed to schedule domain %s: %v", domain.Name, err)
			}
			logger.Info("Domain scheduled", "domain", domain.Name, "cron", cfg.Scheduler.CronExpr)
		default:
			sched.Every(domain.Interval(), domain.Name, task)
			logger.Info("Domain scheduled", "domain", domain.Name, "interval", domain.Interval().String())
		}
	}

	if cfg.Scheduler.Mode == "oneshot" {
		logger.Info("Oneshot run complete")
		return
	}

	app.WaitForShutdown(logger)
	sched.Stop()
	logger.Info("Monitor stopped")
}
