package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/checksum"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/dedup"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/fetcher"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/notify"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/scraper"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/storage"
)

// Placeholder description when the detail-page fetch fails. The listing
// is reported anyway; it already passed dedup.
const descriptionUnavailable = "详情获取失败"

// Notifier delivers one formatted notification.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Pipeline drives one listing domain end to end: fetch pages, extract,
// dedup, enrich, sort, notify, persist state. It exclusively owns the
// domain's dedup state; RunOnce must not be called concurrently.
type Pipeline struct {
	cfg       *config.Config
	domain    config.DomainConfig
	logger    *observability.Logger
	fetcher   *fetcher.Fetcher
	extractor *scraper.Extractor
	parser    *scraper.DateParser
	sorter    *scraper.Sorter
	store     *dedup.FileStore
	enricher  *Enricher
	notifier  Notifier           // nil disables notifications
	archive   storage.Repository // nil disables archiving
	hasher    *checksum.Generator

	known dedup.Set
}

func NewPipeline(
	cfg *config.Config,
	domain config.DomainConfig,
	logger *observability.Logger,
	f *fetcher.Fetcher,
	extractor *scraper.Extractor,
	parser *scraper.DateParser,
	sorter *scraper.Sorter,
	store *dedup.FileStore,
	enricher *Enricher,
	notifier Notifier,
	archive storage.Repository,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		domain:    domain,
		logger:    logger,
		fetcher:   f,
		extractor: extractor,
		parser:    parser,
		sorter:    sorter,
		store:     store,
		enricher:  enricher,
		notifier:  notifier,
		archive:   archive,
		hasher:    checksum.NewGenerator(),
		known:     store.Load(),
	}
}

type RunStats struct {
	PagesFetched int
	PagesFailed  int
	Candidates   int
	NewListings  int
	Notified     bool
}

// RunOnce executes one monitoring run and persists the updated identity
// set. State is saved even when notification failed, so a transient
// delivery error never reports the same listing twice. A panic anywhere
// in the run leaves the pre-run set in place for the next interval.
func (p *Pipeline) RunOnce(ctx context.Context) *RunStats {
	p.logger.Info("Monitoring run started", "domain", p.domain.Name, "label", p.domain.Label)

	stats := &RunStats{}
	p.known = p.run(ctx, stats)

	if err := p.store.Save(p.known); err != nil {
		p.logger.Error("Failed to save state file, prior state kept",
			"domain", p.domain.Name,
			"error", err.Error(),
		)
	}

	p.logger.Info("Monitoring run finished",
		"domain", p.domain.Name,
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed,
		"candidates", stats.Candidates,
		"new_listings", stats.NewListings,
		"notified", stats.Notified,
	)
	return stats
}

// run walks the pipeline stages and returns the updated identity set.
// On panic it returns the pre-run set unchanged so nothing is marked
// seen.
func (p *Pipeline) run(ctx context.Context, stats *RunStats) (updated dedup.Set) {
	updated = p.known
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Run aborted, state unchanged until next interval",
				"domain", p.domain.Name,
				"panic", fmt.Sprint(r),
			)
			updated = p.known
		}
	}()

	candidates := p.fetchCandidates(ctx, stats)
	stats.Candidates = len(candidates)

	newListings, updatedSet := dedup.FilterNew(candidates, p.known)
	stats.NewListings = len(newListings)

	for _, listing := range newListings {
		p.logger.Info("New listing found", "domain", p.domain.Name, "title", listing.Title)
	}

	p.enrich(ctx, newListings)
	newListings = p.sorter.SortByDateDesc(newListings)

	if len(newListings) == 0 {
		shortTerms := p.domain.Keywords
		if len(shortTerms) > 3 {
			shortTerms = shortTerms[:3]
		}
		p.logger.Info("No new listings this run",
			"domain", p.domain.Name,
			"keywords", fmt.Sprintf("%v", shortTerms),
		)
		return updatedSet
	}

	summary := p.sorter.Summarize(newListings, p.domain.Keywords)
	p.logger.Info("New listings summary",
		"domain", p.domain.Name,
		"summary", summary.Render(),
	)

	if p.notifier != nil {
		subject, body := notify.BuildEmail(
			p.domain.SubjectPrefix, p.domain.Label,
			newListings, p.domain.Keywords, summary, time.Now(),
		)
		if err := p.notifier.Send(ctx, subject, body); err != nil {
			// Listings stay marked as seen; we prefer a missed mail over
			// repeated notifications.
			p.logger.Error("Notification failed",
				"domain", p.domain.Name,
				"error", err.Error(),
			)
		} else {
			stats.Notified = true
		}
	}

	p.archiveListings(ctx, newListings)

	return updatedSet
}

// fetchCandidates fetches every configured page and extracts matching
// rows. A failed page contributes zero records; the run continues. A
// politeness delay separates successive page fetches.
func (p *Pipeline) fetchCandidates(ctx context.Context, stats *RunStats) []*scraper.Listing {
	var candidates []*scraper.Listing

	for pageNum, pageURL := range p.domain.PageURLs(p.cfg.BaseOrigin) {
		if pageNum > 0 {
			select {
			case <-time.After(p.cfg.GetPolitenessDelay()):
			case <-ctx.Done():
				return candidates
			}
		}

		resp, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			stats.PagesFailed++
			p.logger.Warn("Page fetch failed, skipping",
				"domain", p.domain.Name,
				"page", pageNum+1,
				"url", pageURL,
				"error", err.Error(),
			)
			continue
		}

		listings, err := p.extractor.ParseListing(string(resp.Body), p.domain.Keywords)
		if err != nil {
			stats.PagesFailed++
			p.logger.Warn("Page parse failed, skipping",
				"domain", p.domain.Name,
				"page", pageNum+1,
				"error", err.Error(),
			)
			continue
		}

		stats.PagesFetched++
		candidates = append(candidates, listings...)
	}

	return candidates
}

// enrich attaches detail-page text to each new listing. A failed fetch
// degrades to a placeholder; enrichment never drops a listing.
func (p *Pipeline) enrich(ctx context.Context, listings []*scraper.Listing) {
	for _, listing := range listings {
		desc, err := p.enricher.Describe(ctx, listing.Link)
		if err != nil {
			p.logger.Warn("Failed to fetch listing detail",
				"domain", p.domain.Name,
				"link", listing.Link,
				"error", err.Error(),
			)
			listing.Description = descriptionUnavailable
			continue
		}
		listing.Description = desc
	}
}

// archiveListings best-effort saves notified listings to the archive
// repository when one is configured.
func (p *Pipeline) archiveListings(ctx context.Context, listings []*scraper.Listing) {
	if p.archive == nil {
		return
	}

	now := time.Now().UTC()
	for _, listing := range listings {
		postedAt, _ := p.parser.Parse(listing.DateRaw)

		record := &storage.NotifiedListing{
			Domain:      p.domain.Name,
			Title:       listing.Title,
			Link:        listing.Link,
			Author:      listing.Author,
			DateRaw:     listing.DateRaw,
			PostedAt:    postedAt,
			Description: listing.Description,
			CheckSum:    p.hasher.GenerateContentHash(listing.Link, listing.Title, listing.Description, postedAt),
			NotifiedAt:  now,
		}

		if _, err := p.archive.SaveNotified(ctx, record); err != nil {
			p.logger.Warn("Failed to archive listing",
				"domain", p.domain.Name,
				"title", listing.Title,
				"error", err.Error(),
			)
		}
	}
}

// Known exposes a copy of the current identity set, for tests and status
// reporting.
func (p *Pipeline) Known() dedup.Set {
	out := make(dedup.Set, len(p.known))
	for id := range p.known {
		out[id] = struct{}{}
	}
	return out
}
