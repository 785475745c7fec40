package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/normalize"
	"EstateScanner/internal/portal"
	"EstateScanner/internal/ports"
)

var leadingSizeExpr = regexp.MustCompile(`\d+`)

// CrawlStats aggregates the per-unit outcomes of one crawl so callers can
// report deterministic counts.
type CrawlStats struct {
	Pages       int `json:"pages"`
	Collected   int `json:"collected"`
	Unchanged   int `json:"unchanged"`
	PreFiltered int `json:"prefiltered"`
	Queued      int `json:"queued"`
	Fetched     int `json:"fetched"`
	Failed      int `json:"failed"`
}

// Orchestrator walks the portal's paginated index for a filter, decides which
// listings actually need a detail fetch, drives the worker pool, and commits
// the result as one batch.
type Orchestrator struct {
	baseURL  string
	pageSize int
	cache    *ResponseCache
	pool     *FetchPool
	repo     ports.ListingRepository
	client   *http.Client
	logger   *slog.Logger
}

// NewOrchestrator wires the crawl pipeline. pageSize is the portal's fixed
// results-per-page (12).
func NewOrchestrator(baseURL string, pageSize int, cache *ResponseCache, pool *FetchPool, repo ports.ListingRepository, logger *slog.Logger) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &Orchestrator{
		baseURL:  baseURL,
		pageSize: pageSize,
		cache:    cache,
		pool:     pool,
		repo:     repo,
		client:   portal.NewHTTPClient(20 * time.Second),
		logger:   logger,
	}
}

// Crawl runs the full pipeline for one filter: paginate, extract summaries,
// pre-filter, diff against the store, fetch details, batch-write. A failing
// page or listing is logged and skipped; only index bootstrap and storage
// errors abort the crawl.
func (o *Orchestrator) Crawl(ctx context.Context, filter domain.SearchFilter) (CrawlStats, error) {
	var stats CrawlStats

	if dropped := o.cache.EvictExpired(); dropped > 0 {
		o.logger.Debug("evicted expired cache entries", "count", dropped)
	}

	existing, err := o.repo.RawSummaries(ctx)
	if err != nil {
		return stats, fmt.Errorf("load stored summaries: %w", err)
	}
	o.logger.Info("starting crawl", "known_listings", len(existing))

	firstPage, err := portal.FetchDocument(ctx, o.client, portal.SearchURL(o.baseURL, filter, 1))
	if err != nil {
		return stats, fmt.Errorf("fetch first index page: %w", err)
	}
	total, err := portal.ParseResultTotal(firstPage)
	if err != nil {
		return stats, fmt.Errorf("read result total: %w", err)
	}

	pages := (total + o.pageSize - 1) / o.pageSize
	stats.Pages = pages
	o.logger.Info("index scanned", "results", total, "pages", pages)

	var collected []portal.Summary
	for page := 1; page <= pages; page++ {
		doc := firstPage
		if page > 1 {
			doc, err = portal.FetchDocument(ctx, o.client, portal.SearchURL(o.baseURL, filter, page))
			if err != nil {
				o.logger.Warn("skipping index page", "page", page, "error", err)
				continue
			}
		}
		collected = append(collected, portal.ParseSummaries(doc, o.baseURL)...)
	}
	stats.Collected = len(collected)

	var queue []portal.Summary
	for _, summary := range collected {
		if !summary.Project && unchanged(summary, existing) {
			stats.Unchanged++
			continue
		}
		if !passesPreFilter(summary, filter) {
			stats.PreFiltered++
			continue
		}
		queue = append(queue, summary)
	}
	stats.Queued = len(queue)
	o.logger.Info("crawl queue built",
		"collected", stats.Collected,
		"unchanged", stats.Unchanged,
		"prefiltered", stats.PreFiltered,
		"queued", stats.Queued)

	fallbackType := filter.PropertyType
	if fallbackType == "" {
		fallbackType = domain.TypeApartment
	}
	outcomes := o.pool.Process(ctx, queue, fallbackType, portal.DistrictName(filter.Location))

	listings := make([]*domain.Listing, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Status == domain.FetchOK {
			listings = append(listings, outcome.Listing)
			continue
		}
		stats.Failed++
	}
	stats.Fetched = len(listings)

	if len(listings) > 0 {
		if err := o.repo.UpsertBatch(ctx, listings); err != nil {
			return stats, fmt.Errorf("batch upsert: %w", err)
		}
	}
	o.logger.Info("crawl finished", "fetched", stats.Fetched, "failed", stats.Failed)

	return stats, nil
}

// unchanged reports whether the stored raw price and size text are byte
// identical to the freshly scraped summary. Only these two fields drive the
// refresh decision.
func unchanged(summary portal.Summary, existing map[string]domain.RawSummary) bool {
	stored, ok := existing[summary.URL]
	if !ok {
		return false
	}
	return stored.PriceHUF == summary.PriceHUF && stored.Size == summary.Size
}

// passesPreFilter discards a listing whose cheaply parsed summary price or
// size falls outside the active bounds. Projects always pass, and so does
// anything that cannot be parsed (fail open).
func passesPreFilter(summary portal.Summary, filter domain.SearchFilter) bool {
	if summary.Project {
		return true
	}

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		if price := normalize.ParsePrice(summary.PriceHUF); price != nil {
			if filter.MinPrice != nil && *price < *filter.MinPrice*1_000_000 {
				return false
			}
			if filter.MaxPrice != nil && *price > *filter.MaxPrice*1_000_000 {
				return false
			}
		}
	}

	if filter.MinSize != nil || filter.MaxSize != nil {
		if m := leadingSizeExpr.FindString(summary.Size); m != "" {
			size, err := strconv.ParseFloat(m, 64)
			if err == nil {
				if filter.MinSize != nil && size < *filter.MinSize {
					return false
				}
				if filter.MaxSize != nil && size > *filter.MaxSize {
					return false
				}
			}
		}
	}

	return true
}
