package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/normalize"
	"EstateScanner/internal/portal"
)

// FetchPool resolves listing details with a fixed number of workers. Each
// worker owns one HTTP client with its own connection pool and sleeps the
// request delay before every fetch as courtesy to the portal.
type FetchPool struct {
	workers       int
	requestDelay  time.Duration
	clientTimeout time.Duration
	cache         *ResponseCache
	logger        *slog.Logger

	newClient func() *http.Client
}

// NewFetchPool wires a pool against the shared response cache.
func NewFetchPool(workers int, requestDelay time.Duration, cache *ResponseCache, logger *slog.Logger) *FetchPool {
	if workers <= 0 {
		workers = 8
	}
	p := &FetchPool{
		workers:       workers,
		requestDelay:  requestDelay,
		clientTimeout: 20 * time.Second,
		cache:         cache,
		logger:        logger,
	}
	p.newClient = func() *http.Client { return portal.NewHTTPClient(p.clientTimeout) }
	return p
}

// Process fetches and assembles every queued summary concurrently and returns
// one typed outcome per listing, in completion order. A failed listing never
// cancels its siblings. fallbackType labels listings whose detail page omits
// a property type; projectLocation labels synthetic project records.
func (p *FetchPool) Process(ctx context.Context, queue []portal.Summary, fallbackType, projectLocation string) []domain.FetchOutcome {
	if len(queue) == 0 {
		return nil
	}

	jobs := make(chan portal.Summary)
	outcomes := make([]domain.FetchOutcome, 0, len(queue))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := p.newClient()
			for summary := range jobs {
				outcome := p.processOne(ctx, client, summary, fallbackType, projectLocation)
				if outcome.Status == domain.FetchFailed {
					p.logger.Warn("detail fetch failed", "url", outcome.URL, "error", outcome.Err)
				}
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

	for _, summary := range queue {
		jobs <- summary
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (p *FetchPool) processOne(ctx context.Context, client *http.Client, summary portal.Summary, fallbackType, projectLocation string) domain.FetchOutcome {
	if err := ctx.Err(); err != nil {
		return domain.FetchOutcome{URL: summary.URL, Status: domain.FetchFailed, Err: err}
	}

	time.Sleep(p.requestDelay)

	listing, err := p.assemble(ctx, client, summary, fallbackType, projectLocation)
	if err != nil {
		return domain.FetchOutcome{URL: summary.URL, Status: domain.FetchFailed, Err: err}
	}
	return domain.FetchOutcome{URL: summary.URL, Status: domain.FetchOK, Listing: listing}
}

func (p *FetchPool) assemble(ctx context.Context, client *http.Client, summary portal.Summary, fallbackType, projectLocation string) (*domain.Listing, error) {
	listing := &domain.Listing{
		URL:         summary.URL,
		Location:    summary.Location,
		Description: summary.Description,
		RawSize:     summary.Size,
		RawRooms:    summary.Rooms,
		RawPriceHUF: summary.PriceHUF,
		RawPriceEUR: summary.PriceEUR,
	}

	// Project pages aggregate many units; they become a single synthetic
	// record without a detail fetch.
	if summary.Project {
		listing.PropertyType = domain.TypeApartment
		if projectLocation != "" {
			listing.Location = projectLocation
		}
		normalize.Listing(listing)
		return listing, nil
	}

	body, ok := p.cache.Get(summary.URL)
	if !ok {
		var err error
		body, err = portal.FetchBody(ctx, client, summary.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch detail: %w", err)
		}
		p.cache.Put(summary.URL, body)
	}

	detail, err := portal.ParseDetail(body)
	if err != nil {
		return nil, fmt.Errorf("parse detail: %w", err)
	}

	if detail.Address != "" {
		listing.Location = detail.Address
	}
	listing.PropertyType = detail.PropertyType()
	if listing.PropertyType == "" {
		listing.PropertyType = fallbackType
	}
	listing.Condition = detail.Condition()
	listing.RawGrossSize = detail.GrossSize()
	listing.RawCeilingHeight = detail.CeilingHeight()

	normalize.Listing(listing)
	return listing, nil
}
