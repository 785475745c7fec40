package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"EstateScanner/internal/crawler"
	"EstateScanner/internal/domain"
	"EstateScanner/internal/market"
	"EstateScanner/internal/ports"
)

// Historian decides whether a filter was already covered by a recent search
// and records executed ones.
type Historian interface {
	ShouldCrawl(ctx context.Context, f domain.SearchFilter) (bool, *domain.SearchFilter, error)
	Record(ctx context.Context, f domain.SearchFilter) error
}

// Crawler runs one portal crawl for a filter.
type Crawler interface {
	Crawl(ctx context.Context, f domain.SearchFilter) (crawler.CrawlStats, error)
}

// PipelineDeps wires all driven adapters into the search pipeline.
type PipelineDeps struct {
	History    Historian
	Crawler    Crawler
	Repository ports.ListingRepository
	Logger     *slog.Logger
}

// Pipeline implements the search workflow: history check, crawl, normalize,
// score, serve.
type Pipeline struct {
	history    Historian
	crawler    Crawler
	repository ports.ListingRepository
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		history:    deps.History,
		crawler:    deps.Crawler,
		repository: deps.Repository,
		logger:     deps.Logger,
	}
}

// SearchResult reports what one search did and the rows matching the filter.
type SearchResult struct {
	Crawled    bool                 `json:"crawled"`
	CoveredBy  *domain.SearchFilter `json:"covered_by,omitempty"`
	Stats      crawler.CrawlStats   `json:"stats"`
	Normalized int                  `json:"normalized"`
	Scored     int                  `json:"scored"`
	Listings   []domain.Listing     `json:"listings"`
}

// Search runs one front-end search. A filter equal to or narrower than a
// recent search is answered straight from storage. Otherwise the crawl runs
// with the size range widened to whole market buckets, the store is
// re-normalized and re-scored, and the search is logged with the filter as
// the user gave it.
func (p *Pipeline) Search(ctx context.Context, filter domain.SearchFilter) (SearchResult, error) {
	var result SearchResult

	crawl, covering, err := p.history.ShouldCrawl(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("check history: %w", err)
	}
	if !crawl {
		result.CoveredBy = covering
		result.Listings, err = p.repository.Query(ctx, filter)
		if err != nil {
			return result, fmt.Errorf("query cached: %w", err)
		}
		p.logger.Info("search served from history", "matched", len(result.Listings))
		return result, nil
	}

	crawlFilter := filter
	crawlFilter.MinSize, crawlFilter.MaxSize = market.ExpandSizeRange(filter.MinSize, filter.MaxSize)

	result.Stats, err = p.crawler.Crawl(ctx, crawlFilter)
	if err != nil {
		return result, fmt.Errorf("crawl: %w", err)
	}
	result.Crawled = true

	if err := p.history.Record(ctx, filter); err != nil {
		return result, fmt.Errorf("record search: %w", err)
	}

	result.Normalized, err = p.repository.NormalizeAll(ctx)
	if err != nil {
		return result, fmt.Errorf("normalize: %w", err)
	}

	result.Scored, err = p.rescore(ctx)
	if err != nil {
		return result, err
	}

	result.Listings, err = p.repository.Query(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("query scored: %w", err)
	}

	p.logger.Info("search finished",
		"fetched", result.Stats.Fetched,
		"normalized", result.Normalized,
		"scored", result.Scored,
		"matched", len(result.Listings))
	return result, nil
}

// rescore rebuilds the market segments over the whole store and writes every
// listing's valuation back.
func (p *Pipeline) rescore(ctx context.Context) (int, error) {
	listings, err := p.repository.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load listings for scoring: %w", err)
	}
	if len(listings) == 0 {
		return 0, nil
	}

	analyzer := market.NewAnalyzer(listings)

	valuations := make([]domain.Valuation, 0, len(listings))
	for _, l := range listings {
		valuation := domain.Valuation{
			URL:   l.URL,
			Score: analyzer.Score(l),
		}
		if insight := analyzer.Insight(l); insight != nil {
			avg := insight.MarketAvg
			pct := insight.DiffPct
			valuation.MarketAvgSqm = &avg
			valuation.PriceDiffPct = &pct
			valuation.ValueLabel = insight.Label
			valuation.Insight = fmt.Sprintf("market average: %.0f Ft/m² (based on %d listings)",
				insight.MarketAvg, insight.SampleCount)
		} else {
			valuation.ValueLabel = market.LabelUnknown
			valuation.Insight = "insufficient market data"
		}
		valuations = append(valuations, valuation)
	}

	if err := p.repository.UpdateValuations(ctx, valuations); err != nil {
		return 0, fmt.Errorf("write valuations: %w", err)
	}
	return len(valuations), nil
}
