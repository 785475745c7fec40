package ports

import (
	"context"
	"time"

	"EstateScanner/internal/domain"
)

// ListingRepository persists listings and serves them back for scoring and
// for the front-end's filtered reads.
type ListingRepository interface {
	// RawSummaries returns the stored raw price/size text per URL, used to
	// skip listings that have not changed since the last crawl.
	RawSummaries(ctx context.Context) (map[string]domain.RawSummary, error)
	// UpsertBatch writes the batch in one all-or-nothing transaction;
	// an existing URL has every field replaced.
	UpsertBatch(ctx context.Context, listings []*domain.Listing) error
	// FetchAll returns every stored listing with its normalized fields.
	FetchAll(ctx context.Context) ([]domain.Listing, error)
	// NormalizeAll rederives the numeric columns from the stored raw text
	// and reports how many rows were updated.
	NormalizeAll(ctx context.Context) (int, error)
	// UpdateValuations writes the derived market fields in one transaction.
	UpdateValuations(ctx context.Context, valuations []domain.Valuation) error
	// Query serves scored rows for the front-end, filtered and sorted.
	Query(ctx context.Context, filter domain.SearchFilter) ([]domain.Listing, error)
}

// SearchLog is the append-only history of executed searches.
type SearchLog interface {
	Append(ctx context.Context, filters string, at time.Time) error
	// Recent returns records searched after the cutoff, newest first.
	Recent(ctx context.Context, since time.Time) ([]domain.SearchRecord, error)
}

// Scheduler drives a recurring job.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
