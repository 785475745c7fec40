package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/normalize"
	"EstateScanner/internal/ports"
)

// Repository persists listings and the search log in Postgres.
type Repository struct {
	db *sql.DB
}

var (
	_ ports.ListingRepository = (*Repository)(nil)
	_ ports.SearchLog         = (*Repository)(nil)
)

// NewRepository wires a sql.DB implementation.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema. Every statement is idempotent so restarts and
// upgrades run it unconditionally.
func (r *Repository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			url TEXT PRIMARY KEY,
			location TEXT NOT NULL DEFAULT '',
			property_type TEXT NOT NULL DEFAULT '',
			condition TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			raw_size TEXT NOT NULL DEFAULT '',
			raw_gross_size TEXT NOT NULL DEFAULT '',
			raw_rooms TEXT NOT NULL DEFAULT '',
			raw_price_huf TEXT NOT NULL DEFAULT '',
			raw_price_eur TEXT NOT NULL DEFAULT '',
			raw_ceiling_height TEXT NOT NULL DEFAULT '',
			size_sqm DOUBLE PRECISION,
			gross_size_sqm DOUBLE PRECISION,
			rooms DOUBLE PRECISION,
			price_huf DOUBLE PRECISION,
			price_eur DOUBLE PRECISION,
			ceiling_height_m DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE listings ADD COLUMN IF NOT EXISTS score DOUBLE PRECISION`,
		`ALTER TABLE listings ADD COLUMN IF NOT EXISTS market_avg_sqm DOUBLE PRECISION`,
		`ALTER TABLE listings ADD COLUMN IF NOT EXISTS price_diff_pct DOUBLE PRECISION`,
		`ALTER TABLE listings ADD COLUMN IF NOT EXISTS value_label TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE listings ADD COLUMN IF NOT EXISTS insight TEXT NOT NULL DEFAULT ''`,
		`CREATE TABLE IF NOT EXISTS search_log (
			id BIGSERIAL PRIMARY KEY,
			filters TEXT NOT NULL,
			searched_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS search_log_searched_at_idx ON search_log (searched_at)`,
	}

	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RawSummaries returns the stored raw price/size text keyed by URL.
func (r *Repository) RawSummaries(ctx context.Context) (map[string]domain.RawSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT url, raw_price_huf, raw_size FROM listings`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.RawSummary)
	for rows.Next() {
		var url string
		var summary domain.RawSummary
		if err := rows.Scan(&url, &summary.PriceHUF, &summary.Size); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		result[url] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

var upsertColumns = []string{
	"url", "location", "property_type", "condition", "description",
	"raw_size", "raw_gross_size", "raw_rooms", "raw_price_huf", "raw_price_eur", "raw_ceiling_height",
	"size_sqm", "gross_size_sqm", "rooms", "price_huf", "price_eur", "ceiling_height_m",
}

const upsertConflict = `ON CONFLICT (url) DO UPDATE SET
	location = EXCLUDED.location,
	property_type = EXCLUDED.property_type,
	condition = EXCLUDED.condition,
	description = EXCLUDED.description,
	raw_size = EXCLUDED.raw_size,
	raw_gross_size = EXCLUDED.raw_gross_size,
	raw_rooms = EXCLUDED.raw_rooms,
	raw_price_huf = EXCLUDED.raw_price_huf,
	raw_price_eur = EXCLUDED.raw_price_eur,
	raw_ceiling_height = EXCLUDED.raw_ceiling_height,
	size_sqm = EXCLUDED.size_sqm,
	gross_size_sqm = EXCLUDED.gross_size_sqm,
	rooms = EXCLUDED.rooms,
	price_huf = EXCLUDED.price_huf,
	price_eur = EXCLUDED.price_eur,
	ceiling_height_m = EXCLUDED.ceiling_height_m,
	updated_at = NOW()`

// UpsertBatch writes the crawl result as one statement in one transaction.
// Duplicate URLs inside the batch keep the last occurrence; a multi-row
// insert cannot touch the same row twice.
func (r *Repository) UpsertBatch(ctx context.Context, listings []*domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	byURL := make(map[string]int, len(listings))
	deduped := make([]*domain.Listing, 0, len(listings))
	for _, l := range listings {
		if at, seen := byURL[l.URL]; seen {
			deduped[at] = l
			continue
		}
		byURL[l.URL] = len(deduped)
		deduped = append(deduped, l)
	}

	builder := sq.Insert("listings").
		Columns(upsertColumns...).
		PlaceholderFormat(sq.Dollar).
		Suffix(upsertConflict)
	for _, l := range deduped {
		builder = builder.Values(
			l.URL, l.Location, l.PropertyType, l.Condition, l.Description,
			l.RawSize, l.RawGrossSize, l.RawRooms, l.RawPriceHUF, l.RawPriceEUR, l.RawCeilingHeight,
			l.Size, l.GrossSize, l.Rooms, l.PriceHUF, l.PriceEUR, l.CeilingHeight,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("batch upsert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// FetchAll returns every stored listing.
func (r *Repository) FetchAll(ctx context.Context) ([]domain.Listing, error) {
	query, args, err := sq.Select(listingColumns).
		From("listings").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fetch: %w", err)
	}
	return r.queryListings(ctx, query, args...)
}

// Query serves scored rows for the front-end, filtered and sorted.
func (r *Repository) Query(ctx context.Context, filter domain.SearchFilter) ([]domain.Listing, error) {
	query, args, err := buildListingQuery(filter)
	if err != nil {
		return nil, err
	}
	return r.queryListings(ctx, query, args...)
}

func (r *Repository) queryListings(ctx context.Context, query string, args ...interface{}) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return listings, nil
}

func scanListing(rows *sql.Rows) (domain.Listing, error) {
	var l domain.Listing
	var size, grossSize, roomCount, priceHUF, priceEUR, ceiling sql.NullFloat64
	var score, marketAvg, diffPct sql.NullFloat64

	err := rows.Scan(
		&l.URL, &l.Location, &l.PropertyType, &l.Condition, &l.Description,
		&l.RawSize, &l.RawGrossSize, &l.RawRooms, &l.RawPriceHUF, &l.RawPriceEUR, &l.RawCeilingHeight,
		&size, &grossSize, &roomCount, &priceHUF, &priceEUR, &ceiling,
		&score, &marketAvg, &diffPct, &l.ValueLabel, &l.Insight,
	)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("scan listing: %w", err)
	}

	l.Size = nullableFloat(size)
	l.GrossSize = nullableFloat(grossSize)
	l.Rooms = nullableFloat(roomCount)
	l.PriceHUF = nullableFloat(priceHUF)
	l.PriceEUR = nullableFloat(priceEUR)
	l.CeilingHeight = nullableFloat(ceiling)
	l.Score = nullableFloat(score)
	l.MarketAvgSqm = nullableFloat(marketAvg)
	l.PriceDiffPct = nullableFloat(diffPct)
	return l, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}

// NormalizeAll rederives the numeric columns from the stored raw text and
// reports how many rows changed.
func (r *Repository) NormalizeAll(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, raw_size, raw_gross_size, raw_rooms, raw_price_huf, raw_price_eur, raw_ceiling_height FROM listings`)
	if err != nil {
		return 0, fmt.Errorf("query raw rows: %w", err)
	}

	var pending []*domain.Listing
	for rows.Next() {
		l := &domain.Listing{}
		if err := rows.Scan(&l.URL, &l.RawSize, &l.RawGrossSize, &l.RawRooms,
			&l.RawPriceHUF, &l.RawPriceEUR, &l.RawCeilingHeight); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan raw row: %w", err)
		}
		normalize.Listing(l)
		pending = append(pending, l)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close rows: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin normalize: %w", err)
	}
	const update = `UPDATE listings
		SET size_sqm = $2, gross_size_sqm = $3, rooms = $4,
		    price_huf = $5, price_eur = $6, ceiling_height_m = $7
		WHERE url = $1`
	for _, l := range pending {
		if _, err := tx.ExecContext(ctx, update,
			l.URL, l.Size, l.GrossSize, l.Rooms, l.PriceHUF, l.PriceEUR, l.CeilingHeight); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("normalize %s: %w", l.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit normalize: %w", err)
	}
	return len(pending), nil
}

// UpdateValuations writes the derived market fields in one transaction.
func (r *Repository) UpdateValuations(ctx context.Context, valuations []domain.Valuation) error {
	if len(valuations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin valuations: %w", err)
	}
	const update = `UPDATE listings
		SET score = $2, market_avg_sqm = $3, price_diff_pct = $4, value_label = $5, insight = $6
		WHERE url = $1`
	for _, v := range valuations {
		if _, err := tx.ExecContext(ctx, update,
			v.URL, v.Score, v.MarketAvgSqm, v.PriceDiffPct, v.ValueLabel, v.Insight); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("valuation %s: %w", v.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit valuations: %w", err)
	}
	return nil
}

// Append adds one row to the search log.
func (r *Repository) Append(ctx context.Context, filters string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO search_log (filters, searched_at) VALUES ($1, $2)`, filters, at)
	if err != nil {
		return fmt.Errorf("append search log: %w", err)
	}
	return nil
}

// Recent returns log rows searched after the cutoff, newest first.
func (r *Repository) Recent(ctx context.Context, since time.Time) ([]domain.SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filters, searched_at FROM search_log WHERE searched_at > $1 ORDER BY searched_at DESC, id DESC`,
		since)
	if err != nil {
		return nil, fmt.Errorf("query search log: %w", err)
	}
	defer rows.Close()

	var records []domain.SearchRecord
	for rows.Next() {
		var record domain.SearchRecord
		if err := rows.Scan(&record.ID, &record.Filters, &record.SearchedAt); err != nil {
			return nil, fmt.Errorf("scan search log: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}
