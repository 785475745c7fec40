package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/ports"
)

// Canonical renders a filter as sorted-key JSON so byte comparison of two
// canonical strings means filter equality. Sort order does not affect which
// listings a search touches, so it is excluded.
func Canonical(f domain.SearchFilter) string {
	fields := map[string]string{}

	if f.PropertyType != "" {
		fields["type"] = f.PropertyType
	}
	if f.Location != "" {
		fields["location"] = f.Location
	}
	putNumber(fields, "min_price", f.MinPrice)
	putNumber(fields, "max_price", f.MaxPrice)
	putNumber(fields, "min_size", f.MinSize)
	putNumber(fields, "max_size", f.MaxSize)
	putNumber(fields, "min_rooms", f.MinRooms)
	putNumber(fields, "max_rooms", f.MaxRooms)

	// Marshal on a string map emits keys in sorted order.
	raw, _ := json.Marshal(fields)
	return string(raw)
}

func putNumber(fields map[string]string, key string, v *float64) {
	if v != nil {
		fields[key] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}

// ParseCanonical restores a filter from its canonical form.
func ParseCanonical(raw string) (domain.SearchFilter, error) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return domain.SearchFilter{}, err
	}

	f := domain.SearchFilter{
		PropertyType: fields["type"],
		Location:     fields["location"],
	}

	var err error
	if f.MinPrice, err = takeNumber(fields, "min_price"); err != nil {
		return domain.SearchFilter{}, err
	}
	if f.MaxPrice, err = takeNumber(fields, "max_price"); err != nil {
		return domain.SearchFilter{}, err
	}
	if f.MinSize, err = takeNumber(fields, "min_size"); err != nil {
		return domain.SearchFilter{}, err
	}
	if f.MaxSize, err = takeNumber(fields, "max_size"); err != nil {
		return domain.SearchFilter{}, err
	}
	if f.MinRooms, err = takeNumber(fields, "min_rooms"); err != nil {
		return domain.SearchFilter{}, err
	}
	if f.MaxRooms, err = takeNumber(fields, "max_rooms"); err != nil {
		return domain.SearchFilter{}, err
	}
	return f, nil
}

func takeNumber(fields map[string]string, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// contains reports whether every listing matching cur would also have matched
// old. A field old leaves unset constrains nothing; a field old sets must be
// matched (categorical) or fully enclosed (numeric) by cur.
func contains(cur, old domain.SearchFilter) bool {
	if old.PropertyType != "" && old.PropertyType != cur.PropertyType {
		return false
	}
	if old.Location != "" && old.Location != cur.Location {
		return false
	}
	return enclosesMin(cur.MinPrice, old.MinPrice) &&
		enclosesMax(cur.MaxPrice, old.MaxPrice) &&
		enclosesMin(cur.MinSize, old.MinSize) &&
		enclosesMax(cur.MaxSize, old.MaxSize) &&
		enclosesMin(cur.MinRooms, old.MinRooms) &&
		enclosesMax(cur.MaxRooms, old.MaxRooms)
}

func enclosesMin(cur, old *float64) bool {
	if old == nil {
		return true
	}
	return cur != nil && *cur >= *old
}

func enclosesMax(cur, old *float64) bool {
	if old == nil {
		return true
	}
	return cur != nil && *cur <= *old
}

// Service answers whether a search needs a fresh crawl by scanning the recent
// search log for an equal or broader filter.
type Service struct {
	log      ports.SearchLog
	lookback time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the history check over a search log. lookback bounds how
// far back a previous search still counts as fresh.
func NewService(log ports.SearchLog, lookback time.Duration, logger *slog.Logger) *Service {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Service{
		log:      log,
		lookback: lookback,
		now:      time.Now,
		logger:   logger,
	}
}

// ShouldCrawl scans the lookback window newest first. When a logged filter
// equals or contains the current one the crawl is skipped and that covering
// filter is returned. Malformed log rows are skipped, not fatal.
func (s *Service) ShouldCrawl(ctx context.Context, f domain.SearchFilter) (bool, *domain.SearchFilter, error) {
	since := s.now().Add(-s.lookback)
	records, err := s.log.Recent(ctx, since)
	if err != nil {
		return false, nil, err
	}

	for _, record := range records {
		old, err := ParseCanonical(record.Filters)
		if err != nil {
			s.logger.Warn("skipping malformed search log row", "id", record.ID, "error", err)
			continue
		}
		if contains(f, old) {
			s.logger.Info("search covered by history", "id", record.ID, "searched_at", record.SearchedAt)
			return false, &old, nil
		}
	}
	return true, nil, nil
}

// Record appends the executed search to the log.
func (s *Service) Record(ctx context.Context, f domain.SearchFilter) error {
	return s.log.Append(ctx, Canonical(f), s.now())
}
