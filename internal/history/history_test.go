package history

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"EstateScanner/internal/domain"
)

type memoryLog struct {
	records []domain.SearchRecord
	nextID  int64
}

func (m *memoryLog) Append(_ context.Context, filters string, at time.Time) error {
	m.nextID++
	m.records = append(m.records, domain.SearchRecord{ID: m.nextID, Filters: filters, SearchedAt: at})
	return nil
}

func (m *memoryLog) Recent(_ context.Context, since time.Time) ([]domain.SearchRecord, error) {
	var out []domain.SearchRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].SearchedAt.After(since) {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 { return &v }

func TestCanonicalIsSortedAndStable(t *testing.T) {
	t.Parallel()

	f := domain.SearchFilter{
		PropertyType: domain.TypeApartment,
		Location:     "budapest13",
		MinPrice:     floatPtr(30),
		MaxPrice:     floatPtr(60),
		MinSize:      floatPtr(50),
		Sort:         "price_asc",
	}

	got := Canonical(f)
	want := `{"location":"budapest13","max_price":"60","min_price":"30","min_size":"50","type":"apartment"}`
	if got != want {
		t.Errorf("Canonical = %s, want %s", got, want)
	}

	// Sort must not influence the canonical form.
	f.Sort = "size_desc"
	if Canonical(f) != want {
		t.Error("sort order leaked into canonical form")
	}
}

func TestParseCanonicalRoundTrip(t *testing.T) {
	t.Parallel()

	f := domain.SearchFilter{
		PropertyType: domain.TypeHouse,
		MinSize:      floatPtr(80.5),
		MaxRooms:     floatPtr(4),
	}

	parsed, err := ParseCanonical(Canonical(f))
	if err != nil {
		t.Fatalf("ParseCanonical: %v", err)
	}
	if parsed.PropertyType != domain.TypeHouse {
		t.Errorf("PropertyType = %q", parsed.PropertyType)
	}
	if parsed.MinSize == nil || *parsed.MinSize != 80.5 {
		t.Errorf("MinSize = %v", parsed.MinSize)
	}
	if parsed.MaxRooms == nil || *parsed.MaxRooms != 4 {
		t.Errorf("MaxRooms = %v", parsed.MaxRooms)
	}
	if parsed.MinPrice != nil {
		t.Errorf("MinPrice = %v, want nil", *parsed.MinPrice)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	broad := domain.SearchFilter{
		PropertyType: domain.TypeApartment,
		Location:     "budapest08",
		MinPrice:     floatPtr(20),
		MaxPrice:     floatPtr(80),
	}
	narrow := domain.SearchFilter{
		PropertyType: domain.TypeApartment,
		Location:     "budapest08",
		MinPrice:     floatPtr(30),
		MaxPrice:     floatPtr(60),
	}

	if !contains(narrow, broad) {
		t.Error("broad filter must contain the narrower one")
	}
	if contains(broad, narrow) {
		t.Error("narrow filter must not contain the broader one")
	}
	if !contains(narrow, narrow) {
		t.Error("a filter must contain itself")
	}

	// An unbounded current search is not enclosed by a bounded old one.
	unbounded := domain.SearchFilter{PropertyType: domain.TypeApartment, Location: "budapest08"}
	if contains(unbounded, broad) {
		t.Error("unbounded search escapes the old price bounds")
	}

	other := narrow
	other.Location = "budapest09"
	if contains(other, broad) {
		t.Error("different location must not match")
	}
}

func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	log := &memoryLog{}
	svc := NewService(log, 24*time.Hour, discardLogger())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	broad := domain.SearchFilter{
		PropertyType: domain.TypeApartment,
		Location:     "budapest08",
		MaxPrice:     floatPtr(80),
	}
	if err := svc.Record(context.Background(), broad); err != nil {
		t.Fatalf("Record: %v", err)
	}

	narrow := broad
	narrow.MaxPrice = floatPtr(60)
	narrow.MinPrice = floatPtr(30)

	crawl, covering, err := svc.ShouldCrawl(context.Background(), narrow)
	if err != nil {
		t.Fatalf("ShouldCrawl: %v", err)
	}
	if crawl {
		t.Error("narrower repeat within the window must not crawl")
	}
	if covering == nil || covering.MaxPrice == nil || *covering.MaxPrice != 80 {
		t.Errorf("covering filter = %+v", covering)
	}

	// Outside the lookback window the same search crawls again.
	svc.now = func() time.Time { return base.Add(25 * time.Hour) }
	crawl, _, err = svc.ShouldCrawl(context.Background(), narrow)
	if err != nil {
		t.Fatalf("ShouldCrawl: %v", err)
	}
	if !crawl {
		t.Error("stale history must not suppress the crawl")
	}
}

func TestShouldCrawlSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	log := &memoryLog{}
	svc := NewService(log, 24*time.Hour, discardLogger())

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_ = log.Append(context.Background(), "{not json", base.Add(-time.Hour))

	crawl, _, err := svc.ShouldCrawl(context.Background(), domain.SearchFilter{Location: "budapest08"})
	if err != nil {
		t.Fatalf("ShouldCrawl: %v", err)
	}
	if !crawl {
		t.Error("a malformed row must not count as coverage")
	}
}
