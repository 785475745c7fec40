package storage

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"EstateScanner/internal/domain"
	"EstateScanner/internal/portal"
)

const listingColumns = `url, location, property_type, condition, description,
raw_size, raw_gross_size, raw_rooms, raw_price_huf, raw_price_eur, raw_ceiling_height,
size_sqm, gross_size_sqm, rooms, price_huf, price_eur, ceiling_height_m,
score, market_avg_sqm, price_diff_pct, value_label, insight`

// sortColumns maps the front-end sort keys onto ORDER BY clauses. Unscored
// rows sort last either direction.
var sortColumns = map[string]string{
	"price_asc":      "price_huf ASC NULLS LAST",
	"price_desc":     "price_huf DESC NULLS LAST",
	"size_asc":       "size_sqm ASC NULLS LAST",
	"size_desc":      "size_sqm DESC NULLS LAST",
	"score_asc":      "score ASC NULLS LAST",
	"score_desc":     "score DESC NULLS LAST",
	"label_asc":      "value_label ASC",
	"label_desc":     "value_label DESC",
	"deviation_asc":  "price_diff_pct ASC NULLS LAST",
	"deviation_desc": "price_diff_pct DESC NULLS LAST",
}

const defaultSort = "score DESC NULLS LAST"

// buildListingQuery turns a filter into the SELECT serving the front-end.
// Price bounds arrive in million HUF and are compared against the absolute
// price column. Location tokens are matched against the stored address text.
func buildListingQuery(f domain.SearchFilter) (string, []interface{}, error) {
	builder := sq.Select(listingColumns).
		From("listings").
		PlaceholderFormat(sq.Dollar)

	if f.PropertyType != "" {
		builder = builder.Where(sq.Eq{"property_type": f.PropertyType})
	}
	if f.Location != "" {
		name := portal.DistrictName(f.Location)
		if name == "" {
			name = f.Location
		}
		builder = builder.Where(sq.ILike{"location": "%" + name + "%"})
	}
	if f.MinPrice != nil {
		builder = builder.Where(sq.GtOrEq{"price_huf": *f.MinPrice * 1_000_000})
	}
	if f.MaxPrice != nil {
		builder = builder.Where(sq.LtOrEq{"price_huf": *f.MaxPrice * 1_000_000})
	}
	if f.MinSize != nil {
		builder = builder.Where(sq.GtOrEq{"size_sqm": *f.MinSize})
	}
	if f.MaxSize != nil {
		builder = builder.Where(sq.LtOrEq{"size_sqm": *f.MaxSize})
	}
	if f.MinRooms != nil {
		builder = builder.Where(sq.GtOrEq{"rooms": *f.MinRooms})
	}
	if f.MaxRooms != nil {
		builder = builder.Where(sq.LtOrEq{"rooms": *f.MaxRooms})
	}

	order, ok := sortColumns[f.Sort]
	if !ok {
		if f.Sort != "" {
			return "", nil, fmt.Errorf("unknown sort key %q", f.Sort)
		}
		order = defaultSort
	}
	builder = builder.OrderBy(order)

	return builder.ToSql()
}
