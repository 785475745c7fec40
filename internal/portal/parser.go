package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"EstateScanner/internal/domain"
)

const userAgent = "Mozilla/5.0"

// Portal attribute labels on detail pages.
const (
	labelPropertyType  = "Jelleg"
	labelCondition     = "Állapot"
	labelGrossSize     = "Bruttó méret"
	labelCeilingHeight = "Belmagasság"
)

// conditionLabels maps the portal's condition vocabulary to canonical labels.
var conditionLabels = map[string]string{
	"Kiváló":      domain.ConditionExcellent,
	"Jó":          domain.ConditionGood,
	"Átlagos":     domain.ConditionAverage,
	"Felújítandó": domain.ConditionRenovation,
	"Rossz":       domain.ConditionPoor,
}

// NewHTTPClient builds a client with its own connection pool, sized for one
// crawl worker.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// FetchBody retrieves a page and returns its raw HTML.
func FetchBody(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("portal returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// FetchDocument retrieves a page and parses it into a goquery document.
func FetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	body, err := FetchBody(ctx, client, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Summary is one listing card scraped from an index page. All fields keep the
// portal's text verbatim.
type Summary struct {
	URL         string
	Location    string
	Size        string
	Rooms       string
	PriceHUF    string
	PriceEUR    string
	Description string
	Project     bool
}

// ParseResultTotal reads the index page's reported result count.
func ParseResultTotal(doc *goquery.Document) (int, error) {
	text := strings.TrimSpace(doc.Find(".py-2").First().Text())
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("result total element missing")
	}
	total, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("result total %q: %w", fields[0], err)
	}
	return total, nil
}

// ParseSummaries extracts the listing cards from an index page. Cards without
// a link are skipped; missing optional fields stay empty.
func ParseSummaries(doc *goquery.Document, baseURL string) []Summary {
	var summaries []Summary

	doc.Find("a[data-action='seo#selectItem']").Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok || href == "" {
			return
		}

		fullURL := href
		if !strings.HasPrefix(href, "http") {
			fullURL = strings.TrimSuffix(baseURL, "/") + href
		}

		summaries = append(summaries, Summary{
			URL:         fullURL,
			Location:    cardText(card, ".info-row:nth-of-type(2) .text-left"),
			Size:        cardText(card, ".info-row:nth-of-type(2) .text-end"),
			Rooms:       cardText(card, ".info-row:nth-of-type(3) .text-end"),
			PriceHUF:    cardText(card, ".price-huf"),
			PriceEUR:    cardText(card, ".price-eur"),
			Description: cardText(card, ".description p"),
			Project:     IsProjectURL(fullURL),
		})
	})

	return summaries
}

func cardText(card *goquery.Selection, selector string) string {
	return strings.TrimSpace(card.Find(selector).First().Text())
}

// Detail holds the attribute/value pairs and address scraped from a listing
// detail page.
type Detail struct {
	Attrs   map[string]string
	Address string
}

// ParseDetail extracts the attribute table and address from detail page HTML.
func ParseDetail(body string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail page: %w", err)
	}

	labels := doc.Find("div.row.row-cols-2 .data-label")
	values := doc.Find("div.row.row-cols-2 .data-value")

	attrs := make(map[string]string)
	labels.Each(func(i int, label *goquery.Selection) {
		if i >= values.Length() {
			return
		}
		key := strings.TrimSpace(label.Text())
		if key == "" {
			return
		}
		attrs[key] = strings.TrimSpace(values.Eq(i).Text())
	})

	return Detail{
		Attrs:   attrs,
		Address: strings.TrimSpace(doc.Find(".head-address").First().Text()),
	}, nil
}

// PropertyType maps the detail page's type attribute to the canonical label,
// or "" when the page omits it.
func (d Detail) PropertyType() string {
	raw := strings.ToLower(d.Attrs[labelPropertyType])
	switch {
	case raw == "":
		return ""
	case strings.Contains(raw, "ház"):
		return domain.TypeHouse
	case strings.Contains(raw, "lakás"):
		return domain.TypeApartment
	case strings.Contains(raw, "telek"):
		return domain.TypePlot
	}
	return raw
}

// Condition maps the detail page's condition attribute to the canonical
// label; unknown values pass through verbatim.
func (d Detail) Condition() string {
	raw := d.Attrs[labelCondition]
	if canonical, ok := conditionLabels[raw]; ok {
		return canonical
	}
	return raw
}

// GrossSize returns the raw gross size text, if present.
func (d Detail) GrossSize() string { return d.Attrs[labelGrossSize] }

// CeilingHeight returns the raw ceiling height text, if present.
func (d Detail) CeilingHeight() string { return d.Attrs[labelCeilingHeight] }
