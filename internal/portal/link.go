package portal

import (
	"fmt"
	"strconv"
	"strings"

	"EstateScanner/internal/domain"
)

// DefaultBaseURL is the portal root; list and detail URLs hang off it.
const DefaultBaseURL = "https://www.oc.hu"

// listPath is the portal's listing index, filtered through its
// "key:value;key:min~max" path syntax.
const listPath = "/ingatlanok/lista"

// projectPathMarker tags aggregate new-construction project pages.
const projectPathMarker = "/uj-lakas/"

// typeTokens maps canonical property types to the portal's filter vocabulary.
var typeTokens = map[string]string{
	domain.TypeApartment: "lakas",
	domain.TypeHouse:     "haz",
	domain.TypePlot:      "telek",
}

// SearchURL builds the listing index URL for the given filter and page.
// Price bounds are in million HUF, size in m², matching the portal.
func SearchURL(baseURL string, f domain.SearchFilter, page int) string {
	parts := []string{"jelleg:" + typeToken(f.PropertyType), "ertekesites:elado"}

	if r := rangeToken("ar", f.MinPrice, f.MaxPrice); r != "" {
		parts = append(parts, r)
	}
	if f.Location != "" {
		parts = append(parts, "elhelyezkedes:"+f.Location)
	}
	if r := rangeToken("meret", f.MinSize, f.MaxSize); r != "" {
		parts = append(parts, r)
	}
	if r := rangeToken("szoba", f.MinRooms, f.MaxRooms); r != "" {
		parts = append(parts, r)
	}

	return fmt.Sprintf("%s%s/%s?page=%d", strings.TrimSuffix(baseURL, "/"), listPath, strings.Join(parts, ";"), page)
}

// IsProjectURL reports whether the URL points at a multi-unit project page.
func IsProjectURL(url string) bool {
	return strings.Contains(url, projectPathMarker)
}

func typeToken(propertyType string) string {
	if tok, ok := typeTokens[propertyType]; ok {
		return tok
	}
	return "lakas"
}

func rangeToken(key string, min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s:%s~%s", key, formatNum(*min), formatNum(*max))
	case min != nil:
		return fmt.Sprintf("%s:%s~", key, formatNum(*min))
	case max != nil:
		return fmt.Sprintf("%s:~%s", key, formatNum(*max))
	}
	return ""
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// districtNames resolves the portal's district tokens to the display names
// listings carry in their address line.
var districtNames = func() map[string]string {
	romans := []string{
		"I.", "II.", "III.", "IV.", "V.", "VI.", "VII.", "VIII.", "IX.",
		"X.", "XI.", "XII.", "XIII.", "XIV.", "XV.", "XVI.", "XVII.", "XVIII.",
		"XIX.", "XX.", "XXI.", "XXII.", "XXIII.",
	}
	m := make(map[string]string, len(romans))
	for i, roman := range romans {
		m[fmt.Sprintf("budapest%02d", i+1)] = fmt.Sprintf("Budapest %s kerület", roman)
	}
	return m
}()

// DistrictName returns the display name for a district token, or "" when the
// token is unknown.
func DistrictName(token string) string {
	return districtNames[token]
}
