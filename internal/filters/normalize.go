// Package filters turns raw request parameters into the canonical predicate set.
package filters

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonathan/prospector/internal/types"
)

// Raw holds filter parameters exactly as received, before any parsing.
type Raw struct {
	Query       string
	Country     string
	Industry    string
	Website     string
	LinkedInURL string
	Founded     string
	Size        string
	Page        string
	PageSize    string
}

// FromQuery reads the filter parameters of a search request.
func FromQuery(v url.Values) Raw {
	return Raw{
		Query:       v.Get("q"),
		Country:     v.Get("country"),
		Industry:    v.Get("industry"),
		Website:     v.Get("website"),
		LinkedInURL: v.Get("linkedin_url"),
		Founded:     v.Get("founded"),
		Size:        v.Get("size"),
		Page:        v.Get("page"),
		PageSize:    v.Get("pageSize"),
	}
}

// Normalize converts raw parameters into predicates. It never fails: blank
// values are absent and malformed numbers drop their predicate.
func Normalize(raw Raw) types.Predicates {
	p := types.Predicates{
		Query:       strings.TrimSpace(raw.Query),
		Country:     strings.TrimSpace(raw.Country),
		Industry:    strings.TrimSpace(raw.Industry),
		Website:     strings.TrimSpace(raw.Website),
		LinkedInURL: strings.TrimSpace(raw.LinkedInURL),
		Page:        intOr(raw.Page, types.DefaultPage),
		PageSize:    intOr(raw.PageSize, types.DefaultPageSize),
	}
	if year, ok := parseInt(raw.Founded); ok {
		p.FoundedFrom = &year
	}
	if size, ok := parseInt(raw.Size); ok {
		p.Size = &size
	}
	return p.Paginated()
}

// parseInt accepts integers and integral decimals ("75", "75.0") within
// the int32 range.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err == nil {
		return int(n), true
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func intOr(s string, def int) int {
	n, ok := parseInt(s)
	if !ok {
		return def
	}
	return n
}
