package types

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Pagination bounds. MaxPage keeps the row offset within an int32.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = math.MaxInt32 / MaxPageSize
)

// Predicates is the canonical predicate set consumed by the query engine.
// Every field is optional; the zero value (with pagination) matches every company.
type Predicates struct {
	Query       string // free text, relevance ranked
	Country     string
	Industry    string
	Website     string
	LinkedInURL string
	FoundedFrom *int // stored founded >= FoundedFrom
	Size        *int // stored size range contains Size
	Page        int
	PageSize    int
}

// Paginated returns p with page and page size clamped by ClampPage.
func (p Predicates) Paginated() Predicates {
	p.Page, p.PageSize = ClampPage(p.Page, p.PageSize)
	return p
}

// ClampPage floors page and pageSize to 1 and caps them at MaxPage and MaxPageSize.
func ClampPage(page, pageSize int) (int, int) {
	return min(max(page, 1), MaxPage), min(max(pageSize, 1), MaxPageSize)
}

// Offset returns the number of rows skipped before the requested page.
func (p Predicates) Offset() int {
	p = p.Paginated()
	return (p.Page - 1) * p.PageSize
}

// HasText reports whether the predicate set carries a usable full-text query.
func (p Predicates) HasText() bool {
	return len(SearchTerms(p.Query)) > 0
}

// SearchPage is one page of search results.
type SearchPage struct {
	Data       []Company `json:"data"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

// NewSearchPage wraps a result slice; data is never nil so it encodes as [].
func NewSearchPage(data []Company, total, page, pageSize int) SearchPage {
	if data == nil {
		data = []Company{}
	}
	return SearchPage{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}
}

// TotalPages returns max(1, ceil(total/pageSize)).
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 1
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// SearchTerms splits free text into lowercase letter/digit terms, deduplicated in order.
func SearchTerms(q string) []string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// CandidateMatch is the secondary match of an advanced search: company name
// against candidate names, website/linkedin_url against candidate domains,
// or the raw query against the name when no candidates were found.
type CandidateMatch struct {
	Names    []string
	Domains  []string
	Fallback string
}

// HasCandidates reports whether any name or domain candidate is usable.
func (m CandidateMatch) HasCandidates() bool {
	return alternation(m.Names) != "" || alternation(m.Domains) != ""
}

// NamePattern returns the case-insensitive pattern applied to the name field.
// Candidate text comes from scraped pages, so every piece is quoted.
func (m CandidateMatch) NamePattern() string {
	if !m.HasCandidates() {
		return regexp.QuoteMeta(strings.TrimSpace(m.Fallback))
	}
	return alternation(m.Names)
}

// UsesName reports whether the name clause takes part in the match. With no
// candidates the fallback always applies, even when empty (matching everything).
func (m CandidateMatch) UsesName() bool {
	return !m.HasCandidates() || alternation(m.Names) != ""
}

// DomainPattern returns the pattern applied to website and linkedin_url, or "" when unused.
func (m CandidateMatch) DomainPattern() string {
	return alternation(m.Domains)
}

func alternation(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			parts = append(parts, regexp.QuoteMeta(v))
		}
	}
	return strings.Join(parts, "|")
}
