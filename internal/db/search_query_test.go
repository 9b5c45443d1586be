package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/prospector/internal/types"
)

func intPtr(n int) *int { return &n }

func TestBuildSearchQuery_Empty(t *testing.T) {
	sql, args := buildSearchQuery(types.Predicates{Page: 1, PageSize: 20})

	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "0::real AS rank")
	assert.Contains(t, sql, "ORDER BY rank DESC, id")
	assert.Equal(t, []any{20, 0}, args)
}

func TestBuildSearchQuery_TextQuery(t *testing.T) {
	sql, args := buildSearchQuery(types.Predicates{Query: "Cloud  SaaS, cloud", Page: 2, PageSize: 10})

	assert.Contains(t, sql, "search_tsv @@ to_tsquery('english', $1)")
	assert.Contains(t, sql, "ts_rank(search_tsv, to_tsquery('english', $1))")
	assert.Equal(t, []any{"cloud | saas", 10, 10}, args)
}

func TestBuildSearchQuery_PunctuationOnlyQueryIsIgnored(t *testing.T) {
	sql, args := buildSearchQuery(types.Predicates{Query: " &!|( ", Page: 1, PageSize: 5})

	assert.NotContains(t, sql, "to_tsquery")
	assert.Equal(t, []any{5, 0}, args)
}

func TestBuildSearchQuery_AllPredicates(t *testing.T) {
	sql, args := buildSearchQuery(types.Predicates{
		Country:     "us",
		Industry:    "software",
		Website:     "acme.com",
		LinkedInURL: "linkedin.com/company/acme",
		FoundedFrom: intPtr(2000),
		Size:        intPtr(75),
		Page:        1,
		PageSize:    20,
	})

	for _, fragment := range []string{
		"country = $1",
		"industry = $2",
		"website = $3",
		"linkedin_url = $4",
		"founded_year >= $5",
		"size_low <= $6 AND (size_high IS NULL OR size_high >= $6)",
		"LIMIT $7 OFFSET $8",
	} {
		assert.Contains(t, sql, fragment)
	}
	assert.Equal(t, []any{"us", "software", "acme.com", "linkedin.com/company/acme", 2000, 75, 20, 0}, args)
}

func TestBuildSearchQuery_FloorsPagination(t *testing.T) {
	_, args := buildSearchQuery(types.Predicates{Page: -1, PageSize: 0})
	assert.Equal(t, []any{1, 0}, args)
}

func TestBuildSearchQuery_CapsPagination(t *testing.T) {
	_, args := buildSearchQuery(types.Predicates{Page: 1 << 62, PageSize: 1 << 62})
	assert.Equal(t, []any{types.MaxPageSize, (types.MaxPage - 1) * types.MaxPageSize}, args)

	_, args = buildMatchQuery(types.CandidateMatch{Fallback: "acme"}, 1<<62, 1<<62)
	assert.Equal(t, types.MaxPageSize, args[len(args)-2])
	assert.Equal(t, (types.MaxPage-1)*types.MaxPageSize, args[len(args)-1])
}

func TestBuildMatchQuery_Candidates(t *testing.T) {
	sql, args := buildMatchQuery(types.CandidateMatch{
		Names:   []string{"Acme (US)", "Globex"},
		Domains: []string{"acme.com"},
	}, 1, 10)

	assert.Contains(t, sql, "name ~* $1 OR website ~* $2 OR linkedin_url ~* $2")
	assert.Equal(t, []any{`Acme \(US\)|Globex`, `acme\.com`, 10, 0}, args)
}

func TestBuildMatchQuery_DomainsOnly(t *testing.T) {
	sql, args := buildMatchQuery(types.CandidateMatch{Domains: []string{"acme.com"}}, 2, 5)

	assert.NotContains(t, sql, "name ~*")
	assert.Contains(t, sql, "website ~* $1 OR linkedin_url ~* $1")
	assert.Equal(t, []any{`acme\.com`, 5, 5}, args)
}

func TestBuildMatchQuery_FallbackToQuery(t *testing.T) {
	sql, args := buildMatchQuery(types.CandidateMatch{Fallback: "a+b"}, 1, 10)

	assert.Contains(t, sql, "name ~* $1")
	assert.NotContains(t, sql, "website ~*")
	assert.Equal(t, []any{`a\+b`, 10, 0}, args)
}
