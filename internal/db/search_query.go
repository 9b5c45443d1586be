package db

import (
	"fmt"
	"strings"

	"github.com/jonathan/prospector/internal/types"
)

const companyColumns = `id, name, industry, country, locality, region, website, linkedin_url,
	founded, size, summary, attributes, created_at, updated_at`

// queryBuilder accumulates positional arguments.
type queryBuilder struct {
	args []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// facetedQuery wraps a filter in one statement that returns the total match
// count on every row plus the requested page. The count and the page read the
// same CTE, so they always agree. An empty page still yields one row with the
// total and NULL company columns.
func (b *queryBuilder) facetedQuery(where, rank string, page, pageSize int) string {
	if where != "" {
		where = "\n\tWHERE " + where
	}
	limit := b.arg(pageSize)
	offset := b.arg((page - 1) * pageSize)
	return fmt.Sprintf(`WITH filtered AS (
	SELECT %s, %s AS rank
	FROM companies%s
), page AS (
	SELECT * FROM filtered
	ORDER BY rank DESC, id
	LIMIT %s OFFSET %s
)
SELECT t.total, p.id, p.name, p.industry, p.country, p.locality, p.region, p.website, p.linkedin_url,
	p.founded, p.size, p.summary, p.attributes, p.created_at, p.updated_at
FROM (SELECT count(*) AS total FROM filtered) t
LEFT JOIN page p ON TRUE
ORDER BY p.rank DESC, p.id`, companyColumns, rank, where, limit, offset)
}

// buildSearchQuery translates a predicate set into the faceted search statement.
// Free text is OR-matched against the search_tsv column and ranked with ts_rank;
// without text every row ranks equally and id order applies.
func buildSearchQuery(p types.Predicates) (string, []any) {
	p = p.Paginated()
	b := &queryBuilder{}
	var conds []string
	rank := "0::real"

	if terms := types.SearchTerms(p.Query); len(terms) > 0 {
		q := b.arg(strings.Join(terms, " | "))
		conds = append(conds, fmt.Sprintf("search_tsv @@ to_tsquery('english', %s)", q))
		rank = fmt.Sprintf("ts_rank(search_tsv, to_tsquery('english', %s))", q)
	}
	exact := []struct{ column, value string }{
		{"country", p.Country},
		{"industry", p.Industry},
		{"website", p.Website},
		{"linkedin_url", p.LinkedInURL},
	}
	for _, e := range exact {
		if e.value != "" {
			conds = append(conds, fmt.Sprintf("%s = %s", e.column, b.arg(e.value)))
		}
	}
	if p.FoundedFrom != nil {
		conds = append(conds, fmt.Sprintf("founded_year >= %s", b.arg(*p.FoundedFrom)))
	}
	if p.Size != nil {
		n := b.arg(*p.Size)
		conds = append(conds, fmt.Sprintf("size_low <= %s AND (size_high IS NULL OR size_high >= %s)", n, n))
	}

	sql := b.facetedQuery(strings.Join(conds, " AND "), rank, p.Page, p.PageSize)
	return sql, b.args
}

// buildMatchQuery translates a candidate match into a faceted statement over
// case-insensitive regex clauses, in id order.
func buildMatchQuery(m types.CandidateMatch, page, pageSize int) (string, []any) {
	page, pageSize = types.ClampPage(page, pageSize)
	b := &queryBuilder{}
	var clauses []string

	if m.UsesName() {
		clauses = append(clauses, fmt.Sprintf("name ~* %s", b.arg(m.NamePattern())))
	}
	if d := m.DomainPattern(); d != "" {
		n := b.arg(d)
		clauses = append(clauses, fmt.Sprintf("website ~* %s", n), fmt.Sprintf("linkedin_url ~* %s", n))
	}

	sql := b.facetedQuery(strings.Join(clauses, " OR "), "0::real", page, pageSize)
	return sql, b.args
}
