package types

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, pageSize, want int
	}{
		{0, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{2, 1, 2},
		{99, 10, 10},
		{math.MaxInt, 1, math.MaxInt},
		{math.MaxInt, math.MaxInt, 1},
		{math.MaxInt - 1, math.MaxInt, 1},
		{5, math.MaxInt, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.pageSize), "total=%d pageSize=%d", tt.total, tt.pageSize)
	}
}

func TestNewSearchPage_EmptyData(t *testing.T) {
	page := NewSearchPage(nil, 0, 1, 20)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.TotalPages)
}

func TestPredicates_Paginated(t *testing.T) {
	p := Predicates{Page: 0, PageSize: -3}.Paginated()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.PageSize)

	p = Predicates{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())

	p = Predicates{Page: math.MaxInt, PageSize: math.MaxInt}.Paginated()
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"cloud", "security", "ai"}, SearchTerms("Cloud security & AI, cloud!"))
	assert.Empty(t, SearchTerms("  --- "))
	assert.False(t, Predicates{Query: " ?! "}.HasText())
	assert.True(t, Predicates{Query: "fintech"}.HasText())
}

func TestCandidateMatch_EscapesMetacharacters(t *testing.T) {
	m := CandidateMatch{
		Names:   []string{"Acme (Cloud)", "Foo.Bar+", ""},
		Domains: []string{"acme.io"},
	}
	namePattern := m.NamePattern()
	assert.Equal(t, `Acme \(Cloud\)|Foo\.Bar\+`, namePattern)
	assert.Equal(t, `acme\.io`, m.DomainPattern())
	assert.True(t, m.UsesName())

	re, err := regexp.Compile("(?i)" + namePattern)
	require.NoError(t, err)
	assert.True(t, re.MatchString("ACME (CLOUD) Inc"))
	assert.False(t, re.MatchString("Acme Cloud"))
	assert.False(t, regexp.MustCompile(m.DomainPattern()).MatchString("acmexio"))
}

func TestCandidateMatch_Fallback(t *testing.T) {
	m := CandidateMatch{Fallback: "a.*b"}
	assert.False(t, m.HasCandidates())
	assert.True(t, m.UsesName())
	assert.Equal(t, `a\.\*b`, m.NamePattern())
	assert.Equal(t, "", m.DomainPattern())

	domainsOnly := CandidateMatch{Domains: []string{"x.com"}, Fallback: "ignored"}
	assert.False(t, domainsOnly.UsesName())
}

func TestIndexedTerms_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"cloud", "security"}, IndexedTerms(SearchTerms("The cloud and the security of it")))
	assert.Empty(t, IndexedTerms(SearchTerms("the and of")))
	assert.True(t, IsStopword("the"))
	assert.False(t, IsStopword("cloud"))
}
