package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/prospector/internal/apperr"
	"github.com/jonathan/prospector/internal/discovery"
	"github.com/jonathan/prospector/internal/llm"
	"github.com/jonathan/prospector/internal/store/memory"
	"github.com/jonathan/prospector/internal/translate"
	"github.com/jonathan/prospector/internal/types"
)

func intPtr(n int) *int { return &n }

func seeded(t *testing.T, companies ...types.Company) *memory.Store {
	t.Helper()
	s := memory.New()
	_, err := s.InsertCompanies(context.Background(), companies)
	require.NoError(t, err)
	return s
}

func ids(companies []types.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.ID)
	}
	return out
}

type countingFinder struct {
	calls      int
	candidates discovery.Candidates
	err        error
}

func (f *countingFinder) FindCandidates(context.Context, string) (discovery.Candidates, error) {
	f.calls++
	return f.candidates, f.err
}

type stubTranslator struct {
	p   types.Predicates
	err error
}

func (s stubTranslator) Translate(context.Context, string) (types.Predicates, error) {
	return s.p, s.err
}

type stubLLM struct {
	reply string
	calls int
}

func (s *stubLLM) Complete(context.Context, llm.Request) (string, error) {
	s.calls++
	return s.reply, nil
}
func (s *stubLLM) GetModel(llm.ModelTier) string { return "stub" }
func (s *stubLLM) Close() error                  { return nil }

func TestSearch_SizeScenarios(t *testing.T) {
	svc := NewService(seeded(t,
		types.Company{ID: "c1", Name: "Acme", Size: "50-100"},
		types.Company{ID: "c2", Name: "Globex", Size: "200+"},
	), nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		size int
		want []string
	}{
		{75, []string{"c1"}},
		{150, []string{}},
		{500, []string{"c2"}},
		{100, []string{"c1"}},
	}
	for _, tc := range cases {
		page, err := svc.Search(ctx, types.Predicates{Size: intPtr(tc.size), Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, tc.want, ids(page.Data), "size=%d", tc.size)
		assert.Equal(t, 1, page.TotalPages)
	}
}

func TestSearch_TextPagination(t *testing.T) {
	svc := NewService(seeded(t,
		types.Company{ID: "a", Name: "Cloud Nine"},
		types.Company{ID: "b", Name: "Acme", Industry: "cloud"},
		types.Company{ID: "c", Name: "Groundwork"},
	), nil, nil, nil)

	page, err := svc.Search(context.Background(), types.Predicates{Query: "cloud", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestSearch_EmptyResultStillHasOnePage(t *testing.T) {
	svc := NewService(seeded(t), nil, nil, nil)

	page, err := svc.Search(context.Background(), types.Predicates{Country: "nowhere", Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.PageSize)
}

func TestBasicAISearch_ForcesPagination(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Country: "germany"},
		types.Company{ID: "b", Country: "germany"},
		types.Company{ID: "c", Country: "france"},
	)
	svc := NewService(store, stubTranslator{p: types.Predicates{Country: "germany", Page: 9, PageSize: 50}}, nil, nil)

	page, err := svc.BasicAISearch(context.Background(), "german companies", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page.Data))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 1, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
}

func TestBasicAISearch_NonJSONReplyFailsRequest(t *testing.T) {
	store := seeded(t, types.Company{ID: "a", Name: "Acme"})
	model := &stubLLM{reply: "Sure! Here are some fintech companies."}
	svc := NewService(store, translate.New(model, nil), nil, nil)

	page, err := svc.BasicAISearch(context.Background(), "fintech in germany", 1, 20)
	require.Error(t, err)
	assert.True(t, translate.IsTranslationError(err))
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, model.calls)
}

func TestBasicAISearch_ApologyWithEmptyObjectFailsRequest(t *testing.T) {
	store := seeded(t, types.Company{ID: "c1", Name: "Acme"}, types.Company{ID: "c2", Name: "Beta"})
	model := &stubLLM{reply: "Sorry, I can't map that request to filters. {}"}
	svc := NewService(store, translate.New(model, nil), nil, nil)

	page, err := svc.BasicAISearch(context.Background(), "quantum biotech in mars", 1, 20)
	require.Error(t, err)
	assert.True(t, translate.IsTranslationError(err))
	assert.Empty(t, page.Data)
	assert.Zero(t, page.Total)
}

func TestBasicAISearch_TranslatedKeyword(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Name: "Payments Co", Country: "germany", Industry: "fintech"},
		types.Company{ID: "b", Name: "Banking Co", Country: "germany", Industry: "fintech"},
		types.Company{ID: "c", Name: "Payments Inc", Country: "france", Industry: "fintech"},
	)
	model := &stubLLM{reply: `{"country":"germany","keyword":"payments","page":7}`}
	svc := NewService(store, translate.New(model, nil), nil, nil)

	page, err := svc.BasicAISearch(context.Background(), "payment startups in germany", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page.Data))
	assert.Equal(t, 1, page.Page)
}

func TestBasicAISearch_Unavailable(t *testing.T) {
	svc := NewService(seeded(t), nil, nil, nil)
	_, err := svc.BasicAISearch(context.Background(), "anything", 1, 20)
	assert.ErrorIs(t, err, ErrAIUnavailable)
}

func TestAdvancedSearch_ShortCircuitsWhenPageIsFull(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Name: "Cloud Nine"},
		types.Company{ID: "b", Name: "Cloud Ten"},
	)
	finder := &countingFinder{}
	svc := NewService(store, nil, finder, nil)

	page, err := svc.AdvancedSearch(context.Background(), "cloud", 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Total)
	assert.Zero(t, finder.calls)
}

func TestAdvancedSearch_MergesCandidates(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Name: "Rocket Labs"},
		types.Company{ID: "b", Name: "Orbital Works", Website: "https://orbital.io"},
		types.Company{ID: "c", Name: "Rocket Labs Europe"},
		types.Company{ID: "d", Name: "Unrelated"},
	)
	finder := &countingFinder{candidates: discovery.Candidates{
		Names:   []string{"Rocket Labs"},
		Domains: []string{"orbital.io"},
	}}
	svc := NewService(store, nil, finder, nil)

	page, err := svc.AdvancedSearch(context.Background(), "rocket", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, finder.calls)

	// Full-text hits come first, then candidate matches not already present.
	require.Len(t, page.Data, 3)
	textPrefix := ids(page.Data)[:2]
	assert.ElementsMatch(t, []string{"a", "c"}, textPrefix)
	assert.Equal(t, "b", page.Data[2].ID)
	assert.Equal(t, 2+3, page.Total)
}

func TestAdvancedSearch_FinderErrorFallsBackToQuery(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Name: "Acme (Holdings)"},
		types.Company{ID: "b", Name: "Other"},
	)
	finder := &countingFinder{err: errors.New("blocked by captcha")}
	svc := NewService(store, nil, finder, nil)

	page, err := svc.AdvancedSearch(context.Background(), "(Holdings)", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, finder.calls)
	assert.Contains(t, ids(page.Data), "a")
	assert.NotContains(t, ids(page.Data), "b")
}

func TestAdvancedSearch_EscapesCandidateMetacharacters(t *testing.T) {
	store := seeded(t,
		types.Company{ID: "a", Name: "A+B Partners"},
		types.Company{ID: "b", Name: "AAB Partners"},
	)
	finder := &countingFinder{candidates: discovery.Candidates{Names: []string{"A+B"}}}
	svc := NewService(store, nil, finder, nil)

	page, err := svc.AdvancedSearch(context.Background(), "zzz", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(page.Data))
}

func TestMerge_DedupKeepsPrimaryPrefix(t *testing.T) {
	primary := []types.Company{{ID: "3"}, {ID: "1"}}
	secondary := []types.Company{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}

	merged := Merge(primary, secondary, 4)
	assert.Equal(t, []string{"3", "1", "2", "4"}, ids(merged))
}

func TestMerge_PrimaryAlreadyFull(t *testing.T) {
	primary := []types.Company{{ID: "1"}, {ID: "2"}}
	merged := Merge(primary, []types.Company{{ID: "9"}}, 2)
	assert.Equal(t, []string{"1", "2"}, ids(merged))
}

func TestUnionEstimate(t *testing.T) {
	assert.Equal(t, 0, UnionEstimate(0, 0))
	assert.Equal(t, 7, UnionEstimate(3, 4))
	assert.Equal(t, 4, UnionEstimate(-1, 4))
}

func TestSearch_OversizedPageSizeKeepsTotalPagesPositive(t *testing.T) {
	store := seeded(t, types.Company{ID: "a", Name: "Acme"}, types.Company{ID: "b", Name: "Beta"})
	svc := NewService(store, nil, nil, nil)

	page, err := svc.Search(context.Background(), types.Predicates{Page: 1, PageSize: 9223372036854775807})
	require.NoError(t, err)
	assert.Equal(t, types.MaxPageSize, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"a", "b"}, ids(page.Data))
}
