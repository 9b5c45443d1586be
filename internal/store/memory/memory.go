// Package memory is an in-process store with the query semantics of the
// Postgres store, minus stemming: full-text terms match whole words only, and
// English stopwords are ignored as the Postgres index ignores them. It backs
// local runs without a database and end-to-end tests.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

type savedProspect struct {
	companyID string
	seq       int
}

// Store is a mutex-guarded map of companies plus saved prospects.
type Store struct {
	mu        sync.RWMutex
	companies map[string]*types.Company
	prospects map[string][]savedProspect
	seq       int
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		companies: make(map[string]*types.Company),
		prospects: make(map[string][]savedProspect),
		now:       time.Now,
	}
}

var _ store.Store = (*Store)(nil)

// Close is a no-op.
func (s *Store) Close() {}

// SearchCompanies filters, ranks and pages under one read lock, so the page
// and total see the same snapshot.
func (s *Store) SearchCompanies(_ context.Context, p types.Predicates) ([]types.Company, int, error) {
	p = p.Paginated()
	terms := types.SearchTerms(p.Query)
	indexed := types.IndexedTerms(terms)
	if len(terms) > 0 && len(indexed) == 0 {
		return []types.Company{}, 0, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		c     *types.Company
		score int
	}
	var matched []scored
	for _, c := range s.companies {
		if !matchesFields(c, p) {
			continue
		}
		score := 0
		if len(indexed) > 0 {
			score = textScore(c, indexed)
			if score == 0 {
				continue
			}
		}
		matched = append(matched, scored{c: c, score: score})
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].c.ID < matched[j].c.ID
	})

	ordered := make([]*types.Company, len(matched))
	for i, m := range matched {
		ordered[i] = m.c
	}
	return pageOf(ordered, p.Page, p.PageSize), len(ordered), nil
}

// MatchCompanies applies the candidate match as case-insensitive regexes in id order.
func (s *Store) MatchCompanies(_ context.Context, m types.CandidateMatch, page, pageSize int) ([]types.Company, int, error) {
	page, pageSize = types.ClampPage(page, pageSize)

	var nameRe, domainRe *regexp.Regexp
	var err error
	if m.UsesName() {
		if nameRe, err = regexp.Compile("(?i)" + m.NamePattern()); err != nil {
			return nil, 0, fmt.Errorf("invalid name pattern: %w", err)
		}
	}
	if d := m.DomainPattern(); d != "" {
		if domainRe, err = regexp.Compile("(?i)" + d); err != nil {
			return nil, 0, fmt.Errorf("invalid domain pattern: %w", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*types.Company
	for _, c := range s.companies {
		if (nameRe != nil && nameRe.MatchString(c.Name)) ||
			(domainRe != nil && (domainRe.MatchString(c.Website) || domainRe.MatchString(c.LinkedInURL))) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return pageOf(matched, page, pageSize), len(matched), nil
}

// GetCompany returns a copy of the stored company, or nil.
func (s *Store) GetCompany(_ context.Context, id string) (*types.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	cp := clone(c)
	return &cp, nil
}

// SetCompanySummary overwrites the summary; unknown ids are ignored like an
// UPDATE that matches no row.
func (s *Store) SetCompanySummary(_ context.Context, id, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.companies[id]; ok {
		c.Summary = &summary
		c.UpdatedAt = s.now()
	}
	return nil
}

// InsertCompanies adds companies whose id is not present yet.
func (s *Store) InsertCompanies(_ context.Context, companies []types.Company) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, c := range companies {
		if c.ID == "" {
			return inserted, fmt.Errorf("company %q has no id", c.Name)
		}
		if _, exists := s.companies[c.ID]; exists {
			continue
		}
		cp := clone(&c)
		now := s.now()
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		if cp.UpdatedAt.IsZero() {
			cp.UpdatedAt = now
		}
		s.companies[c.ID] = &cp
		inserted++
	}
	return inserted, nil
}

// ToggleProspect saves or unsaves a company for a user.
func (s *Store) ToggleProspect(_ context.Context, userID, companyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.prospects[userID]
	for i, p := range saved {
		if p.companyID == companyID {
			s.prospects[userID] = append(saved[:i:i], saved[i+1:]...)
			return false, nil
		}
	}
	s.seq++
	s.prospects[userID] = append(saved, savedProspect{companyID: companyID, seq: s.seq})
	return true, nil
}

// ListProspects returns saved companies, newest save first.
func (s *Store) ListProspects(_ context.Context, userID string) ([]types.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	saved := append([]savedProspect(nil), s.prospects[userID]...)
	sort.Slice(saved, func(i, j int) bool { return saved[i].seq > saved[j].seq })

	out := []types.Company{}
	for _, p := range saved {
		if c, ok := s.companies[p.companyID]; ok {
			out = append(out, clone(c))
		}
	}
	return out, nil
}

func matchesFields(c *types.Company, p types.Predicates) bool {
	if p.Country != "" && c.Country != p.Country {
		return false
	}
	if p.Industry != "" && c.Industry != p.Industry {
		return false
	}
	if p.Website != "" && c.Website != p.Website {
		return false
	}
	if p.LinkedInURL != "" && c.LinkedInURL != p.LinkedInURL {
		return false
	}
	if p.FoundedFrom != nil {
		year, ok := c.FoundedYear()
		if !ok || year < *p.FoundedFrom {
			return false
		}
	}
	if p.Size != nil {
		r, ok := c.SizeRange()
		if !ok || !r.Contains(*p.Size) {
			return false
		}
	}
	return true
}

// textScore counts occurrences of any query term among the indexed fields.
func textScore(c *types.Company, terms []string) int {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	score := 0
	for _, field := range []string{c.Name, c.Industry, c.Locality, c.Region, c.Website} {
		for _, tok := range tokens(field) {
			if want[tok] {
				score++
			}
		}
	}
	return score
}

// tokens splits like types.SearchTerms but keeps duplicates.
func tokens(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

func pageOf(ordered []*types.Company, page, pageSize int) []types.Company {
	page, pageSize = types.ClampPage(page, pageSize)
	start := (page - 1) * pageSize
	out := []types.Company{}
	if start >= len(ordered) {
		return out
	}
	end := min(start+pageSize, len(ordered))
	for _, c := range ordered[start:end] {
		out = append(out, clone(c))
	}
	return out
}

func clone(c *types.Company) types.Company {
	cp := *c
	if c.Summary != nil {
		s := *c.Summary
		cp.Summary = &s
	}
	if c.Extra != nil {
		cp.Extra = make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			cp.Extra[k] = v
		}
	}
	return cp
}
