// Package search serves filtered, AI-translated and AI-assisted company searches.
package search

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/discovery"
	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

// Translator turns free text into predicates.
type Translator interface {
	Translate(ctx context.Context, freeText string) (types.Predicates, error)
}

// Service runs searches against the company store.
type Service struct {
	companies  store.Companies
	translator Translator
	finder     discovery.Finder
	logger     *zap.SugaredLogger
}

// NewService creates a search service. translator and finder may be nil when
// the AI endpoints are not served.
func NewService(companies store.Companies, translator Translator, finder discovery.Finder, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{companies: companies, translator: translator, finder: finder, logger: logger}
}

// ErrAIUnavailable is returned by AI searches when no model is configured.
var ErrAIUnavailable = errors.New("ai search is not configured")

// Search runs one faceted query for p.
func (s *Service) Search(ctx context.Context, p types.Predicates) (types.SearchPage, error) {
	p = p.Paginated()
	data, total, err := s.companies.SearchCompanies(ctx, p)
	if err != nil {
		return types.SearchPage{}, errors.Wrap(err, "search companies")
	}
	return types.NewSearchPage(data, total, p.Page, p.PageSize), nil
}

// BasicAISearch translates query into predicates and searches with them.
// Pagination always comes from the caller, never from the model. A failed
// translation fails the whole search.
func (s *Service) BasicAISearch(ctx context.Context, query string, page, pageSize int) (types.SearchPage, error) {
	if s.translator == nil {
		return types.SearchPage{}, ErrAIUnavailable
	}
	p, err := s.translator.Translate(ctx, query)
	if err != nil {
		return types.SearchPage{}, errors.Wrap(err, "translate query")
	}
	p.Page, p.PageSize = page, pageSize
	s.logger.Debugw("Translated query", "query", query, "predicates", p)
	return s.Search(ctx, p)
}

// AdvancedSearch runs a full-text search and, when that does not fill the
// page, tops it up with companies matching names and domains found by the
// external finder. The reported total is an estimate.
func (s *Service) AdvancedSearch(ctx context.Context, query string, page, pageSize int) (types.SearchPage, error) {
	p := types.Predicates{Query: query, Page: page, PageSize: pageSize}.Paginated()

	textDocs, textTotal, err := s.companies.SearchCompanies(ctx, p)
	if err != nil {
		return types.SearchPage{}, errors.Wrap(err, "full-text phase")
	}
	if len(textDocs) == p.PageSize {
		return types.NewSearchPage(textDocs, textTotal, p.Page, p.PageSize), nil
	}

	match := types.CandidateMatch{Fallback: query}
	if s.finder != nil {
		candidates, err := s.finder.FindCandidates(ctx, query)
		if err != nil {
			s.logger.Warnw("Candidate lookup failed, falling back to name match", "query", query, "error", err)
		} else {
			match.Names, match.Domains = candidates.Names, candidates.Domains
			if candidates.Skipped > 0 {
				s.logger.Debugw("Skipped unparseable search results", "query", query, "skipped", candidates.Skipped)
			}
		}
	}

	regexDocs, regexTotal, err := s.companies.MatchCompanies(ctx, match, p.Page, p.PageSize)
	if err != nil {
		return types.SearchPage{}, errors.Wrap(err, "candidate match phase")
	}

	merged := Merge(textDocs, regexDocs, p.PageSize)
	return types.NewSearchPage(merged, UnionEstimate(textTotal, regexTotal), p.Page, p.PageSize), nil
}

// Merge keeps primary in order and appends unseen secondary companies until
// the result holds pageSize entries.
func Merge(primary, secondary []types.Company, pageSize int) []types.Company {
	merged := make([]types.Company, 0, pageSize)
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	for _, c := range primary {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range secondary {
		if len(merged) >= pageSize {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}

// UnionEstimate treats the two phase totals as the disjoint index ranges
// [0, textTotal) and [textTotal, textTotal+matchTotal) and returns the size of
// their union. Overlap beyond the fetched pages is not computed, so the value
// is an upper bound.
func UnionEstimate(textTotal, matchTotal int) int {
	return max(textTotal, 0) + max(matchTotal, 0)
}
