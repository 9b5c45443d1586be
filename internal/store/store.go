// Package store declares the persistence contracts shared by the Postgres and in-memory backends.
package store

import (
	"context"

	"github.com/jonathan/prospector/internal/types"
)

// Companies is the document-store surface used by search and enrichment.
type Companies interface {
	// SearchCompanies runs one faceted query: the requested page and the total
	// number of matches, both computed from the same filtered set.
	SearchCompanies(ctx context.Context, p types.Predicates) ([]types.Company, int, error)
	// MatchCompanies runs the candidate match of an advanced search in id order.
	MatchCompanies(ctx context.Context, m types.CandidateMatch, page, pageSize int) ([]types.Company, int, error)
	// GetCompany returns nil, nil when no company has the id.
	GetCompany(ctx context.Context, id string) (*types.Company, error)
	// SetCompanySummary overwrites the summary of one company.
	SetCompanySummary(ctx context.Context, id, summary string) error
	// InsertCompanies inserts new companies, ignoring ids that already exist,
	// and returns the number inserted.
	InsertCompanies(ctx context.Context, companies []types.Company) (int, error)
}

// Prospects is the saved-company list of each user.
type Prospects interface {
	// ToggleProspect saves or unsaves a company and reports whether it is now saved.
	ToggleProspect(ctx context.Context, userID, companyID string) (bool, error)
	// ListProspects returns saved companies, most recently saved first.
	ListProspects(ctx context.Context, userID string) ([]types.Company, error)
}

// Store is a complete backend.
type Store interface {
	Companies
	Prospects
	Close()
}
