package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

// -----------------------------------------------------------------------------
// Company Methods
// -----------------------------------------------------------------------------

// SearchCompanies runs the faceted search for a predicate set
func (db *DB) SearchCompanies(ctx context.Context, p types.Predicates) ([]types.Company, int, error) {
	sql, args := buildSearchQuery(p)
	companies, total, err := db.queryPage(ctx, sql, args)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search companies: %w", err)
	}
	return companies, total, nil
}

// MatchCompanies runs the candidate match of an advanced search
func (db *DB) MatchCompanies(ctx context.Context, m types.CandidateMatch, page, pageSize int) ([]types.Company, int, error) {
	sql, args := buildMatchQuery(m, page, pageSize)
	companies, total, err := db.queryPage(ctx, sql, args)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to match companies: %w", err)
	}
	return companies, total, nil
}

// GetCompany retrieves a company by id
func (db *DB) GetCompany(ctx context.Context, id string) (*types.Company, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company %s: %w", id, err)
	}
	return c, nil
}

// SetCompanySummary overwrites the summary of a company
func (db *DB) SetCompanySummary(ctx context.Context, id, summary string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE companies SET summary = $1, updated_at = NOW() WHERE id = $2`,
		summary, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set summary for company %s: %w", id, err)
	}
	return nil
}

// InsertCompanies inserts companies in one batch; existing ids are left untouched
func (db *DB) InsertCompanies(ctx context.Context, companies []types.Company) (int, error) {
	if len(companies) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range companies {
		attrs, err := json.Marshal(nonNilExtra(c.Extra))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal attributes for company %s: %w", c.ID, err)
		}
		batch.Queue(
			`INSERT INTO companies (id, name, industry, country, locality, region, website, linkedin_url,
			                        founded, size, summary, attributes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			         COALESCE($13, NOW()), COALESCE($14, NOW()))
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name, c.Industry, c.Country, c.Locality, c.Region, c.Website, c.LinkedInURL,
			c.Founded, c.Size, c.Summary, attrs, timeOrNil(c.CreatedAt), timeOrNil(c.UpdatedAt),
		)
	}

	br := db.pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	inserted := 0
	for _, c := range companies {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert company %s: %w", c.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// queryPage executes a faceted statement built by facetedQuery.
func (db *DB) queryPage(ctx context.Context, sql string, args []any) ([]types.Company, int, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies := []types.Company{}
	total := 0
	for rows.Next() {
		var (
			r     nullableCompany
			count int64
		)
		if err := rows.Scan(&count, &r.id, &r.name, &r.industry, &r.country, &r.locality, &r.region,
			&r.website, &r.linkedinURL, &r.founded, &r.size, &r.summary, &r.attributes,
			&r.createdAt, &r.updatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan company: %w", err)
		}
		total = int(count)
		if r.id == nil {
			continue // empty page: only the total is present
		}
		c, err := r.company()
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

// nullableCompany receives a company row from the LEFT JOIN of a faceted query.
type nullableCompany struct {
	id, name, industry, country, locality, region *string
	website, linkedinURL, founded, size, summary   *string
	attributes                                    []byte
	createdAt, updatedAt                          *time.Time
}

func (r nullableCompany) company() (*types.Company, error) {
	c := &types.Company{
		ID:          deref(r.id),
		Name:        deref(r.name),
		Industry:    deref(r.industry),
		Country:     deref(r.country),
		Locality:    deref(r.locality),
		Region:      deref(r.region),
		Website:     deref(r.website),
		LinkedInURL: deref(r.linkedinURL),
		Founded:     deref(r.founded),
		Size:        deref(r.size),
		Summary:     r.summary,
	}
	if r.createdAt != nil {
		c.CreatedAt = *r.createdAt
	}
	if r.updatedAt != nil {
		c.UpdatedAt = *r.updatedAt
	}
	if err := decodeAttributes(r.attributes, c); err != nil {
		return nil, err
	}
	return c, nil
}

func scanCompany(row pgx.Row) (*types.Company, error) {
	var (
		c     types.Company
		attrs []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.Country, &c.Locality, &c.Region,
		&c.Website, &c.LinkedInURL, &c.Founded, &c.Size, &c.Summary, &attrs,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeAttributes(attrs, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeAttributes(data []byte, c *types.Company) error {
	if len(data) == 0 {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("failed to decode attributes for company %s: %w", c.ID, err)
	}
	if len(extra) > 0 {
		c.Extra = extra
	}
	return nil
}

func nonNilExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return map[string]any{}
	}
	return extra
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ store.Store = (*DB)(nil)
