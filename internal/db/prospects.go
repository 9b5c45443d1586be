package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/prospector/internal/types"
)

// ToggleProspect saves a company for a user, or removes it when already saved.
// Returns true when the company is saved after the call.
func (db *DB) ToggleProspect(ctx context.Context, userID, companyID string) (bool, error) {
	var saved bool
	err := db.pool.QueryRow(ctx,
		`WITH removed AS (
			DELETE FROM prospects WHERE user_id = $1 AND company_id = $2 RETURNING 1
		)
		INSERT INTO prospects (user_id, company_id)
		SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
		RETURNING TRUE`,
		userID, companyID,
	).Scan(&saved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to toggle prospect: %w", err)
	}
	return saved, nil
}

// ListProspects returns the saved companies of a user, newest save first.
// Saved ids whose company no longer exists are skipped.
func (db *DB) ListProspects(ctx context.Context, userID string) ([]types.Company, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.name, c.industry, c.country, c.locality, c.region, c.website, c.linkedin_url,
		        c.founded, c.size, c.summary, c.attributes, c.created_at, c.updated_at
		 FROM prospects p
		 JOIN companies c ON c.id = p.company_id
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC, p.company_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prospects: %w", err)
	}
	defer rows.Close()

	companies := []types.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prospect: %w", err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}
