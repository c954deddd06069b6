package repo

import (
	"context"
	"fmt"
)

// InsertLead stores a captured lead.
func (r *Repository) InsertLead(ctx context.Context, lead Lead) (*Lead, error) {
	const q = `
INSERT INTO leads (phone, name, city, pincode, user_type, question, artifact_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at;
`
	row := r.pool.QueryRow(ctx, q,
		lead.Phone, lead.Name, lead.City, lead.Pincode, lead.UserType, lead.Question, lead.ArtifactURL,
	)
	if err := row.Scan(&lead.ID, &lead.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return &lead, nil
}

// ListLeads returns the most recent leads for the admin surface.
func (r *Repository) ListLeads(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, phone, name, city, pincode, user_type, question, artifact_url, created_at
FROM leads
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var l Lead
		if err := rows.Scan(&l.ID, &l.Phone, &l.Name, &l.City, &l.Pincode, &l.UserType, &l.Question, &l.ArtifactURL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}
