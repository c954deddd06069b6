package repo

import (
	"context"
	"fmt"
	"time"
)

// GetSession returns the session row for a phone number, or nil if absent.
func (r *Repository) GetSession(ctx context.Context, phone string) (*Session, error) {
	const q = `
SELECT id, phone, stage, previous_stage, user_type, context, last_message_at, reminded_at, created_at, updated_at
FROM sessions
WHERE phone = $1
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, q, phone)
	var s Session
	var ctxJSON []byte
	if err := row.Scan(&s.ID, &s.Phone, &s.Stage, &s.PreviousStage, &s.UserType, &ctxJSON, &s.LastMessageAt, &s.RemindedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Context = fromJSON(ctxJSON)
	return &s, nil
}

// UpsertSession stores the session, creating the row on first contact.
// last_message_at is always refreshed.
func (r *Repository) UpsertSession(ctx context.Context, s Session) (*Session, error) {
	ctxJSON, err := toJSON(s.Context)
	if err != nil {
		return nil, err
	}

	const q = `
INSERT INTO sessions (phone, stage, previous_stage, user_type, context, last_message_at, reminded_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), $6, NOW())
ON CONFLICT (phone) DO UPDATE SET
    stage = EXCLUDED.stage,
    previous_stage = EXCLUDED.previous_stage,
    user_type = EXCLUDED.user_type,
    context = EXCLUDED.context,
    last_message_at = NOW(),
    reminded_at = EXCLUDED.reminded_at,
    updated_at = NOW()
RETURNING id, phone, stage, previous_stage, user_type, context, last_message_at, reminded_at, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, q, s.Phone, s.Stage, s.PreviousStage, s.UserType, ctxJSON, s.RemindedAt)

	var saved Session
	var savedCtx []byte
	if err := row.Scan(&saved.ID, &saved.Phone, &saved.Stage, &saved.PreviousStage, &saved.UserType, &savedCtx, &saved.LastMessageAt, &saved.RemindedAt, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	saved.Context = fromJSON(savedCtx)
	return &saved, nil
}

// TouchSession refreshes last_message_at without changing any other field,
// used while a session sits in manual takeover.
func (r *Repository) TouchSession(ctx context.Context, phone string) error {
	const q = `UPDATE sessions SET last_message_at = NOW(), updated_at = NOW() WHERE phone = $1;`
	if _, err := r.pool.Exec(ctx, q, phone); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// SetSessionStage forces a stage, used for admin manual takeover and release.
func (r *Repository) SetSessionStage(ctx context.Context, phone, stage string) error {
	const q = `
INSERT INTO sessions (phone, stage)
VALUES ($1, $2)
ON CONFLICT (phone) DO UPDATE SET stage = EXCLUDED.stage, updated_at = NOW();
`
	if _, err := r.pool.Exec(ctx, q, phone, stage); err != nil {
		return fmt.Errorf("set session stage: %w", err)
	}
	return nil
}

// ListInactiveSessions returns sessions idle since the cutoff that have not
// been reminded after their last message.
func (r *Repository) ListInactiveSessions(ctx context.Context, cutoff time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, phone, stage, previous_stage, user_type, context, last_message_at, reminded_at, created_at, updated_at
FROM sessions
WHERE last_message_at < $1
  AND stage <> 'manual'
  AND (reminded_at IS NULL OR reminded_at < last_message_at)
ORDER BY last_message_at ASC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list inactive sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var ctxJSON []byte
		if err := rows.Scan(&s.ID, &s.Phone, &s.Stage, &s.PreviousStage, &s.UserType, &ctxJSON, &s.LastMessageAt, &s.RemindedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inactive session: %w", err)
		}
		s.Context = fromJSON(ctxJSON)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inactive sessions: %w", err)
	}
	return sessions, nil
}

// MarkSessionReminded records that an inactivity reminder went out.
func (r *Repository) MarkSessionReminded(ctx context.Context, phone string) error {
	const q = `UPDATE sessions SET reminded_at = NOW(), updated_at = NOW() WHERE phone = $1;`
	if _, err := r.pool.Exec(ctx, q, phone); err != nil {
		return fmt.Errorf("mark session reminded: %w", err)
	}
	return nil
}
