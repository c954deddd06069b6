package repo

import (
	"context"
	"fmt"
)

// InsertChatMessage appends an immutable chat-history row.
func (r *Repository) InsertChatMessage(ctx context.Context, msg ChatMessage) error {
	const q = `
INSERT INTO chat_history (phone, sender, body, media_url, provider_message_id, delivery_status)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, q,
		msg.Phone,
		msg.Sender,
		msg.Body,
		msg.MediaURL,
		msg.ProviderMessageID,
		msg.DeliveryStatus,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus sets the delivery status on the row matching the
// provider message id. Unknown ids are ignored, providers replay callbacks.
func (r *Repository) UpdateDeliveryStatus(ctx context.Context, providerMessageID, status string) error {
	const q = `
UPDATE chat_history
SET delivery_status = $2
WHERE provider_message_id = $1;
`
	if _, err := r.pool.Exec(ctx, q, providerMessageID, status); err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	return nil
}

// ListRecentChat returns the latest messages exchanged with the phone number,
// newest first.
func (r *Repository) ListRecentChat(ctx context.Context, phone string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT id, phone, sender, body, media_url, provider_message_id, delivery_status, created_at
FROM chat_history
WHERE phone = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, q, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent chat: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.Phone, &m.Sender, &m.Body, &m.MediaURL, &m.ProviderMessageID, &m.DeliveryStatus, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent chat: %w", err)
	}
	return msgs, nil
}
