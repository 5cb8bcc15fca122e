package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/af-corp/scribe/internal/types"
)

// Archive persists messages and alerts to Postgres for retention beyond the
// in-memory rings. It is best-effort: the rings stay authoritative for the
// bounded-history semantics.
type Archive struct {
	db *pgxpool.Pool
}

// NewArchive creates an archive. If db is nil every method is a no-op.
func NewArchive(db *pgxpool.Pool) *Archive {
	return &Archive{db: db}
}

func (a *Archive) Enabled() bool { return a != nil && a.db != nil }

// SaveMessage stores a composed message. The source request is kept as JSON
// so the schema does not chase request fields.
func (a *Archive) SaveMessage(ctx context.Context, identity string, msg types.ComposedMessage) error {
	if !a.Enabled() {
		return nil
	}
	reqJSON, err := json.Marshal(msg.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = a.db.Exec(ctx, `
		INSERT INTO messages (id, identity, body, request, favorited, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET body = $3, favorited = $5
	`, msg.ID, identity, msg.Text, reqJSON, msg.Favorited, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// SaveAlert stores a safety alert.
func (a *Archive) SaveAlert(ctx context.Context, identity string, alert types.Alert) error {
	if !a.Enabled() {
		return nil
	}
	_, err := a.db.Exec(ctx, `
		INSERT INTO alerts (id, identity, severity, excerpt, reason, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET resolved = $6
	`, alert.ID, identity, string(alert.Severity), alert.Excerpt, alert.Reason, alert.Resolved, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ResolveAlert marks an archived alert as resolved.
func (a *Archive) ResolveAlert(ctx context.Context, identity, id string) error {
	if !a.Enabled() {
		return nil
	}
	_, err := a.db.Exec(ctx, `
		UPDATE alerts SET resolved = TRUE WHERE id = $1 AND identity = $2
	`, id, identity)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}

// RecentMessages loads the identity's most recent archived messages.
func (a *Archive) RecentMessages(ctx context.Context, identity string, limit int) ([]types.ComposedMessage, error) {
	if !a.Enabled() {
		return nil, nil
	}
	rows, err := a.db.Query(ctx, `
		SELECT id, body, request, favorited, created_at
		FROM messages
		WHERE identity = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []types.ComposedMessage
	for rows.Next() {
		var msg types.ComposedMessage
		var reqJSON []byte
		var createdAt time.Time
		if err := rows.Scan(&msg.ID, &msg.Text, &reqJSON, &msg.Favorited, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = createdAt
		if len(reqJSON) > 0 {
			json.Unmarshal(reqJSON, &msg.Request)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
