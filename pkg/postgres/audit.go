package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/handsofstluke/pantry/pkg/db"
)

// execQuerier covers both *pgxpool.Pool and pgx.Tx for plain writes
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InsertAudit appends an audit entry
func (d *DB) InsertAudit(ctx context.Context, entry *db.AuditEntry) error {
	return insertAuditTx(ctx, d.pool, entry)
}

func insertAuditTx(ctx context.Context, q execQuerier, entry *db.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_log (id, action, details, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.ID, entry.Action, details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
