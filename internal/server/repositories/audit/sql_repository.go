package audit

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, sb sq.StatementBuilderType) *SQLRepository {
	return &SQLRepository{db: db, sb: sb}
}

func (r *SQLRepository) Append(ctx context.Context, ev *models.AuditEvent) error {
	detail := ev.Detail
	if detail == nil {
		detail = models.AuditDetail{}
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode detail: %w", err)
	}

	q := r.sb.Insert("audit_events").
		Columns("user_id", "kind", "detail", "created_at").
		Values(ev.UserID, string(ev.Kind), string(raw), ev.CreatedAt).
		Suffix("RETURNING id")

	row, err := dbx.QueryRow(ctx, r.db, q)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := row.Scan(&ev.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByUser returns events in append order.
func (r *SQLRepository) ListByUser(ctx context.Context, userID int64) ([]models.AuditEvent, error) {
	q := r.sb.Select("id", "user_id", "kind", "detail", "created_at").
		From("audit_events").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id")

	rows, err := dbx.Query(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.AuditEvent
	for rows.Next() {
		var (
			ev   models.AuditEvent
			kind string
			raw  []byte
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &kind, &raw, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ev.Kind = models.AuditKind(kind)
		if err := json.Unmarshal(raw, &ev.Detail); err != nil {
			return nil, fmt.Errorf("decode detail of event %d: %w", ev.ID, err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
