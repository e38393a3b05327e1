package notes

import (
	"context"
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

func (r *SQLRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	q := r.sb.Insert("notes").
		Columns("user_id", "ciphertext", "created_at", "updated_at").
		Values(note.UserID, note.Ciphertext, note.CreatedAt, note.UpdatedAt).
		Suffix("RETURNING id")

	row, err := dbx.QueryRow(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := row.Scan(&note.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

// ListByUser returns the user's notes oldest first.
func (r *SQLRepository) ListByUser(ctx context.Context, userID int64) ([]models.Note, error) {
	q := r.sb.Select("id", "user_id", "ciphertext", "created_at", "updated_at").
		From("notes").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id")

	rows, err := dbx.Query(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Ciphertext, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) DeleteOwned(ctx context.Context, id, userID int64) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Delete("notes").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
