package reminders

import (
	"context"
	"database/sql"
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

func (r *SQLRepository) Create(ctx context.Context, rem *models.Reminder) (*models.Reminder, error) {
	q := r.sb.Insert("reminders").
		Columns("user_id", "text", "time_of_day", "recurring", "completed", "created_at").
		Values(rem.UserID, rem.Text, rem.TimeOfDay, rem.Recurring, false, rem.CreatedAt).
		Suffix("RETURNING id")

	row, err := dbx.QueryRow(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := row.Scan(&rem.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	rem.Completed = false
	return rem, nil
}

func (r *SQLRepository) ListPendingByUser(ctx context.Context, userID int64) ([]models.Reminder, error) {
	q := r.sb.Select("r.id", "r.user_id", "r.text", "r.time_of_day", "r.recurring", "r.completed", "r.created_at", "u.external_id").
		From("reminders r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.user_id": userID, "r.completed": false}).
		OrderBy("r.time_of_day", "r.id")

	return r.list(ctx, q)
}

func (r *SQLRepository) ListAllPending(ctx context.Context) ([]models.Reminder, error) {
	q := r.sb.Select("r.id", "r.user_id", "r.text", "r.time_of_day", "r.recurring", "r.completed", "r.created_at", "u.external_id").
		From("reminders r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.completed": false}).
		OrderBy("r.id")

	return r.list(ctx, q)
}

func (r *SQLRepository) list(ctx context.Context, q sq.SelectBuilder) ([]models.Reminder, error) {
	rows, err := dbx.Query(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Reminder
	for rows.Next() {
		rem, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func scan(rows *sql.Rows) (models.Reminder, error) {
	var rem models.Reminder
	err := rows.Scan(&rem.ID, &rem.UserID, &rem.Text, &rem.TimeOfDay, &rem.Recurring, &rem.Completed,
		&rem.CreatedAt, &rem.OwnerExternalID)
	return rem, err
}

func (r *SQLRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	q := r.sb.Update("reminders").
		Set("completed", true).
		Where(sq.Eq{"id": id, "recurring": false, "completed": false})

	ok, err := dbx.Affected(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLRepository) DeleteOwned(ctx context.Context, id, userID int64) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Delete("reminders").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
