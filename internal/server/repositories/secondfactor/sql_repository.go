package secondfactor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/notekeeper/internal/common"
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

func (r *SQLRepository) Upsert(ctx context.Context, sf *models.SecondFactor) error {
	q := r.sb.Insert("second_factors").
		Columns("user_id", "secret", "enabled", "created_at").
		Values(sf.UserID, sf.Secret, sf.Enabled, sf.CreatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET secret = excluded.secret, enabled = excluded.enabled, created_at = excluded.created_at")

	if _, err := dbx.Exec(ctx, r.db, q); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userID int64) (*models.SecondFactor, error) {
	q := r.sb.Select("user_id", "secret", "enabled", "created_at").
		From("second_factors").
		Where(sq.Eq{"user_id": userID})

	row, err := dbx.QueryRow(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	sf := &models.SecondFactor{}
	if err := row.Scan(&sf.UserID, &sf.Secret, &sf.Enabled, &sf.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sf, nil
}

func (r *SQLRepository) SetEnabled(ctx context.Context, userID int64, enabled bool) (bool, error) {
	q := r.sb.Update("second_factors").Set("enabled", enabled).Where(sq.Eq{"user_id": userID})

	ok, err := dbx.Affected(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID int64) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Delete("second_factors").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
