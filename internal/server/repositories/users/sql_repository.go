package users

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

var columns = []string{"id", "external_id", "language", "gdpr_consent", "registered_at"}

type SQLRepository struct {
	db dbx.DBTX
	sb sq.StatementBuilderType
}

func NewSQLRepository(db dbx.DBTX, sb sq.StatementBuilderType) *SQLRepository {
	return &SQLRepository{db: db, sb: sb}
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	q := r.sb.Insert("users").
		Columns("external_id", "language", "gdpr_consent", "registered_at").
		Values(user.ExternalID, user.Language, user.GDPRConsent, user.RegisteredAt).
		Suffix("RETURNING id")

	row, err := dbx.QueryRow(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := row.Scan(&user.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *SQLRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"external_id": externalID})
}

func (r *SQLRepository) getOne(ctx context.Context, where sq.Eq) (*models.User, error) {
	row, err := dbx.QueryRow(ctx, r.db, r.sb.Select(columns...).From("users").Where(where))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	u := &models.User{}
	err = row.Scan(&u.ID, &u.ExternalID, &u.Language, &u.GDPRConsent, &u.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *SQLRepository) SetLanguage(ctx context.Context, id int64, lang string) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Update("users").Set("language", lang).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *SQLRepository) SetConsent(ctx context.Context, id int64, consent bool) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Update("users").Set("gdpr_consent", consent).Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Delete removes the user; owned rows go with it through ON DELETE CASCADE.
func (r *SQLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := dbx.Affected(ctx, r.db, r.sb.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
