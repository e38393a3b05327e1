package users

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*models.User, error)
	SetLanguage(ctx context.Context, id int64, lang string) (bool, error)
	SetConsent(ctx context.Context, id int64, consent bool) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
