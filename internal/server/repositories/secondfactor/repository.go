package secondfactor

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// Repository stores at most one TOTP credential per user.
type Repository interface {
	// Upsert inserts the credential or replaces the existing one.
	Upsert(ctx context.Context, sf *models.SecondFactor) error
	// Get returns common.ErrNotFound when the user never enrolled.
	Get(ctx context.Context, userID int64) (*models.SecondFactor, error)
	SetEnabled(ctx context.Context, userID int64, enabled bool) (bool, error)
	Delete(ctx context.Context, userID int64) (bool, error)
}
