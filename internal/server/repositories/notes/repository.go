// Package notes persists encrypted notes. Repositories only ever see
// ciphertext; encryption happens in the store.
package notes

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Note, error)
	// DeleteOwned reports false when no note matches both id and owner.
	DeleteOwned(ctx context.Context, id, userID int64) (bool, error)
}
