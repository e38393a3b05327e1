package reminders

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.Reminder) (*models.Reminder, error)
	ListPendingByUser(ctx context.Context, userID int64) ([]models.Reminder, error)
	// ListAllPending returns every non-completed reminder with
	// OwnerExternalID filled in, for re-arming timers at boot.
	ListAllPending(ctx context.Context) ([]models.Reminder, error)
	// MarkCompleted retires a pending one-shot reminder. Recurring
	// reminders are never completed, and completion is never undone.
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	DeleteOwned(ctx context.Context, id, userID int64) (bool, error)
}
