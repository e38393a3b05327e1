// Package audit stores the append-only user activity log.
package audit

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, ev *models.AuditEvent) error
	ListByUser(ctx context.Context, userID int64) ([]models.AuditEvent, error)
}
