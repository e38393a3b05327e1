// Package repomanager vends the per-entity repositories bound to a given
// connection or transaction, and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/audit"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/reminders"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/secondfactor"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Notes(db dbx.DBTX) notes.Repository
	Reminders(db dbx.DBTX) reminders.Repository
	SecondFactors(db dbx.DBTX) secondfactor.Repository
	Audit(db dbx.DBTX) audit.Repository
}
