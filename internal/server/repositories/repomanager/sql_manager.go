package repomanager

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/audit"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/reminders"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/secondfactor"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

// SQLRepositoryManager builds repositories that render statements for a
// single SQL dialect.
type SQLRepositoryManager struct {
	dialect database.Dialect
	sb      sq.StatementBuilderType
}

func NewSQLRepositoryManager(d database.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d, sb: d.Builder()}
}

func (m *SQLRepositoryManager) Dialect() database.Dialect {
	return m.dialect
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.sb)
}

func (m *SQLRepositoryManager) Notes(db dbx.DBTX) notes.Repository {
	return notes.NewSQLRepository(db, m.sb)
}

func (m *SQLRepositoryManager) Reminders(db dbx.DBTX) reminders.Repository {
	return reminders.NewSQLRepository(db, m.sb)
}

func (m *SQLRepositoryManager) SecondFactors(db dbx.DBTX) secondfactor.Repository {
	return secondfactor.NewSQLRepository(db, m.sb)
}

func (m *SQLRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewSQLRepository(db, m.sb)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return database.Migrate(ctx, m.dialect, db)
}
