// Package store is the secure data store: users, encrypted notes,
// reminders, second-factor credentials and the audit trail.
//
// A Store is a single shared instance. Mutations are serialized through one
// write lock and run inside a transaction together with the audit event
// they produce, so a failure leaves neither behind. Reads may run
// concurrently.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
)

// Cipher seals note content before it reaches the database.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type Store struct {
	mu          sync.RWMutex
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      Cipher
	log         logging.Logger
	now         func() time.Time
	language    string
}

type Option func(*Store)

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultLanguage sets the language new users start with.
func WithDefaultLanguage(lang string) Option {
	return func(s *Store) { s.language = lang }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l.With("module", "store") }
}

func New(db *sql.DB, m repomanager.RepositoryManager, c Cipher, opts ...Option) *Store {
	s := &Store{
		db:          db,
		repomanager: m,
		cipher:      c,
		log:         logging.Discard(),
		now:         func() time.Time { return time.Now().UTC() },
		language:    models.DefaultLanguage,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// write runs fn in a transaction while holding the write lock.
func (s *Store) write(ctx context.Context, op string, fn dbx.TxFunc) error {
	if err := dbx.WithLockedTx(ctx, &s.mu, s.db, nil, fn); err != nil {
		return wrap(op, err)
	}
	return nil
}

// read runs fn against the pool under the read lock.
func (s *Store) read(ctx context.Context, op string, fn func(ctx context.Context, db dbx.DBTX) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := fn(ctx, s.db); err != nil {
		return wrap(op, err)
	}
	return nil
}

// wrap marks err as a storage failure unless it is already one of the
// soft outcomes callers branch on.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, common.ErrStorage),
		errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrAlreadyExists),
		errors.Is(err, common.ErrSecondFactorNotEnrolled):
		return err
	}
	return fmt.Errorf("%w: %s: %w", common.ErrStorage, op, err)
}

func (s *Store) audit(ctx context.Context, tx dbx.DBTX, userID int64, kind models.AuditKind, detail models.AuditDetail) error {
	ev := &models.AuditEvent{UserID: userID, Kind: kind, Detail: detail, CreatedAt: s.now()}
	if err := s.repomanager.Audit(tx).Append(ctx, ev); err != nil {
		return fmt.Errorf("audit %s: %w", kind, err)
	}
	return nil
}

// AppendAudit records an event that has no accompanying mutation.
func (s *Store) AppendAudit(ctx context.Context, userID int64, kind models.AuditKind, detail models.AuditDetail) error {
	return s.write(ctx, "append audit", func(ctx context.Context, tx dbx.DBTX) error {
		return s.audit(ctx, tx, userID, kind, detail)
	})
}

// ListAudit returns the user's events in the order they were appended.
func (s *Store) ListAudit(ctx context.Context, userID int64) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	err := s.read(ctx, "list audit", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Audit(db).ListByUser(ctx, userID)
		return err
	})
	return out, err
}
