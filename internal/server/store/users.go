package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// CreateUser registers a new user. ErrAlreadyExists is returned when the
// external id is taken.
func (s *Store) CreateUser(ctx context.Context, externalID int64) (*models.User, error) {
	var u *models.User
	err := s.write(ctx, "create user", func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Users(tx).GetByExternalID(ctx, externalID)
		switch {
		case err == nil:
			return fmt.Errorf("user %d: %w", externalID, common.ErrAlreadyExists)
		case !errors.Is(err, common.ErrNotFound):
			return err
		}
		u, err = s.createUser(ctx, tx, externalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) createUser(ctx context.Context, tx dbx.DBTX, externalID int64) (*models.User, error) {
	u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
		ExternalID:   externalID,
		Language:     s.language,
		RegisteredAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, u.ID, models.AuditUserRegistered, models.AuditDetail{"external_id": externalID}); err != nil {
		return nil, err
	}
	return u, nil
}

// GetOrCreateUser returns the user behind externalID, registering it on
// first contact. created reports whether a registration happened.
func (s *Store) GetOrCreateUser(ctx context.Context, externalID int64) (u *models.User, created bool, err error) {
	err = s.read(ctx, "get user", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		u, err = s.repomanager.Users(db).GetByExternalID(ctx, externalID)
		return err
	})
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	err = s.write(ctx, "get or create user", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		// another session may have registered it in the meantime
		u, err = s.repomanager.Users(tx).GetByExternalID(ctx, externalID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		u, err = s.createUser(ctx, tx, externalID)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

// GetUser returns common.ErrNotFound for an unknown id.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u *models.User
	err := s.read(ctx, "get user", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		u, err = s.repomanager.Users(db).GetByID(ctx, userID)
		return err
	})
	return u, err
}

// SetLanguage changes the preferred language. Only models.SupportedLanguages
// are accepted.
func (s *Store) SetLanguage(ctx context.Context, userID int64, lang string) error {
	if !slices.Contains(models.SupportedLanguages, lang) {
		return fmt.Errorf("%w: unsupported language %q", common.ErrValidation, lang)
	}
	return s.write(ctx, "set language", func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repomanager.Users(tx).SetLanguage(ctx, userID, lang)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrNotFound
		}
		return s.audit(ctx, tx, userID, models.AuditSettingsChanged, models.AuditDetail{"language": lang})
	})
}

// SetConsent records the user's answer to the data-processing consent.
func (s *Store) SetConsent(ctx context.Context, userID int64, consent bool) error {
	return s.write(ctx, "set consent", func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repomanager.Users(tx).SetConsent(ctx, userID, consent)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrNotFound
		}
		return s.audit(ctx, tx, userID, models.AuditGDPRConsent, models.AuditDetail{"consent": consent})
	})
}

// DeleteUser erases the user and, by cascade, everything it owns including
// the audit trail. The erasure request is audited in the same transaction
// and goes with the rest. false means the user was unknown.
func (s *Store) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	var deleted bool
	err := s.write(ctx, "delete user", func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).GetByID(ctx, userID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.audit(ctx, tx, userID, models.AuditErasureRequested, nil); err != nil {
			return err
		}
		var err error
		deleted, err = s.repomanager.Users(tx).Delete(ctx, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
