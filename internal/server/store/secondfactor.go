package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// EnrollSecondFactor stores secret as the user's only credential,
// replacing any previous one.
func (s *Store) EnrollSecondFactor(ctx context.Context, userID int64, secret string, enabled bool) error {
	return s.write(ctx, "enroll second factor", func(ctx context.Context, tx dbx.DBTX) error {
		sf := &models.SecondFactor{UserID: userID, Secret: secret, Enabled: enabled, CreatedAt: s.now()}
		if err := s.repomanager.SecondFactors(tx).Upsert(ctx, sf); err != nil {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditSecondFactorOn, models.AuditDetail{"enabled": enabled})
	})
}

// GetSecondFactor returns common.ErrSecondFactorNotEnrolled when the user
// has no credential.
func (s *Store) GetSecondFactor(ctx context.Context, userID int64) (*models.SecondFactor, error) {
	var sf *models.SecondFactor
	err := s.read(ctx, "get second factor", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		sf, err = s.repomanager.SecondFactors(db).Get(ctx, userID)
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrSecondFactorNotEnrolled
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return sf, nil
}

// GetSecondFactorSecret is GetSecondFactor reduced to the shared secret.
func (s *Store) GetSecondFactorSecret(ctx context.Context, userID int64) (string, error) {
	sf, err := s.GetSecondFactor(ctx, userID)
	if err != nil {
		return "", err
	}
	return sf.Secret, nil
}

// SetSecondFactorEnabled switches an enrolled credential on or off without
// touching the secret. false means the user is not enrolled.
func (s *Store) SetSecondFactorEnabled(ctx context.Context, userID int64, enabled bool) (bool, error) {
	var ok bool
	err := s.write(ctx, "toggle second factor", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ok, err = s.repomanager.SecondFactors(tx).SetEnabled(ctx, userID, enabled)
		if err != nil || !ok {
			return err
		}
		kind := models.AuditSecondFactorOn
		if !enabled {
			kind = models.AuditSecondFactorOff
		}
		return s.audit(ctx, tx, userID, kind, models.AuditDetail{"enabled": enabled})
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// DisableSecondFactor removes the credential. false means there was none.
func (s *Store) DisableSecondFactor(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.write(ctx, "disable second factor", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ok, err = s.repomanager.SecondFactors(tx).Delete(ctx, userID)
		if err != nil || !ok {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditSecondFactorOff, models.AuditDetail{"removed": true})
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
