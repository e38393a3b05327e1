package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// AddReminder persists a reminder. timeOfDay is "H:MM" or "HH:MM" and is
// stored zero-padded. Arming the timer is up to the caller.
func (s *Store) AddReminder(ctx context.Context, userID int64, text, timeOfDay string, recurring bool) (*models.Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: reminder text is empty", common.ErrValidation)
	}
	clock, err := timex.ParseClock(timeOfDay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	rem := &models.Reminder{
		UserID:    userID,
		Text:      text,
		TimeOfDay: clock.String(),
		Recurring: recurring,
		CreatedAt: s.now(),
	}
	err = s.write(ctx, "add reminder", func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Reminders(tx).Create(ctx, rem); err != nil {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditReminderCreated, models.AuditDetail{
			"reminder_id": rem.ID,
			"time":        rem.TimeOfDay,
			"recurring":   recurring,
		})
	})
	if err != nil {
		return nil, err
	}
	return rem, nil
}

// ListPendingReminders returns the user's non-completed reminders ordered
// by time of day.
func (s *Store) ListPendingReminders(ctx context.Context, userID int64) ([]models.Reminder, error) {
	var out []models.Reminder
	err := s.read(ctx, "list reminders", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Reminders(db).ListPendingByUser(ctx, userID)
		return err
	})
	return out, err
}

// ListAllPendingForBoot returns every non-completed reminder of every user
// with the owner's external id filled in.
func (s *Store) ListAllPendingForBoot(ctx context.Context) ([]models.Reminder, error) {
	var out []models.Reminder
	err := s.read(ctx, "list pending reminders", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Reminders(db).ListAllPending(ctx)
		return err
	})
	return out, err
}

// MarkReminderCompleted retires a fired one-shot reminder. It reports false
// for recurring, already completed or deleted reminders.
func (s *Store) MarkReminderCompleted(ctx context.Context, reminderID int64) (bool, error) {
	var ok bool
	err := s.write(ctx, "complete reminder", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ok, err = s.repomanager.Reminders(tx).MarkCompleted(ctx, reminderID)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteReminder removes a reminder owned by userID. false means no such
// reminder belongs to the user. Disarming its timer is up to the caller.
func (s *Store) DeleteReminder(ctx context.Context, reminderID, userID int64) (bool, error) {
	var deleted bool
	err := s.write(ctx, "delete reminder", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = s.repomanager.Reminders(tx).DeleteOwned(ctx, reminderID, userID)
		if err != nil || !deleted {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditReminderDeleted, models.AuditDetail{"reminder_id": reminderID})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
