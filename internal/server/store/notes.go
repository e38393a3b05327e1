package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

func validateNote(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: note is empty", common.ErrValidation)
	}
	if n := utf8.RuneCountInString(content); n > models.MaxNoteLength {
		return fmt.Errorf("%w: note has %d characters, limit is %d", common.ErrValidation, n, models.MaxNoteLength)
	}
	return nil
}

// AddNote encrypts content and stores it for the user.
func (s *Store) AddNote(ctx context.Context, userID int64, content string) (*models.Note, error) {
	if err := validateNote(content); err != nil {
		return nil, err
	}

	ct, err := s.cipher.Encrypt([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt note: %w", common.ErrStorage, err)
	}

	now := s.now()
	note := &models.Note{UserID: userID, Ciphertext: ct, CreatedAt: now, UpdatedAt: now}

	err = s.write(ctx, "add note", func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Notes(tx).Create(ctx, note); err != nil {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditNoteCreated, models.AuditDetail{
			"note_id": note.ID,
			"length":  utf8.RuneCountInString(content),
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns the user's notes decrypted, oldest first. A note that
// cannot be opened is still listed, with Err set and no Content.
func (s *Store) ListNotes(ctx context.Context, userID int64) ([]models.DecryptedNote, error) {
	var rows []models.Note
	err := s.read(ctx, "list notes", func(ctx context.Context, db dbx.DBTX) error {
		var err error
		rows, err = s.repomanager.Notes(db).ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.DecryptedNote, 0, len(rows))
	for _, n := range rows {
		dn := models.DecryptedNote{Note: n}
		p, err := s.cipher.Decrypt(n.Ciphertext)
		if err != nil {
			s.log.Warn(ctx, "note unreadable", "note_id", n.ID, "user_id", userID, "error", err)
			dn.Err = fmt.Errorf("note %d: %w", n.ID, err)
		} else {
			dn.Content = string(p)
		}
		out = append(out, dn)
	}
	return out, nil
}

// DeleteNote removes a note owned by userID. false means no such note
// belongs to the user.
func (s *Store) DeleteNote(ctx context.Context, noteID, userID int64) (bool, error) {
	var deleted bool
	err := s.write(ctx, "delete note", func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = s.repomanager.Notes(tx).DeleteOwned(ctx, noteID, userID)
		if err != nil || !deleted {
			return err
		}
		return s.audit(ctx, tx, userID, models.AuditNoteDeleted, models.AuditDetail{"note_id": noteID})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
