package models

import "time"

// MaxNoteLength is the longest accepted note, in characters.
const MaxNoteLength = 2000

// Note is stored as ciphertext only. Content is never updated in place.
type Note struct {
	ID         int64
	UserID     int64
	Ciphertext []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DecryptedNote is a Note opened for display. When the ciphertext cannot be
// opened Content is empty and Err wraps common.ErrDecryption.
type DecryptedNote struct {
	Note
	Content string
	Err     error
}
