package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/dmitrijs2005/notekeeper/internal/server/database/dbtest"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

// one key derivation for the whole package
var testBox = sync.OnceValue(func() *cryptox.Box {
	b, err := cryptox.NewBox([]byte("master-password"), []byte("test-salt"))
	if err != nil {
		panic(err)
	}
	return b
})

func newStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, _ := dbtest.OpenSQLite(t)
	s := New(db, repomanager.NewSQLRepositoryManager(database.SQLite), testBox(),
		WithNow(func() time.Time { return fixedNow }))
	return s, db
}

func newUser(t *testing.T, s *Store, ext int64) *models.User {
	t.Helper()
	u, created, err := s.GetOrCreateUser(context.Background(), ext)
	require.NoError(t, err)
	require.True(t, created)
	return u
}

func auditKinds(t *testing.T, s *Store, userID int64) []models.AuditKind {
	t.Helper()
	evs, err := s.ListAudit(context.Background(), userID)
	require.NoError(t, err)
	kinds := make([]models.AuditKind, 0, len(evs))
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func TestGetOrCreateUser(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	u1, created, err := s.GetOrCreateUser(ctx, 4242)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.DefaultLanguage, u1.Language)
	assert.False(t, u1.GDPRConsent)

	u2, created, err := s.GetOrCreateUser(ctx, 4242)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u1.ID, u2.ID)

	assert.Equal(t, []models.AuditKind{models.AuditUserRegistered}, auditKinds(t, s, u1.ID))
}

func TestCreateUser_Duplicate(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, 1)
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, 1)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.NotErrorIs(t, err, common.ErrStorage)
}

func TestWithDefaultLanguage(t *testing.T) {
	db, _ := dbtest.OpenSQLite(t)
	s := New(db, repomanager.NewSQLRepositoryManager(database.SQLite), testBox(),
		WithDefaultLanguage(models.LanguagePortuguese))

	u := newUser(t, s, 77)
	assert.Equal(t, models.LanguagePortuguese, u.Language)
}

func TestSetLanguageAndConsent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	require.NoError(t, s.SetLanguage(ctx, u.ID, models.LanguageEnglish))
	assert.ErrorIs(t, s.SetLanguage(ctx, u.ID, "fr"), common.ErrValidation)
	assert.ErrorIs(t, s.SetLanguage(ctx, 999, models.LanguagePortuguese), common.ErrNotFound)

	require.NoError(t, s.SetConsent(ctx, u.ID, true))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageEnglish, got.Language)
	assert.True(t, got.GDPRConsent)

	assert.Equal(t, []models.AuditKind{
		models.AuditUserRegistered, models.AuditSettingsChanged, models.AuditGDPRConsent,
	}, auditKinds(t, s, u.ID))
}

func TestNoteRoundTrip(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	n, err := s.AddNote(ctx, u.ID, "buy milk")
	require.NoError(t, err)
	assert.NotZero(t, n.ID)

	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT ciphertext FROM notes WHERE id = ?`, n.ID).Scan(&raw))
	assert.NotContains(t, string(raw), "buy milk", "notes are never stored in plaintext")

	notes, err := s.ListNotes(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.NoError(t, notes[0].Err)
	assert.Equal(t, "buy milk", notes[0].Content)
	assert.True(t, notes[0].CreatedAt.Equal(fixedNow))

	evs, err := s.ListAudit(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, models.AuditNoteCreated, evs[1].Kind)
	assert.NotContains(t, fmt.Sprint(evs[1].Detail), "milk", "audit never carries content")
}

func TestAddNote_Validation(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	_, err := s.AddNote(ctx, u.ID, "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.AddNote(ctx, u.ID, strings.Repeat("ñ", models.MaxNoteLength+1))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.AddNote(ctx, u.ID, strings.Repeat("ñ", models.MaxNoteLength))
	assert.NoError(t, err, "the limit counts characters, not bytes")

	assert.Equal(t, 1, dbtest.Count(t, db, "notes", ""))
}

func TestListNotes_UnreadableNoteIsReported(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	good, err := s.AddNote(ctx, u.ID, "fine")
	require.NoError(t, err)
	bad, err := s.AddNote(ctx, u.ID, "tampered")
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE notes SET ciphertext = ? WHERE id = ?`, []byte("garbage-garbage-garbage-garbage"), bad.ID)
	require.NoError(t, err)

	notes, err := s.ListNotes(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	assert.Equal(t, good.ID, notes[0].ID)
	assert.Equal(t, "fine", notes[0].Content)

	assert.Equal(t, bad.ID, notes[1].ID)
	assert.ErrorIs(t, notes[1].Err, common.ErrDecryption)
	assert.Empty(t, notes[1].Content)
}

func TestDeleteNote_ScopedToOwner(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	alice := newUser(t, s, 1)
	bob := newUser(t, s, 2)

	n, err := s.AddNote(ctx, alice.ID, "mine")
	require.NoError(t, err)

	ok, err := s.DeleteNote(ctx, n.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, auditKinds(t, s, bob.ID), models.AuditNoteDeleted)

	ok, err = s.DeleteNote(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteNote(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []models.AuditKind{
		models.AuditUserRegistered, models.AuditNoteCreated, models.AuditNoteDeleted,
	}, auditKinds(t, s, alice.ID))
}

func TestReminders(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	once, err := s.AddReminder(ctx, u.ID, " call mom ", "9:05", false)
	require.NoError(t, err)
	assert.Equal(t, "09:05", once.TimeOfDay)
	assert.Equal(t, "call mom", once.Text)

	daily, err := s.AddReminder(ctx, u.ID, "stretch", "07:00", true)
	require.NoError(t, err)

	_, err = s.AddReminder(ctx, u.ID, "x", "25:00", false)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = s.AddReminder(ctx, u.ID, "", "10:00", false)
	assert.ErrorIs(t, err, common.ErrValidation)

	pending, err := s.ListPendingReminders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, daily.ID, pending[0].ID, "ordered by time of day")

	ok, err := s.MarkReminderCompleted(ctx, once.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkReminderCompleted(ctx, once.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.MarkReminderCompleted(ctx, daily.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	boot, err := s.ListAllPendingForBoot(ctx)
	require.NoError(t, err)
	require.Len(t, boot, 1)
	assert.Equal(t, daily.ID, boot[0].ID)
	assert.Equal(t, int64(1), boot[0].OwnerExternalID)

	ok, err = s.DeleteReminder(ctx, daily.ID, u.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.DeleteReminder(ctx, daily.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = s.ListPendingReminders(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSecondFactorLifecycle(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	_, err := s.GetSecondFactorSecret(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrSecondFactorNotEnrolled)

	require.NoError(t, s.EnrollSecondFactor(ctx, u.ID, "FIRST", true))
	require.NoError(t, s.EnrollSecondFactor(ctx, u.ID, "SECOND", true))
	assert.Equal(t, 1, dbtest.Count(t, db, "second_factors", "user_id = ?", u.ID))

	secret, err := s.GetSecondFactorSecret(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "SECOND", secret, "re-enrolment replaces the secret")

	ok, err := s.SetSecondFactorEnabled(ctx, u.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)
	sf, err := s.GetSecondFactor(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, sf.Enabled)
	assert.Equal(t, "SECOND", sf.Secret)

	ok, err = s.DisableSecondFactor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DisableSecondFactor(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.SetSecondFactorEnabled(ctx, u.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteUser_Cascades(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)
	other := newUser(t, s, 2)

	_, err := s.AddNote(ctx, u.ID, "a")
	require.NoError(t, err)
	_, err = s.AddReminder(ctx, u.ID, "b", "10:00", true)
	require.NoError(t, err)
	require.NoError(t, s.EnrollSecondFactor(ctx, u.ID, "S", true))
	_, err = s.AddNote(ctx, other.ID, "keep")
	require.NoError(t, err)

	ok, err := s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, table := range []string{"notes", "reminders", "second_factors", "audit_events"} {
		assert.Zero(t, dbtest.Count(t, db, table, "user_id = ?", u.ID), table)
	}
	assert.Zero(t, dbtest.Count(t, db, "users", "id = ?", u.ID))
	assert.Equal(t, 1, dbtest.Count(t, db, "notes", "user_id = ?", other.ID))

	ok, err = s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentWriters(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, 1)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.AddNote(ctx, u.ID, fmt.Sprintf("note %d", i))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.ListNotes(ctx, u.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, dbtest.Count(t, db, "notes", ""))
	assert.Equal(t, n, dbtest.Count(t, db, "audit_events", "kind = ?", string(models.AuditNoteCreated)))
}

func TestAddNote_AuditFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`^INSERT INTO notes .* RETURNING id$`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`^INSERT INTO audit_events .* RETURNING id$`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	s := New(db, repomanager.NewSQLRepositoryManager(database.Postgres), testBox())
	_, err = s.AddNote(context.Background(), 7, "buy milk")

	require.ErrorIs(t, err, common.ErrStorage)
	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRead_DBErrorIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM reminders`).WillReturnError(errors.New("connection refused"))

	s := New(db, repomanager.NewSQLRepositoryManager(database.Postgres), testBox())
	_, err = s.ListAllPendingForBoot(context.Background())
	assert.ErrorIs(t, err, common.ErrStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}
