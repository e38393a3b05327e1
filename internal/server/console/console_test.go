package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/authgate"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/dmitrijs2005/notekeeper/internal/server/database/dbtest"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notekeeper/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBox = sync.OnceValue(func() *cryptox.Box {
	b, err := cryptox.NewBox([]byte("console-test"), []byte("salt"))
	if err != nil {
		panic(err)
	}
	return b
})

type scheduled struct {
	owner, id int64
	at, text  string
	recurring bool
}

type fakeScheduler struct {
	mu        sync.Mutex
	armed     map[int64]scheduled
	cancelled []int64
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, owner int64, at, text string, id int64, recurring bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.armed == nil {
		f.armed = map[int64]scheduled{}
	}
	f.armed[id] = scheduled{owner: owner, id: id, at: at, text: text, recurring: recurring}
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, owner, id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	_, ok := f.armed[id]
	delete(f.armed, id)
	return ok
}

type env struct {
	c     *Console
	st    *store.Store
	gate  *authgate.Gate
	sched *fakeScheduler
	now   time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, _ := dbtest.OpenSQLite(t)
	st := store.New(db, repomanager.NewSQLRepositoryManager(database.SQLite), testBox())
	e := &env{st: st, sched: &fakeScheduler{}, now: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	e.gate = authgate.New(st, authgate.NewTOTP(), authgate.WithNow(func() time.Time { return e.now }))
	e.c = New(st, e.sched, e.gate, 555, &bytes.Buffer{})
	return e
}

func (e *env) do(t *testing.T, line string) string {
	t.Helper()
	return e.c.Handle(context.Background(), line)
}

var idRe = regexp.MustCompile(`#(\d+)`)

func firstID(t *testing.T, s string) string {
	t.Helper()
	m := idRe.FindStringSubmatch(s)
	require.NotNil(t, m, "no id in %q", s)
	return m[1]
}

func TestMenuRequiresSession(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.do(t, "/mynotes"), "/start")
	assert.Contains(t, e.do(t, "/help"), "/newnote", "help is always available")

	out := e.do(t, "/start")
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "/consent", "first contact mentions consent")

	assert.Contains(t, e.do(t, "/mynotes"), "no notes")
}

func TestNotesFlow(t *testing.T) {
	e := newEnv(t)
	e.do(t, "/start")

	out := e.do(t, "/newnote   buy milk and eggs")
	assert.Contains(t, out, "saved")
	id := firstID(t, out)

	long := strings.Repeat("a", 60)
	e.do(t, "/newnote "+long)

	list := e.do(t, "/mynotes")
	assert.Contains(t, list, "#"+id+" buy milk and eggs")
	assert.Contains(t, list, strings.Repeat("a", 50)+"…")
	assert.NotContains(t, list, strings.Repeat("a", 51))

	assert.Contains(t, e.do(t, "/delnote "+id), "deleted")
	assert.Contains(t, e.do(t, "/delnote "+id), "not found")
	assert.Contains(t, e.do(t, "/delnote abc"), "/delnote <id>")
	assert.Contains(t, e.do(t, "/newnote"), "/newnote <text>")
	assert.Contains(t, e.do(t, "/newnote "+strings.Repeat("x", 2001)), "limit is 2000")
}

func TestRemindersFlow(t *testing.T) {
	e := newEnv(t)
	e.do(t, "/start")

	out := e.do(t, "/newreminder 9:30 take pills --recurrent")
	assert.Contains(t, out, "every day at 09:30")
	id, err := strconv.ParseInt(firstID(t, out), 10, 64)
	require.NoError(t, err)

	assert.Equal(t, scheduled{owner: 555, id: id, at: "09:30", text: "take pills", recurring: true}, e.sched.armed[id])

	assert.Contains(t, e.do(t, "/myreminders"), "09:30 take pills (daily)")

	assert.Contains(t, e.do(t, "/newreminder 25:00 nope"), "invalid hour")
	assert.Contains(t, e.do(t, "/newreminder 10:00"), "/newreminder <HH:MM>")

	assert.Contains(t, e.do(t, "/delreminder "+strconv.FormatInt(id, 10)), "deleted")
	assert.Equal(t, []int64{id}, e.sched.cancelled)
	assert.Contains(t, e.do(t, "/myreminders"), "no pending")
}

func TestSecondFactorFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.do(t, "/start")

	assert.Contains(t, e.do(t, "/2facode"), "not set up")

	out := e.do(t, "/setup2fa")
	require.Contains(t, out, "otpauth://totp/")

	code := e.do(t, "/2facode")
	assert.Regexp(t, `Current code: \d{6} \(valid for 30s\)`, code)

	// a new session now has to pass the gate
	uid, err := e.c.user(ctx)
	require.NoError(t, err)
	e.gate.EndSession(uid)

	assert.Contains(t, e.do(t, "/start"), "/code")
	assert.Contains(t, e.do(t, "/mynotes"), "authenticator code")

	secret := strings.Split(out, "\n")[1]
	good, err := authgate.NewTOTP().Code(secret, e.now)
	require.NoError(t, err)
	bad := "000000"
	if bad == good {
		bad = "111111"
	}

	assert.Contains(t, e.do(t, "/code "+bad), "Wrong code")
	assert.Contains(t, e.do(t, "/code "+bad), "Wrong code", "retries are unlimited")
	assert.Contains(t, e.do(t, "/code "+good), "Authenticated")
	assert.Contains(t, e.do(t, "/mynotes"), "no notes")

	assert.Contains(t, e.do(t, "/disable2fa"), "disabled")
	assert.Contains(t, e.do(t, "/disable2fa"), "was not enabled")
}

func TestSettingsAndConsent(t *testing.T) {
	e := newEnv(t)
	e.do(t, "/start")

	shown := e.do(t, "/settings")
	assert.Contains(t, shown, "Language: es")
	assert.Contains(t, shown, "consent: not given")

	assert.Contains(t, e.do(t, "/settings EN"), "set to en")
	assert.Contains(t, e.do(t, "/settings fr"), "unsupported language")
	assert.Contains(t, e.do(t, "/consent"), "recorded")
	assert.Contains(t, e.do(t, "/settings"), "consent: given")
	assert.Contains(t, e.do(t, "/consent no"), "withdrawn")
	assert.Contains(t, e.do(t, "/consent maybe"), "/consent [yes|no]")

	u, created, err := e.st.GetOrCreateUser(context.Background(), 555)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.LanguageEnglish, u.Language)
	assert.False(t, u.GDPRConsent)
}

func TestClearAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.do(t, "/start")
	e.do(t, "/newnote secret")
	rem := firstID(t, e.do(t, "/newreminder 10:00 standup --recurrent"))

	assert.Contains(t, e.do(t, "/clearall"), "/clearall confirm")
	assert.Contains(t, e.do(t, "/clearall confirm"), "erased")
	assert.Len(t, e.sched.cancelled, 1)
	assert.Equal(t, rem, strconv.FormatInt(e.sched.cancelled[0], 10))

	assert.Contains(t, e.do(t, "/mynotes"), "/start", "session ended")

	e.do(t, "/start")
	notes, err := e.st.ListNotes(ctx, mustUser(t, e))
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func mustUser(t *testing.T, e *env) int64 {
	t.Helper()
	uid, err := e.c.user(context.Background())
	require.NoError(t, err)
	return uid
}

func TestUnknownCommand(t *testing.T) {
	e := newEnv(t)
	e.do(t, "/start")
	assert.Contains(t, e.do(t, "/dance"), "unknown command")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	e := newEnv(t)
	e.do(t, "/start")
	e.sched.err = errors.New("timer wheel broke")

	out := e.do(t, "/newreminder 10:00 x")
	assert.Contains(t, out, "Something went wrong")
	assert.NotContains(t, out, "timer wheel")
}

func TestHandle_LogsCarryRequestID(t *testing.T) {
	e := newEnv(t)
	var logs bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	e.c = New(e.st, e.sched, e.gate, 555, &bytes.Buffer{}, WithLogger(logger))
	e.do(t, "/start")
	e.sched.err = errors.New("timer wheel broke")

	e.do(t, "/newreminder 10:00 x")

	out := logs.String()
	assert.Contains(t, out, "command failed")
	assert.Regexp(t, `req_id=[0-9a-f-]{36}`, out)
	assert.Contains(t, out, "module=console")
}

func TestRun(t *testing.T) {
	e := newEnv(t)
	var out bytes.Buffer
	e.c = New(e.st, e.sched, e.gate, 555, &out, WithPrompt(true))

	in := strings.NewReader("/newnote from stdin\n\n/mynotes\n")
	require.NoError(t, e.c.Run(context.Background(), in))

	s := out.String()
	assert.Contains(t, s, "Welcome")
	assert.Contains(t, s, "saved")
	assert.Contains(t, s, "from stdin (")
	assert.True(t, strings.HasSuffix(s, "> "), "prompt after the last reply")
}

func TestRun_ContextCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a reader that never ends
	r, w := io.Pipe()
	defer w.Close()
	assert.NoError(t, e.c.Run(ctx, r))
}

type chunks struct{ got []string }

func (c *chunks) Write(p []byte) (int, error) {
	c.got = append(c.got, string(p))
	return len(p), nil
}

func TestRun_ReplyAndPromptInOneWrite(t *testing.T) {
	e := newEnv(t)
	out := &chunks{}
	e.c = New(e.st, e.sched, e.gate, 555, out, WithPrompt(true))

	require.NoError(t, e.c.Run(context.Background(), strings.NewReader("/newnote milk\n\n")))

	require.Len(t, out.got, 3)
	assert.True(t, strings.HasPrefix(out.got[0], "👋 Welcome"))
	assert.True(t, strings.HasSuffix(out.got[0], "\n> "))
	assert.Equal(t, "✅ Note #1 saved.\n> ", out.got[1])
	assert.Equal(t, "> ", out.got[2], "blank line only reprompts")
}
