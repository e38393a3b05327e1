// Package console is a line-oriented front end bound to a single chat
// account. It parses commands, calls into the core and renders results;
// every line is handled behind one error boundary.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/authgate"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/google/uuid"
)

type Store interface {
	GetOrCreateUser(ctx context.Context, externalID int64) (*models.User, bool, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetLanguage(ctx context.Context, userID int64, lang string) error
	SetConsent(ctx context.Context, userID int64, consent bool) error
	DeleteUser(ctx context.Context, userID int64) (bool, error)
	AddNote(ctx context.Context, userID int64, content string) (*models.Note, error)
	ListNotes(ctx context.Context, userID int64) ([]models.DecryptedNote, error)
	DeleteNote(ctx context.Context, noteID, userID int64) (bool, error)
	AddReminder(ctx context.Context, userID int64, text, timeOfDay string, recurring bool) (*models.Reminder, error)
	ListPendingReminders(ctx context.Context, userID int64) ([]models.Reminder, error)
	DeleteReminder(ctx context.Context, reminderID, userID int64) (bool, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, ownerID int64, timeOfDay, text string, reminderID int64, recurring bool) error
	Cancel(ctx context.Context, ownerID, reminderID int64) bool
}

type Gate interface {
	Enroll(ctx context.Context, userID int64, account string) (*authgate.Enrollment, error)
	Disable(ctx context.Context, userID int64) (bool, error)
	CurrentCode(ctx context.Context, userID int64) (string, time.Duration, error)
	StartSession(ctx context.Context, userID int64) (authgate.SessionState, error)
	SubmitCode(ctx context.Context, userID int64, code string) (authgate.SessionState, error)
	Session(userID int64) authgate.SessionState
	EndSession(userID int64)
}

// previewLength is how many characters of a note /mynotes shows.
const previewLength = 50

type Console struct {
	store      Store
	scheduler  Scheduler
	gate       Gate
	externalID int64
	log        logging.Logger

	out    io.Writer
	outMu  sync.Mutex
	prompt bool

	mu     sync.Mutex
	userID int64
	// fresh is set when the account was registered and not yet greeted
	fresh bool
}

type Option func(*Console)

// WithPrompt prints "> " after every reply, for interactive terminals.
func WithPrompt(on bool) Option {
	return func(c *Console) { c.prompt = on }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Console) { c.log = l.With("module", "console") }
}

func New(store Store, sched Scheduler, gate Gate, externalID int64, out io.Writer, opts ...Option) *Console {
	c := &Console{
		store:      store,
		scheduler:  sched,
		gate:       gate,
		externalID: externalID,
		log:        logging.Discard(),
		out:        out,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run handles lines from in until it is exhausted or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	c.write(c.Handle(ctx, "/start"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if strings.TrimSpace(line) == "" {
				c.write("")
				continue
			}
			c.write(c.Handle(ctx, line))
		}
	}
}

// write emits reply and the prompt in a single Write, so a writer shared
// with reminder delivery keeps them together.
func (c *Console) write(reply string) {
	var b strings.Builder
	if reply != "" {
		b.WriteString(reply)
		b.WriteByte('\n')
	}
	if c.prompt {
		b.WriteString("> ")
	}
	if b.Len() == 0 {
		return
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		c.log.Warn(context.Background(), "console write failed", "error", err)
	}
}

// Handle runs one command line and returns the reply. Errors never escape:
// they are logged and turned into a message. The request id travels in
// ctx, so logs of the store and the gate carry it too.
func (c *Console) Handle(ctx context.Context, line string) string {
	ctx = logging.ContextWith(ctx, "req_id", uuid.NewString())

	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	start := time.Now()
	reply, err := c.dispatch(ctx, cmd, arg)
	if err != nil {
		reply = c.describe(ctx, c.log, cmd, err)
	}
	c.log.Debug(ctx, "command handled", "command", cmd, "elapsed", time.Since(start), "failed", err != nil)
	return reply
}

func (c *Console) describe(ctx context.Context, log logging.Logger, cmd string, err error) string {
	switch {
	case errors.Is(err, errUsage):
		return "ℹ️ " + strings.TrimPrefix(err.Error(), errUsage.Error()+": ")
	case errors.Is(err, errNeedSession):
		return "🔐 Please log in first with /start."
	case errors.Is(err, errNeedCode):
		return "🔐 Enter your authenticator code with /code <digits>."
	case errors.Is(err, common.ErrValidation):
		return "❌ " + strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	case errors.Is(err, common.ErrAuthFailure):
		return "❌ Wrong code, try again."
	case errors.Is(err, common.ErrSecondFactorNotEnrolled):
		return "❌ 2FA is not set up. Use /setup2fa first."
	case errors.Is(err, common.ErrNotFound):
		return "❌ Not found."
	default:
		log.Error(ctx, "command failed", "command", cmd, "error", err)
		return "⚠️ Something went wrong, please try again."
	}
}

// user resolves, and registers on first contact, the console's account.
func (c *Console) user(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != 0 {
		return c.userID, nil
	}
	u, created, err := c.store.GetOrCreateUser(ctx, c.externalID)
	if err != nil {
		return 0, err
	}
	c.userID = u.ID
	c.fresh = created
	return u.ID, nil
}

// greet reports, once, whether the account is newly registered.
func (c *Console) greet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh := c.fresh
	c.fresh = false
	return fresh
}

func (c *Console) forgetUser() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = 0
}
