// Package authgate implements the second-factor gate in front of a user
// session.
//
// Credential states: NoSecondFactor -> Enroll -> EnrolledActive, with
// Suspend/Enable moving between EnrolledActive and EnrolledDisabled and
// Disable going back to NoSecondFactor. A session starts in AwaitingCode
// only when the credential is active; wrong codes keep it there and may be
// retried without limit.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

const DefaultIssuer = "RecoNotas"

// Store is the part of the data store the gate needs.
type Store interface {
	EnrollSecondFactor(ctx context.Context, userID int64, secret string, enabled bool) error
	GetSecondFactor(ctx context.Context, userID int64) (*models.SecondFactor, error)
	SetSecondFactorEnabled(ctx context.Context, userID int64, enabled bool) (bool, error)
	DisableSecondFactor(ctx context.Context, userID int64) (bool, error)
	AppendAudit(ctx context.Context, userID int64, kind models.AuditKind, detail models.AuditDetail) error
}

type Status int

const (
	NoSecondFactor Status = iota
	EnrolledDisabled
	EnrolledActive
)

func (s Status) String() string {
	switch s {
	case EnrolledDisabled:
		return "enrolled-disabled"
	case EnrolledActive:
		return "enrolled-active"
	default:
		return "none"
	}
}

type SessionState int

const (
	NoSession SessionState = iota
	AwaitingCode
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case AwaitingCode:
		return "awaiting-code"
	case Authenticated:
		return "authenticated"
	default:
		return "none"
	}
}

// Enrollment is what an authenticator app needs.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

type Gate struct {
	store    Store
	verifier Verifier
	issuer   string
	now      func() time.Time
	log      logging.Logger

	mu       sync.Mutex
	sessions map[int64]SessionState
}

type Option func(*Gate)

func WithIssuer(issuer string) Option {
	return func(g *Gate) {
		if issuer != "" {
			g.issuer = issuer
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gate) { g.log = l.With("module", "authgate") }
}

func New(store Store, v Verifier, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		verifier: v,
		issuer:   DefaultIssuer,
		now:      time.Now,
		log:      logging.Discard(),
		sessions: make(map[int64]SessionState),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Enroll generates a new secret for userID and stores it active, replacing
// any earlier secret. Authenticators set up with the old secret stop
// working immediately.
func (g *Gate) Enroll(ctx context.Context, userID int64, account string) (*Enrollment, error) {
	secret, uri, err := g.verifier.NewSecret(g.issuer, account)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	if err := g.store.EnrollSecondFactor(ctx, userID, secret, true); err != nil {
		return nil, err
	}
	g.log.Info(ctx, "second factor enrolled", "user_id", userID)
	return &Enrollment{Secret: secret, ProvisioningURI: uri}, nil
}

// Verify checks code against the user's secret for the current time step
// and its neighbours. It does not change any state.
func (g *Gate) Verify(ctx context.Context, userID int64, code string) (bool, error) {
	sf, err := g.store.GetSecondFactor(ctx, userID)
	if err != nil {
		return false, err
	}
	return g.verifier.Validate(sf.Secret, code, g.now()), nil
}

func (g *Gate) Status(ctx context.Context, userID int64) (Status, error) {
	sf, err := g.store.GetSecondFactor(ctx, userID)
	switch {
	case errors.Is(err, common.ErrSecondFactorNotEnrolled):
		return NoSecondFactor, nil
	case err != nil:
		return NoSecondFactor, err
	case sf.Enabled:
		return EnrolledActive, nil
	default:
		return EnrolledDisabled, nil
	}
}

// Enable turns an enrolled credential on.
func (g *Gate) Enable(ctx context.Context, userID int64) error {
	return g.toggle(ctx, userID, true)
}

// Suspend turns the credential off but keeps the secret.
func (g *Gate) Suspend(ctx context.Context, userID int64) error {
	return g.toggle(ctx, userID, false)
}

func (g *Gate) toggle(ctx context.Context, userID int64, enabled bool) error {
	ok, err := g.store.SetSecondFactorEnabled(ctx, userID, enabled)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrSecondFactorNotEnrolled
	}
	return nil
}

// Disable removes the credential. false means there was none.
func (g *Gate) Disable(ctx context.Context, userID int64) (bool, error) {
	ok, err := g.store.DisableSecondFactor(ctx, userID)
	if err == nil && ok {
		g.log.Info(ctx, "second factor removed", "user_id", userID)
	}
	return ok, err
}

// CurrentCode returns the code valid now and how long it stays valid.
func (g *Gate) CurrentCode(ctx context.Context, userID int64) (string, time.Duration, error) {
	sf, err := g.store.GetSecondFactor(ctx, userID)
	if err != nil {
		return "", 0, err
	}

	now := g.now()
	code, err := g.verifier.Code(sf.Secret, now)
	if err != nil {
		return "", 0, fmt.Errorf("generate code: %w", err)
	}
	if err := g.store.AppendAudit(ctx, userID, models.AuditTestCodeShown, nil); err != nil {
		return "", 0, err
	}

	period := g.verifier.Period()
	remaining := period - time.Duration(now.UnixNano())%period
	return code, remaining, nil
}

// StartSession opens a session for userID. Users without an active second
// factor are authenticated at once; the others must SubmitCode.
func (g *Gate) StartSession(ctx context.Context, userID int64) (SessionState, error) {
	st, err := g.Status(ctx, userID)
	if err != nil {
		return NoSession, err
	}

	if st == EnrolledActive {
		g.setSession(userID, AwaitingCode)
		return AwaitingCode, nil
	}

	if err := g.store.AppendAudit(ctx, userID, models.AuditLogin, models.AuditDetail{"second_factor": false}); err != nil {
		return NoSession, err
	}
	g.setSession(userID, Authenticated)
	return Authenticated, nil
}

// SubmitCode completes a session awaiting a code. A wrong code returns
// common.ErrAuthFailure and leaves the session awaiting. Without a session
// one is started first.
func (g *Gate) SubmitCode(ctx context.Context, userID int64, code string) (SessionState, error) {
	st := g.Session(userID)
	if st == NoSession {
		var err error
		if st, err = g.StartSession(ctx, userID); err != nil {
			return NoSession, err
		}
	}
	if st != AwaitingCode {
		return st, nil
	}

	ok, err := g.Verify(ctx, userID, code)
	if err != nil {
		return AwaitingCode, err
	}
	if !ok {
		g.log.Warn(ctx, "wrong second factor code", "user_id", userID)
		return AwaitingCode, common.ErrAuthFailure
	}

	if err := g.store.AppendAudit(ctx, userID, models.AuditLogin, models.AuditDetail{"second_factor": true}); err != nil {
		return AwaitingCode, err
	}
	g.setSession(userID, Authenticated)
	return Authenticated, nil
}

func (g *Gate) Session(userID int64) SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[userID]
}

func (g *Gate) EndSession(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, userID)
}

func (g *Gate) setSession(userID int64, st SessionState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[userID] = st
}
