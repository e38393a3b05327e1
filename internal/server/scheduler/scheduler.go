// Package scheduler arms in-memory timers for persisted reminders and hands
// due reminders to a delivery adapter.
//
// Timers are a cache derived from the store: Bootstrap rebuilds them from
// every pending reminder, so nothing about them needs to survive a restart.
// Each timer is independent; a failing delivery or store call is logged and
// never affects other reminders.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/timex"
)

// Deliverer sends a due reminder to its owner. The implementation owns its
// retry and timeout policy.
type Deliverer interface {
	Deliver(ctx context.Context, ownerID int64, text string) error
}

// Store is the part of the data store the scheduler needs.
type Store interface {
	ListAllPendingForBoot(ctx context.Context) ([]models.Reminder, error)
	MarkReminderCompleted(ctx context.Context, reminderID int64) (bool, error)
}

type Kind int

const (
	OneShot Kind = iota
	Recurring
)

func (k Kind) String() string {
	if k == Recurring {
		return "recurring"
	}
	return "one-shot"
}

type state int

const (
	armed state = iota
	firing
	retired
)

// key identifies a timer. Two reminders of one owner with the same text
// share a key, and the later Schedule replaces the earlier timer.
type key struct {
	ownerID int64
	text    string
}

type entry struct {
	ownerID    int64
	text       string
	reminderID int64
	kind       Kind
	armedAt    time.Time
	due        time.Time
	timer      Timer
	state      state
}

// Armed describes a pending timer.
type Armed struct {
	OwnerID    int64
	ReminderID int64
	Text       string
	Kind       Kind
	ArmedAt    time.Time
	Due        time.Time
}

type Scheduler struct {
	store   Store
	deliver Deliverer
	clock   Clock
	log     logging.Logger

	mu      sync.Mutex
	active  map[key]*entry
	stopped bool

	// in-flight callbacks
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.log = l.With("module", "scheduler") }
}

func New(store Store, d Deliverer, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:   store,
		deliver: d,
		clock:   SystemClock{},
		log:     logging.Discard(),
		active:  make(map[key]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule arms a timer for the next occurrence of timeOfDay strictly
// after now, replacing any timer of the same owner and text. A malformed
// time of day yields an error wrapping common.ErrScheduling.
func (s *Scheduler) Schedule(ctx context.Context, ownerID int64, timeOfDay, text string, reminderID int64, recurring bool) error {
	clock, err := timex.ParseClock(timeOfDay)
	if err != nil {
		s.log.Warn(ctx, "reminder not armed", "owner_id", ownerID, "reminder_id", reminderID, "error", err)
		return fmt.Errorf("%w: %w", common.ErrScheduling, err)
	}

	kind := OneShot
	if recurring {
		kind = Recurring
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("%w: scheduler stopped", common.ErrScheduling)
	}

	k := key{ownerID: ownerID, text: text}
	if prev, ok := s.active[k]; ok {
		s.retire(prev)
		if prev.reminderID != reminderID {
			s.log.Warn(ctx, "timer replaced by reminder with identical text",
				"owner_id", ownerID, "reminder_id", reminderID, "replaced_reminder_id", prev.reminderID)
		}
	}

	e := &entry{ownerID: ownerID, text: text, reminderID: reminderID, kind: kind}
	s.active[k] = e
	delay := clock.Until(s.clock.Now())
	s.arm(e, delay)

	s.log.Info(ctx, "reminder armed",
		"owner_id", ownerID, "reminder_id", reminderID, "kind", kind.String(), "due", e.due, "delay", delay)
	return nil
}

// arm must be called with mu held.
func (s *Scheduler) arm(e *entry, d time.Duration) {
	now := s.clock.Now()
	e.state = armed
	e.armedAt = now
	e.due = now.Add(d)
	e.timer = s.clock.AfterFunc(d, func() { s.fire(e) })
}

// retire must be called with mu held.
func (s *Scheduler) retire(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.state = retired
	k := key{ownerID: e.ownerID, text: e.text}
	if s.active[k] == e {
		delete(s.active, k)
	}
}

func (s *Scheduler) fire(e *entry) {
	k := key{ownerID: e.ownerID, text: e.text}

	s.mu.Lock()
	if s.stopped || e.state != armed || s.active[k] != e {
		s.mu.Unlock()
		return
	}
	e.state = firing
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := s.ctx
	log := s.log.With("owner_id", e.ownerID, "reminder_id", e.reminderID)

	if err := s.safeDeliver(ctx, e); err != nil {
		log.Error(ctx, "reminder delivery failed", "error", err)
	} else {
		log.Info(ctx, "reminder delivered", "kind", e.kind.String())
	}

	if e.kind == OneShot {
		if _, err := s.store.MarkReminderCompleted(ctx, e.reminderID); err != nil {
			log.Error(ctx, "reminder not marked completed", "error", err)
		}
		s.mu.Lock()
		s.retire(e)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || e.state != firing || s.active[k] != e {
		// cancelled or replaced while delivering
		e.state = retired
		return
	}
	// one day from now, not from the nominal time of day
	s.arm(e, timex.Day)
	log.Debug(ctx, "recurring reminder re-armed", "due", e.due)
}

func (s *Scheduler) safeDeliver(ctx context.Context, e *entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("delivery panicked: %v", p)
		}
	}()
	return s.deliver.Deliver(ctx, e.ownerID, e.text)
}

// Cancel disarms the timer of ownerID's reminder, if any, and reports
// whether one was found. A delivery already under way is not recalled.
func (s *Scheduler) Cancel(ctx context.Context, ownerID, reminderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for k, e := range s.active {
		if k.ownerID == ownerID && e.reminderID == reminderID {
			s.retire(e)
			found = true
		}
	}
	if found {
		s.log.Info(ctx, "reminder cancelled", "owner_id", ownerID, "reminder_id", reminderID)
	}
	return found
}

// Bootstrap arms a timer for every pending reminder in the store and
// returns how many were armed. Reminders that cannot be armed are logged
// and skipped.
func (s *Scheduler) Bootstrap(ctx context.Context) (int, error) {
	pending, err := s.store.ListAllPendingForBoot(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}

	n := 0
	for _, r := range pending {
		if err := s.Schedule(ctx, r.OwnerExternalID, r.TimeOfDay, r.Text, r.ID, r.Recurring); err != nil {
			s.log.Error(ctx, "boot: reminder skipped", "reminder_id", r.ID, "error", err)
			continue
		}
		n++
	}
	s.log.Info(ctx, "reminders restored", "armed", n, "pending", len(pending))
	return n, nil
}

// Armed lists pending timers ordered by due time.
func (s *Scheduler) Armed() []Armed {
	s.mu.Lock()
	out := make([]Armed, 0, len(s.active))
	for _, e := range s.active {
		if e.state != armed {
			continue
		}
		out = append(out, Armed{
			OwnerID: e.ownerID, ReminderID: e.reminderID, Text: e.text,
			Kind: e.kind, ArmedAt: e.armedAt, Due: e.due,
		})
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Armed) int {
		if c := a.Due.Compare(b.Due); c != 0 {
			return c
		}
		return cmp.Compare(a.ReminderID, b.ReminderID)
	})
	return out
}

// Stop disarms every timer and waits for in-flight deliveries. If ctx ends
// first, their context is cancelled and Stop still waits for them to
// return. Schedule fails after Stop.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for _, e := range s.active {
		s.retire(e)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
