package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/server/models"
)

// fakeClock fires due callbacks inline from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, running every timer that comes due on
// the way in due order. Timers armed by callbacks are honoured too.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var pending []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.due.After(target) {
				pending = append(pending, t)
			}
		}
		if len(pending) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i].due.Before(pending[j].due) })
		next := pending[0]
		next.fired = true
		c.now = next.due
		c.mu.Unlock()

		next.f()
	}
}

// pending counts timers that are neither stopped nor fired.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type delivery struct {
	OwnerID int64
	Text    string
	At      time.Time
}

type recordingDeliverer struct {
	mu    sync.Mutex
	clock Clock
	got   []delivery
	err   error
	panic bool
}

func (d *recordingDeliverer) Deliver(_ context.Context, ownerID int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, delivery{OwnerID: ownerID, Text: text, At: d.clock.Now()})
	if d.panic {
		panic("transport exploded")
	}
	return d.err
}

func (d *recordingDeliverer) deliveries() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.got...)
}

type fakeStore struct {
	mu        sync.Mutex
	pending   []models.Reminder
	listErr   error
	completed map[int64]int
	markErr   error
}

func (s *fakeStore) ListAllPendingForBoot(context.Context) ([]models.Reminder, error) {
	return s.pending, s.listErr
}

func (s *fakeStore) MarkReminderCompleted(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	if s.completed == nil {
		s.completed = map[int64]int{}
	}
	s.completed[id]++
	return s.completed[id] == 1, nil
}

func (s *fakeStore) completions(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[id]
}

var errDelivery = errors.New("chat unreachable")
