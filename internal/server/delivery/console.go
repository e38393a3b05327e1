// Package delivery contains the adapters that hand due reminders to users.
package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console prints reminders to a shared terminal. It is also an io.Writer,
// so a front end writing through it never interleaves with a reminder.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Deliver(_ context.Context, ownerID int64, text string) error {
	_, err := fmt.Fprintf(c, "\n🔔 Reminder: %s\n", text)
	return err
}

// Write passes p through in one piece.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}
