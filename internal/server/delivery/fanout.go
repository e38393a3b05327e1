package delivery

import (
	"context"
	"errors"
)

type Deliverer interface {
	Deliver(ctx context.Context, ownerID int64, text string) error
}

// Fanout delivers to every target and joins their errors.
type Fanout []Deliverer

func (f Fanout) Deliver(ctx context.Context, ownerID int64, text string) error {
	var errs []error
	for _, d := range f {
		if err := d.Deliver(ctx, ownerID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
