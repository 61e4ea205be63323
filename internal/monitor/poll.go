package monitor

import (
	"context"
	"time"
)

// PollWatcher lists Source every Interval and notifies when the snapshot
// differs from the previous one.
type PollWatcher struct {
	Source   Source
	Interval time.Duration
}

// Watch blocks until ctx is done or a listing fails.
func (p *PollWatcher) Watch(ctx context.Context, notify func()) error {
	prev, err := p.Source.List(ctx)
	if err != nil {
		return ctxErr(ctx, err)
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		cur, err := p.Source.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !Equal(prev, cur) {
			prev = cur
			notify()
		}
	}
}

// ctxErr prefers the context error over the failure it caused.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
