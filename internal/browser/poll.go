package browser

import (
	"context"
	"time"
)

// DefaultPollInterval is how often readiness predicates are re-checked.
const DefaultPollInterval = 250 * time.Millisecond

// Poll re-evaluates check until it returns true, the timeout elapses (ErrTimeout) or ctx
// ends. Errors from check count as "not yet"; the last one is discarded.
func Poll(ctx context.Context, timeout, interval time.Duration, check func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok, err := check(ctx); err == nil && ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForAny polls s until one of locs matches and returns its index. Locators are checked
// in order on every tick, so earlier ones win when several match at once.
func WaitForAny(ctx context.Context, s Surface, timeout, interval time.Duration, locs ...Locator) (int, error) {
	found := -1
	err := Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		for i, loc := range locs {
			ok, err := s.Exists(ctx, loc)
			if err != nil {
				continue
			}
			if ok {
				found = i
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return -1, err
	}
	return found, nil
}

// Settle waits d with no observable readiness signal to poll on. It returns early only
// when ctx ends.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
