package browser

import (
	"context"
	"time"

	"lexgate/internal/logging"
)

// WaitOutcome is the explicit result of a bounded wait.
type WaitOutcome int

const (
	WaitMatched WaitOutcome = iota
	WaitTimedOut
)

func (o WaitOutcome) String() string {
	if o == WaitMatched {
		return "matched"
	}
	return "timed_out"
}

// DefaultPollInterval is used when callers pass a non-positive poll interval.
const DefaultPollInterval = 250 * time.Millisecond

// WaitForAny polls until one of selectors is present, checking them in priority order
// on every tick. It returns the matching selector and WaitMatched, or WaitTimedOut once
// timeout elapses. A non-nil error means ctx itself ended; callers treat that as the
// request deadline, not as a missing marker.
func WaitForAny(ctx context.Context, page Page, selectors []string, timeout, poll time.Duration) (string, WaitOutcome, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		if sel, ok := FirstPresent(ctx, page, selectors); ok {
			return sel, WaitMatched, nil
		}
		if err := ctx.Err(); err != nil {
			return "", WaitTimedOut, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", WaitTimedOut, nil
		}
		if remaining > poll {
			remaining = poll
		}
		if err := Sleep(ctx, remaining); err != nil {
			return "", WaitTimedOut, err
		}
	}
}

// FirstPresent returns the first selector, in order, that currently matches.
// Query errors count as "not present"; pages mid-navigation routinely fail queries.
func FirstPresent(ctx context.Context, page Page, selectors []string) (string, bool) {
	for _, sel := range selectors {
		ok, err := page.Has(ctx, sel)
		if err != nil {
			logging.BrowserDebug("query %q failed: %v", sel, err)
			continue
		}
		if ok {
			return sel, true
		}
	}
	return "", false
}

// Sleep waits for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
