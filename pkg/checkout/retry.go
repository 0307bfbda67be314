package checkout

import "time"

// PollPolicy bounds the upgrade confirmation poll. The loop is a sequential
// awaited wait-then-check; with the defaults the worst case blocks the
// request for about 1.8s, acceptable because billing-period changes are
// rare and user-initiated.
type PollPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// LinearBackoff returns a backoff of attempt multiplied by step.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// NoBackoff eliminates waiting between attempts, for tests.
func NoBackoff() func(int) time.Duration {
	return func(int) time.Duration { return 0 }
}

func defaultPollPolicy() PollPolicy {
	return PollPolicy{
		MaxAttempts: 4,
		Backoff:     LinearBackoff(450 * time.Millisecond),
	}
}

// wait sleeps for the attempt's backoff. Deliberately ignores context
// cancellation: once an upgrade charge may be in flight, the server-side
// reconciliation runs to completion even if the client disconnects, so the
// ledger is never left half-updated.
func (p PollPolicy) wait(attempt int) {
	if p.Backoff == nil {
		return
	}
	if d := p.Backoff(attempt); d > 0 {
		time.Sleep(d)
	}
}
