package retry

import (
	"context"
	"log"
	"time"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

const (
	// DefaultMaxAttempts is 1 initial attempt plus 2 retries.
	DefaultMaxAttempts = 3
	// DefaultDelay is the flat wait between retryable attempts. There is
	// no backoff; every wait is exactly this long.
	DefaultDelay = 2 * time.Second
)

// Operation is a single call to the generation provider.
type Operation func(ctx context.Context) (*domain.GenerationResult, error)

// Policy bounds retries of a provider call.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// Phase is the controller's position in the attempt loop.
type Phase int

const (
	PhaseAttempting Phase = iota
	PhaseSucceeded
	PhaseFailed
)

// State tracks attempts made so far. Attempt counts attempts already
// consumed, so a fresh state is {PhaseAttempting, 0}.
type State struct {
	Phase   Phase
	Attempt int
	Err     error
}

// Next is the pure transition function from (state, attempt outcome) to
// the next state. It never sleeps and never calls the provider; the
// executor below drives it.
func (p Policy) Next(s State, err error) State {
	if s.Phase != PhaseAttempting {
		return s
	}

	attempt := s.Attempt + 1
	switch {
	case err == nil:
		return State{Phase: PhaseSucceeded, Attempt: attempt}
	case !domain.Retryable(err):
		// Terminal fault: abort without consuming the remaining budget.
		return State{Phase: PhaseFailed, Attempt: attempt, Err: err}
	case attempt >= p.MaxAttempts:
		return State{Phase: PhaseFailed, Attempt: attempt, Err: err}
	default:
		return State{Phase: PhaseAttempting, Attempt: attempt, Err: err}
	}
}

// Execute runs op under the policy. Between retryable failures it waits
// p.Delay, suspending only the calling goroutine. On exhaustion the last
// observed fault is returned as-is, so errors.Is classification survives.
func (p Policy) Execute(ctx context.Context, op Operation) (*domain.GenerationResult, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	state := State{Phase: PhaseAttempting}
	for {
		result, err := op(ctx)
		state = p.Next(state, err)

		switch state.Phase {
		case PhaseSucceeded:
			return result, nil
		case PhaseFailed:
			return nil, state.Err
		}

		log.Printf("[retry] attempt %d/%d failed, retrying in %s: %v",
			state.Attempt, p.MaxAttempts, p.Delay, err)

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
