package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.Delay)
}

func TestNext_SuccessOnFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	s := p.Next(State{Phase: PhaseAttempting}, nil)
	assert.Equal(t, PhaseSucceeded, s.Phase)
	assert.Equal(t, 1, s.Attempt)
}

func TestNext_TerminalFaultAbortsImmediately(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	s := p.Next(State{Phase: PhaseAttempting}, domain.ErrProviderValidation)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, 1, s.Attempt)
	assert.ErrorIs(t, s.Err, domain.ErrProviderValidation)
}

func TestNext_TimeoutRetriesUntilBudgetExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	s := State{Phase: PhaseAttempting}
	s = p.Next(s, domain.ErrProviderTimeout)
	assert.Equal(t, PhaseAttempting, s.Phase)
	assert.Equal(t, 1, s.Attempt)

	s = p.Next(s, domain.ErrProviderTimeout)
	assert.Equal(t, PhaseAttempting, s.Phase)
	assert.Equal(t, 2, s.Attempt)

	s = p.Next(s, domain.ErrProviderTimeout)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, 3, s.Attempt)
	assert.ErrorIs(t, s.Err, domain.ErrProviderTimeout)
}

func TestNext_TerminalStatesAreAbsorbing(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	done := State{Phase: PhaseSucceeded, Attempt: 1}
	assert.Equal(t, done, p.Next(done, domain.ErrProviderTimeout))

	failed := State{Phase: PhaseFailed, Attempt: 2, Err: domain.ErrProvider}
	assert.Equal(t, failed, p.Next(failed, nil))
}

func TestExecute_TimeoutThenSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond}

	calls := 0
	op := func(ctx context.Context) (*domain.GenerationResult, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("call %d: %w", calls, domain.ErrProviderTimeout)
		}
		return &domain.GenerationResult{ImageRefs: []string{"https://provider/x.png"}}, nil
	}

	start := time.Now()
	result, err := p.Execute(context.Background(), op)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "https://provider/x.png", result.First())
	// Two retryable failures mean two full delays before the third call.
	assert.GreaterOrEqual(t, time.Since(start), 2*p.Delay)
}

func TestExecute_ValidationFaultMakesOneAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond}

	calls := 0
	op := func(ctx context.Context) (*domain.GenerationResult, error) {
		calls++
		return nil, domain.ErrProviderValidation
	}

	_, err := p.Execute(context.Background(), op)
	assert.ErrorIs(t, err, domain.ErrProviderValidation)
	assert.Equal(t, 1, calls)
}

func TestExecute_ExhaustionSurfacesLastFault(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	op := func(ctx context.Context) (*domain.GenerationResult, error) {
		calls++
		return nil, fmt.Errorf("call %d: %w", calls, domain.ErrProviderTimeout)
	}

	_, err := p.Execute(context.Background(), op)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.Contains(t, err.Error(), "call 3")
}

func TestExecute_ContextCancelledDuringWait(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(ctx context.Context) (*domain.GenerationResult, error) {
		calls++
		cancel()
		return nil, domain.ErrProviderTimeout
	}

	_, err := p.Execute(ctx, op)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}
