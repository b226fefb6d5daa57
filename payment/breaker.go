package payment

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var ErrCircuitOpen = errors.New("payment gateway circuit breaker is open")

// Breaker guards outbound gateway calls. After maxFailures consecutive
// failures it opens and rejects calls until resetTimeout elapses, then lets a
// single probe through.
type Breaker struct {
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           State
	mu              sync.Mutex
}

func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker admits the call. The lock covers only the
// admit and record steps, never fn itself, so concurrent calls do not
// serialize behind one slow gateway request.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(ctx, err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if time.Since(b.lastFailureTime) <= b.resetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.failureCount = 0
	}
	return nil
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = StateClosed
		b.failureCount = 0
		return
	}
	// A caller walking away is not a gateway failure.
	if errors.Is(err, ctx.Err()) {
		return
	}
	b.failureCount++
	b.lastFailureTime = time.Now()
	if b.failureCount >= b.maxFailures || b.state == StateHalfOpen {
		b.state = StateOpen
	}
}

func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
