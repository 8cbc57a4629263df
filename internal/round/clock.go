package round

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"roulette_service/internal/broadcast"
)

// MaxRollAttempts is how many consecutive ticks may fail to produce an
// outcome before the round is abandoned and a fresh betting window opens.
const MaxRollAttempts = 3

type OutcomeSource interface {
	Generate(ctx context.Context) (Outcome, error)
}

type TimerUpdate struct {
	Phase            Phase `json:"phase"`
	SecondsRemaining int   `json:"secondsRemaining"`
}

type RolledEvent struct {
	Outcome Outcome `json:"outcome"`
}

type ResetEvent struct{}

// Clock is the single writer of the global round state. Everything else reads
// it through Snapshot.
type Clock struct {
	source    OutcomeSource
	history   *History
	publisher broadcast.Publisher
	logger    *log.Logger

	bettingSeconds int
	rollingSeconds int
	interval       time.Duration

	tickMu   sync.Mutex
	failures int

	mu    sync.RWMutex
	state State
}

func NewClock(source OutcomeSource, history *History, publisher broadcast.Publisher, bettingSeconds, rollingSeconds int) *Clock {
	return &Clock{
		source:         source,
		history:        history,
		publisher:      publisher,
		logger:         log.New(os.Stdout, "[round] ", log.LstdFlags),
		bettingSeconds: bettingSeconds,
		rollingSeconds: rollingSeconds,
		interval:       time.Second,
		state:          State{Phase: PhaseBetting, SecondsRemaining: bettingSeconds},
	}
}

// Run ticks once per second until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	st := c.Snapshot()
	c.logger.Printf("Round clock started: phase=%s seconds=%d", st.Phase, st.SecondsRemaining)
	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("Round clock stopped")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick advances the clock by one second: count down, broadcast the timer,
// then transition if the phase has expired.
func (c *Clock) Tick(ctx context.Context) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	if c.state.SecondsRemaining > 0 {
		c.state.SecondsRemaining--
	}
	update := TimerUpdate{Phase: c.state.Phase, SecondsRemaining: c.state.SecondsRemaining}
	c.mu.Unlock()

	c.publisher.Publish(broadcast.TopicTimerUpdate, update)

	if update.SecondsRemaining > 0 {
		return
	}
	switch update.Phase {
	case PhaseBetting:
		c.roll(ctx)
	case PhaseRolling:
		c.reset()
	}
}

func (c *Clock) roll(ctx context.Context) {
	outcome, err := c.source.Generate(ctx)
	if err != nil {
		c.failures++
		c.logger.Printf("Round roll failed: attempt=%d err=%v", c.failures, err)
		if c.failures >= MaxRollAttempts {
			c.logger.Printf("Round skipped after %d failed rolls", c.failures)
			c.failures = 0
			c.mu.Lock()
			c.state = State{Phase: PhaseBetting, SecondsRemaining: c.bettingSeconds}
			c.mu.Unlock()
		}
		return
	}
	c.failures = 0

	// History first, so a settlement that sees ROLLING also sees this outcome.
	c.history.Append(outcome)

	c.mu.Lock()
	current := outcome
	c.state = State{Phase: PhaseRolling, SecondsRemaining: c.rollingSeconds, CurrentOutcome: &current}
	c.mu.Unlock()

	c.logger.Printf("Round rolled: color=%s number=%d overridden=%t", outcome.Color, outcome.Number, outcome.Overridden)
	c.publisher.Publish(broadcast.TopicRoundRolled, RolledEvent{Outcome: outcome})
}

func (c *Clock) reset() {
	c.mu.Lock()
	c.state = State{Phase: PhaseBetting, SecondsRemaining: c.bettingSeconds}
	c.mu.Unlock()

	c.publisher.Publish(broadcast.TopicRoundReset, ResetEvent{})
}

func (c *Clock) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := c.state
	if st.CurrentOutcome != nil {
		o := *st.CurrentOutcome
		st.CurrentOutcome = &o
	}
	return st
}
