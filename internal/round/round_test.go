package round

import (
	"context"
	"errors"
	mathrand "math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roulette_service/internal/apperr"
	"roulette_service/internal/broadcast"
	"roulette_service/internal/config"
)

type memoryOverrides struct {
	mu      sync.Mutex
	pending *Color
	err     error
}

func (m *memoryOverrides) ConsumeOverride(ctx context.Context) (Color, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	if m.pending == nil {
		return "", false, nil
	}
	c := *m.pending
	m.pending = nil
	return c, true, nil
}

func (m *memoryOverrides) SetOverride(ctx context.Context, color Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &color
	return nil
}

type recordedEvent struct {
	topic   broadcast.Topic
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(topic broadcast.Topic, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic: topic, payload: payload})
}

func (r *recorder) topics() []broadcast.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcast.Topic, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic)
	}
	return out
}

func (r *recorder) count(topic broadcast.Topic) int {
	n := 0
	for _, t := range r.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

func newTestGenerator(store OverrideStore) *Generator {
	return NewGenerator(store, config.DefaultGameTable().Weights, mathrand.New(mathrand.NewSource(42)))
}

func TestGeneratedOutcomesAreConsistent(t *testing.T) {
	gen := newTestGenerator(&memoryOverrides{})
	seen := map[Color]bool{}

	for i := 0; i < 5000; i++ {
		o, err := gen.Generate(context.Background())
		require.NoError(t, err)
		seen[o.Color] = true
		assert.False(t, o.Overridden)

		if o.Color == ColorGreen {
			assert.Equal(t, WildcardNumber, o.Number)
			assert.Equal(t, ParityNone, o.Parity)
			continue
		}
		require.GreaterOrEqual(t, o.Number, 1)
		require.LessOrEqual(t, o.Number, 100)
		if o.Number%2 == 0 {
			assert.Equal(t, ParityEven, o.Parity)
		} else {
			assert.Equal(t, ParityOdd, o.Parity)
		}
	}
	assert.True(t, seen[ColorRed])
	assert.True(t, seen[ColorBlue])
	assert.True(t, seen[ColorGreen])
}

// fixedSource makes every Float64 draw return p.
type fixedSource struct{ v int64 }

func newFixedSource(p float64) *fixedSource {
	return &fixedSource{v: int64(p * (1 << 63))}
}

func (s *fixedSource) Int63() int64 { return s.v }
func (s *fixedSource) Seed(int64) {}

func TestColorThresholds(t *testing.T) {
	cases := []struct {
		chance float64
		want   Color
	}{
		{0, ColorGreen},
		{0.0199, ColorGreen},
		{0.02, ColorBlue},
		{0.3, ColorBlue},
		{0.5099, ColorBlue},
		{0.5101, ColorRed},
		{0.9, ColorRed},
	}
	for _, tc := range cases {
		gen := NewGenerator(&memoryOverrides{}, config.DefaultGameTable().Weights, mathrand.New(newFixedSource(tc.chance)))
		assert.Equal(t, tc.want, gen.Draw().Color, "chance=%v", tc.chance)

		o, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tc.want, o.Color, "chance=%v", tc.chance)
	}
}

func TestColorFrequencies(t *testing.T) {
	gen := NewGenerator(&memoryOverrides{}, config.DefaultGameTable().Weights, mathrand.New(mathrand.NewSource(7)))
	const draws = 200000
	counts := map[Color]int{}
	for i := 0; i < draws; i++ {
		counts[gen.Draw().Color]++
	}

	green := float64(counts[ColorGreen]) / draws
	blue := float64(counts[ColorBlue]) / draws
	red := float64(counts[ColorRed]) / draws
	assert.InDelta(t, 0.02, green, 0.003)
	assert.InDelta(t, 0.49, blue, 0.005)
	assert.InDelta(t, 0.49, red, 0.005)
}

func TestOverrideIsOneShot(t *testing.T) {
	store := &memoryOverrides{}
	gen := NewGenerator(store, config.ColorWeights{Red: 1}, nil)
	require.NoError(t, store.SetOverride(context.Background(), ColorGreen))

	first, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ColorGreen, first.Color)
	assert.True(t, first.Overridden)

	second, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ColorRed, second.Color)
	assert.False(t, second.Overridden)
}

func TestGenerateFailsWhenStoreUnavailable(t *testing.T) {
	gen := newTestGenerator(&memoryOverrides{err: errors.New("connection refused")})

	_, err := gen.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.New(apperr.KindGeneratorFailure, ""))
}

func TestGreenOutcomeMarshalsNulls(t *testing.T) {
	raw, err := NewOutcome(ColorGreen, 33, true).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"GREEN","number":null,"parity":null,"overridden":true}`, string(raw))

	raw, err = NewOutcome(ColorRed, 7, false).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":"RED","number":7,"parity":"ODD","overridden":false}`, string(raw))
}

func TestHistoryIsBoundedFIFO(t *testing.T) {
	h := NewHistory(50)
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 1; i <= 60; i++ {
		h.Append(NewOutcome(ColorRed, i, false))
		require.LessOrEqual(t, h.Len(), h.Cap())
	}

	snap := h.Snapshot()
	require.Len(t, snap, 50)
	assert.Equal(t, 11, snap[0].Number)
	assert.Equal(t, 60, snap[49].Number)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 60, latest.Number)
}

func TestAppendIfEmptyOnlySeedsOnce(t *testing.T) {
	h := NewHistory(5)
	seed := []Outcome{NewOutcome(ColorBlue, 2, false), NewOutcome(ColorRed, 3, false)}

	assert.True(t, h.AppendIfEmpty(seed))
	assert.False(t, h.AppendIfEmpty(seed))
	assert.Equal(t, 2, h.Len())
}

func TestClockCycle(t *testing.T) {
	store := &memoryOverrides{}
	history := NewHistory(50)
	pub := &recorder{}
	clock := NewClock(newTestGenerator(store), history, pub, 3, 2)
	ctx := context.Background()

	assert.Equal(t, State{Phase: PhaseBetting, SecondsRemaining: 3}, clock.Snapshot())

	clock.Tick(ctx)
	clock.Tick(ctx)
	assert.Equal(t, 0, history.Len())
	assert.Equal(t, 1, clock.Snapshot().SecondsRemaining)

	clock.Tick(ctx)
	st := clock.Snapshot()
	assert.Equal(t, PhaseRolling, st.Phase)
	assert.Equal(t, 2, st.SecondsRemaining)
	require.NotNil(t, st.CurrentOutcome)
	latest, ok := history.Latest()
	require.True(t, ok)
	assert.Equal(t, latest, *st.CurrentOutcome)

	clock.Tick(ctx)
	clock.Tick(ctx)
	st = clock.Snapshot()
	assert.Equal(t, PhaseBetting, st.Phase)
	assert.Equal(t, 3, st.SecondsRemaining)
	assert.Nil(t, st.CurrentOutcome)
	assert.Equal(t, 1, history.Len())

	assert.Equal(t, []broadcast.Topic{
		broadcast.TopicTimerUpdate,
		broadcast.TopicTimerUpdate,
		broadcast.TopicTimerUpdate,
		broadcast.TopicRoundRolled,
		broadcast.TopicTimerUpdate,
		broadcast.TopicTimerUpdate,
		broadcast.TopicRoundReset,
	}, pub.topics())
}

func TestClockRetriesThenSkipsOnGeneratorFailure(t *testing.T) {
	store := &memoryOverrides{err: errors.New("db down")}
	history := NewHistory(50)
	pub := &recorder{}
	clock := NewClock(newTestGenerator(store), history, pub, 1, 1)
	ctx := context.Background()

	clock.Tick(ctx)
	assert.Equal(t, State{Phase: PhaseBetting, SecondsRemaining: 0}, clock.Snapshot())

	clock.Tick(ctx)
	assert.Equal(t, State{Phase: PhaseBetting, SecondsRemaining: 0}, clock.Snapshot())

	clock.Tick(ctx)
	assert.Equal(t, State{Phase: PhaseBetting, SecondsRemaining: 1}, clock.Snapshot())
	assert.Equal(t, 0, history.Len())
	assert.Equal(t, 0, pub.count(broadcast.TopicRoundRolled))
	assert.Equal(t, 3, pub.count(broadcast.TopicTimerUpdate))

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	clock.Tick(ctx)
	assert.Equal(t, PhaseRolling, clock.Snapshot().Phase)
	assert.Equal(t, 1, pub.count(broadcast.TopicRoundRolled))
}

func TestClockRunStopsOnCancel(t *testing.T) {
	clock := NewClock(newTestGenerator(&memoryOverrides{}), NewHistory(5), &recorder{}, 15, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clock.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}

func TestServiceSeedsColdStartWithoutConsumingOverride(t *testing.T) {
	store := &memoryOverrides{}
	gen := newTestGenerator(store)
	history := NewHistory(50)
	svc := NewService(gen, history, NewClock(gen, history, &recorder{}, 15, 5), store, 10)

	require.NoError(t, svc.SetOverride(context.Background(), ColorGreen))
	first := svc.InitialHistory()
	assert.Len(t, first, 10)
	assert.Len(t, svc.InitialHistory(), 10)

	o, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ColorGreen, o.Color)
	assert.True(t, o.Overridden)
}

func TestServiceRejectsUnknownColor(t *testing.T) {
	store := &memoryOverrides{}
	gen := newTestGenerator(store)
	svc := NewService(gen, NewHistory(5), nil, store, 0)

	err := svc.SetOverride(context.Background(), Color("PURPLE"))
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}
