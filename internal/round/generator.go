package round

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"roulette_service/internal/apperr"
	"roulette_service/internal/config"
)

const maxNumber = 100

// OverrideStore holds the operator's one-shot color override.
type OverrideStore interface {
	// ConsumeOverride returns the pending override and clears it atomically.
	ConsumeOverride(ctx context.Context) (Color, bool, error)
	SetOverride(ctx context.Context, color Color) error
}

type Generator struct {
	overrides OverrideStore
	weights   config.ColorWeights

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewGenerator(overrides OverrideStore, weights config.ColorWeights, rng *mathrand.Rand) *Generator {
	if rng == nil {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		overrides: overrides,
		weights:   weights,
		rand:      rng,
	}
}

// Generate produces the next round outcome, honoring and consuming a pending
// override. It fails only when the override store is unavailable.
func (g *Generator) Generate(ctx context.Context) (Outcome, error) {
	forced, ok, err := g.overrides.ConsumeOverride(ctx)
	if err != nil {
		return Outcome{}, apperr.Wrap(apperr.KindGeneratorFailure, "consume override", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	number := g.rand.Intn(maxNumber) + 1
	if ok {
		return NewOutcome(forced, number, true), nil
	}
	return NewOutcome(g.drawColorLocked(), number, false), nil
}

// Draw produces a purely random outcome without touching the override.
func (g *Generator) Draw() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	number := g.rand.Intn(maxNumber) + 1
	return NewOutcome(g.drawColorLocked(), number, false)
}

func (g *Generator) drawColorLocked() Color {
	chance := g.rand.Float64()
	switch {
	case chance < g.weights.Green:
		return ColorGreen
	case chance < g.weights.Green+g.weights.Blue:
		return ColorBlue
	default:
		return ColorRed
	}
}
