package round

import (
	"context"
	"log"

	"roulette_service/internal/apperr"
)

type Service struct {
	generator  *Generator
	history    *History
	clock      *Clock
	overrides  OverrideStore
	seedRounds int
}

func NewService(generator *Generator, history *History, clock *Clock, overrides OverrideStore, seedRounds int) *Service {
	return &Service{
		generator:  generator,
		history:    history,
		clock:      clock,
		overrides:  overrides,
		seedRounds: seedRounds,
	}
}

// InitialHistory returns the history buffer, seeding it with random rounds on
// a cold start so a freshly loaded client never sees an empty log. Seeding
// never consumes the operator override.
func (s *Service) InitialHistory() []Outcome {
	if s.history.Len() == 0 && s.seedRounds > 0 {
		seed := make([]Outcome, 0, s.seedRounds)
		for i := 0; i < s.seedRounds; i++ {
			seed = append(seed, s.generator.Draw())
		}
		if s.history.AppendIfEmpty(seed) {
			log.Printf("History seeded: rounds=%d", len(seed))
		}
	}
	return s.history.Snapshot()
}

func (s *Service) SetOverride(ctx context.Context, color Color) error {
	if !color.Valid() {
		return apperr.New(apperr.KindInvalidRequest, "color must be RED, BLUE or GREEN")
	}
	if err := s.overrides.SetOverride(ctx, color); err != nil {
		return err
	}
	log.Printf("Draw override set: color=%s", color)
	return nil
}

func (s *Service) State() State {
	return s.clock.Snapshot()
}

func (s *Service) History() *History {
	return s.history
}
