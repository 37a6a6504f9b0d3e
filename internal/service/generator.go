package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"influx_events/internal/config"
	"influx_events/internal/models"
	"influx_events/internal/synth"
)

// MaxGenerate caps a single generate request.
const MaxGenerate = 100_000

var ErrInvalidCount = fmt.Errorf("events_to_generate must be between 0 and %d", MaxGenerate)

// GenerateParams describes one generate request. Count 0 and zero bounds
// fall back to the configured defaults.
type GenerateParams struct {
	Count int
	Start time.Time
	End   time.Time
}

type GeneratorService struct {
	events Events
	synth  *synth.Generator
	cfg    config.GeneratorConfig
	now    func() time.Time
}

func NewGeneratorService(events Events, gen *synth.Generator, cfg config.GeneratorConfig) *GeneratorService {
	return &GeneratorService{events: events, synth: gen, cfg: cfg, now: time.Now}
}

// Generate writes Count random events spread over [Start, End] and returns
// how many were written.
func (s *GeneratorService) Generate(ctx context.Context, p GenerateParams) (int, error) {
	if p.Count < 0 || p.Count > MaxGenerate {
		return 0, ErrInvalidCount
	}
	if p.Count == 0 {
		p.Count = s.cfg.DefaultCount
	}
	now := s.now().UTC()
	if p.End.IsZero() {
		p.End = now
	}
	if p.Start.IsZero() {
		p.Start = p.End.Add(-s.cfg.DefaultWindow)
	}
	if p.Start.After(p.End) {
		return 0, ErrInvalidTimeRange
	}

	batch := s.synth.Batch(p.Count, p.Start, p.End, s.cfg.Jitter)
	if s.cfg.Batch {
		if err := s.events.CreateBatch(ctx, batch); err != nil {
			return 0, err
		}
		return len(batch), nil
	}
	return s.writeEach(ctx, batch)
}

// writeEach stops at the first failure and reports how many made it.
func (s *GeneratorService) writeEach(ctx context.Context, batch []models.Event) (int, error) {
	for i, e := range batch {
		if err := s.events.Create(ctx, e); err != nil {
			return i, errors.Join(fmt.Errorf("generated %d of %d events", i, len(batch)), err)
		}
	}
	return len(batch), nil
}
