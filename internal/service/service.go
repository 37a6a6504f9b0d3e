package service

import (
	"context"
	"time"

	"influx_events/internal/config"
	"influx_events/internal/lock"
	"influx_events/internal/models"
	"influx_events/internal/repository"
	"influx_events/internal/synth"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Events covers the write, read, update and delete paths of the event store.
type Events interface {
	Create(ctx context.Context, e models.Event) error
	CreateBatch(ctx context.Context, events []models.Event) error
	Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error)
	// Clear deletes a time range. Zero bounds fall back to the configured defaults;
	// the applied range is returned.
	Clear(ctx context.Context, r TimeRange) (TimeRange, error)
	UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error
	Ping(ctx context.Context) error
}

// Generator writes synthetic events.
type Generator interface {
	Generate(ctx context.Context, p GenerateParams) (int, error)
}

// Feed hands out subscriptions to newly written events.
type Feed interface {
	Subscribe() *Subscription
	Unsubscribe(s *Subscription)
}

type Service struct {
	Events
	Generator
	Feed
	Authorization
}

// NewService wires the repository layer into the concrete services.
func NewService(repos *repository.Repository, locker lock.Locker, hub *Hub, cfg *config.Config) *Service {
	events := NewEventService(repos.Events, locker, hub, cfg.Clear)
	seed := cfg.Generator.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Service{
		Events:        events,
		Generator:     NewGeneratorService(events, synth.New(seed), cfg.Generator),
		Feed:          hub,
		Authorization: NewAuthService(repos.Auth, cfg.Auth),
	}
}
