package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"influx_events/internal/config"
	"influx_events/internal/lock"
	"influx_events/internal/models"
	"influx_events/internal/repository"
)

var (
	ErrInvalidTimeRange  = errors.New("start_time must not be after end_time")
	ErrSeverityUnchanged = errors.New("new_severity equals old_severity")
)

// TimeRange is an inclusive [Start, End] interval. A zero bound means "unset".
type TimeRange struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

type EventService struct {
	repo   repository.EventRepo
	locker lock.Locker
	hub    *Hub
	clear  config.ClearConfig
	now    func() time.Time
}

func NewEventService(repo repository.EventRepo, locker lock.Locker, hub *Hub, clear config.ClearConfig) *EventService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &EventService{
		repo:   repo,
		locker: locker,
		hub:    hub,
		clear:  clear,
		now:    time.Now,
	}
}

func (s *EventService) publish(events ...models.Event) {
	if s.hub == nil {
		return
	}
	for _, e := range events {
		s.hub.Publish(e.Flatten())
	}
}

func (s *EventService) Create(ctx context.Context, e models.Event) error {
	if err := s.repo.Write(ctx, e); err != nil {
		return err
	}
	s.publish(e)
	return nil
}

// CreateBatch writes all events in one store request. An empty batch is a no-op.
func (s *EventService) CreateBatch(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.repo.WriteBatch(ctx, events); err != nil {
		return err
	}
	s.publish(events...)
	return nil
}

func (s *EventService) Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error) {
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return nil, ErrInvalidTimeRange
	}
	return s.repo.Query(ctx, start, end, f)
}

func (s *EventService) Clear(ctx context.Context, r TimeRange) (TimeRange, error) {
	now := s.now().UTC()
	if r.Start.IsZero() {
		r.Start = now.Add(-s.clear.DefaultLookback)
	}
	if r.End.IsZero() {
		r.End = now.Add(s.clear.DefaultLookahead)
	}
	r.Start, r.End = r.Start.UTC(), r.End.UTC()
	if r.Start.After(r.End) {
		return r, ErrInvalidTimeRange
	}
	return r, s.repo.Delete(ctx, r.Start, r.End)
}

// UpdateSeverity runs the store's read-delete-write sequence while holding
// the locks covering the event's (timestamp window, type, source).
func (s *EventService) UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error {
	if u.OldSeverity == u.NewSeverity {
		return ErrSeverityUnchanged
	}
	u.Timestamp = u.Timestamp.UTC()

	unlock, err := lock.LockAll(ctx, s.locker, lock.SeverityKeys(u.Timestamp, u.EventType, u.SourceName)...)
	if err != nil {
		return fmt.Errorf("lock event for severity update: %w", err)
	}
	defer unlock()

	return s.repo.UpdateSeverity(ctx, u)
}

func (s *EventService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
