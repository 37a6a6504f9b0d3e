package repository

import (
	"context"
	"database/sql"
	"time"

	"influx_events/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// EventRepo is the contract shared by the InfluxDB and SQL event stores.
type EventRepo interface {
	Write(ctx context.Context, e models.Event) error
	// WriteBatch submits all events as one unit: either all are reported written or none.
	WriteBatch(ctx context.Context, events []models.Event) error
	// Query returns events in [start, end] (inclusive) matching every filter tag, oldest first.
	Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error)
	// UpdateSeverity takes the first event in [ts, ts+1s) matching the old severity,
	// event type and source, removes every such match in that window and writes the
	// first one back with the new severity. Returns ErrNotFound when there is none.
	UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error
	// Delete removes every event in [start, end].
	Delete(ctx context.Context, start, end time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

// updateWindow is how far past the given timestamp UpdateSeverity looks.
const updateWindow = time.Second

type Repository struct {
	Events EventRepo
	Auth   Authorization
}

// NewRepository pairs an event store with the relational DB holding accounts.
func NewRepository(events EventRepo, db *sql.DB, driver string) *Repository {
	return &Repository{
		Events: events,
		Auth:   NewUserRepository(db, driver),
	}
}
