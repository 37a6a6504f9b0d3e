package repository

import (
	"context"
	"time"

	"influx_events/internal/metrics"
	"influx_events/internal/models"
)

// Instrumented records latency and outcome of every call on the wrapped store.
type Instrumented struct {
	next EventRepo
	m    *metrics.Metrics
}

var _ EventRepo = (*Instrumented)(nil)

func NewInstrumented(next EventRepo, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, m: m}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.m.ObserveStore(op, Outcome(err), time.Since(start))
}

func (i *Instrumented) Write(ctx context.Context, e models.Event) error {
	start := time.Now()
	err := i.next.Write(ctx, e)
	i.observe("write", start, err)
	if err == nil {
		i.m.EventsWritten.Inc()
	}
	return err
}

func (i *Instrumented) WriteBatch(ctx context.Context, events []models.Event) error {
	start := time.Now()
	err := i.next.WriteBatch(ctx, events)
	i.observe("write_batch", start, err)
	if err == nil {
		i.m.EventsWritten.Add(float64(len(events)))
	}
	return err
}

func (i *Instrumented) Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error) {
	began := time.Now()
	out, err := i.next.Query(ctx, start, end, f)
	i.observe("query", began, err)
	return out, err
}

func (i *Instrumented) UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error {
	start := time.Now()
	err := i.next.UpdateSeverity(ctx, u)
	i.observe("update_severity", start, err)
	return err
}

func (i *Instrumented) Delete(ctx context.Context, start, end time.Time) error {
	began := time.Now()
	err := i.next.Delete(ctx, start, end)
	i.observe("delete", began, err)
	return err
}

func (i *Instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}
