package measure

import (
	"context"
	"time"

	"influx_events/internal/logger"
	"influx_events/internal/models"
	"influx_events/internal/synth"
)

// Measured operations. Each one ends up in its own output file.
const (
	OpCreate        = "create"
	OpDelete        = "delete"
	OpUpdate        = "update"
	OpGetAll        = "get_all"
	OpGetBySeverity = "get_by_severity"
	OpGetByCountry  = "get_by_country"
)

// Sample is the average duration of one operation at one span.
type Sample struct {
	Span     int     `json:"span"`
	Duration float64 `json:"duration"`
}

// Results maps an operation to its samples in span order.
type Results map[string][]Sample

// fixtureTime is where the update-get suite plants the event it updates.
var fixtureTime = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func fixtureEvent() models.Event {
	return models.Event{
		Timestamp: fixtureTime,
		Message:   "System startup completed",
		Severity:  models.Severity{Name: "INFO", Description: "Informational message"},
		EventType: models.EventType{Name: "SYSTEM_STATUS", Description: "System status update"},
		Source: models.Source{
			Name:      "web-server-01",
			IPAddress: "192.168.1.100",
			Location:  models.Location{Name: "DC-North", Country: "USA", City: "Chicago"},
		},
	}
}

func fixtureUpdate() models.SeverityUpdate {
	return models.SeverityUpdate{
		Timestamp:   fixtureTime,
		OldSeverity: "INFO",
		NewSeverity: "ERROR",
		EventType:   "SYSTEM_STATUS",
		SourceName:  "web-server-01",
	}
}

// Runner executes a plan strictly sequentially.
type Runner struct {
	plan   *Plan
	client *Client
	synth  *synth.Generator
	log    *logger.Logger
}

func NewRunner(p *Plan, client *Client, gen *synth.Generator, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{plan: p, client: client, synth: gen, log: log}
}

// Run executes every enabled suite. Failed requests are logged and count as
// zero; only context cancellation stops the sweep early.
func (r *Runner) Run(ctx context.Context) (Results, error) {
	res := Results{}
	if r.plan.Enabled(SuiteCreateDelete) {
		if err := r.createDelete(ctx, res); err != nil {
			return res, err
		}
	}
	if r.plan.Enabled(SuiteUpdateGet) {
		if err := r.updateGet(ctx, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// measure returns ms, or 0 after logging when the call failed.
func (r *Runner) measure(op string, span int, ms float64, err error) float64 {
	if err != nil {
		r.log.Warnw("measure_request_failed", "op", op, "span", span, "err", err)
		return 0
	}
	return ms
}

// quiet runs an unmeasured call and logs its failure.
func (r *Runner) quiet(op string, span int, err error) {
	if err != nil {
		r.log.Warnw("measure_request_failed", "op", op, "span", span, "err", err)
	}
}

func (r *Runner) createDelete(ctx context.Context, res Results) error {
	w := r.plan.Window
	for _, span := range r.plan.Spans {
		events := r.synth.Batch(span, w.GenerateStart, w.GenerateEnd, 0)

		var create, del float64
		for run := 0; run < r.plan.Runs; run++ {
			ms, err := r.client.CreateBatch(ctx, events)
			create += r.measure(OpCreate, span, ms, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}

			ms, err = r.client.Clear(ctx, w.QueryStart, w.QueryEnd)
			del += r.measure(OpDelete, span, ms, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		res.add(OpCreate, span, create/float64(r.plan.Runs))
		res.add(OpDelete, span, del/float64(r.plan.Runs))
		r.log.Infow("measure_span_done", "suite", SuiteCreateDelete, "span", span,
			OpCreate, create/float64(r.plan.Runs), OpDelete, del/float64(r.plan.Runs))
	}
	return nil
}

func (r *Runner) updateGet(ctx context.Context, res Results) error {
	w := r.plan.Window
	severity := models.EventFilter{Severity: "INFO"}
	country := models.EventFilter{LocationCountry: "USA"}

	for _, span := range r.plan.Spans {
		if span > 1 {
			_, err := r.client.Generate(ctx, span-1, w.GenerateStart, w.GenerateEnd)
			r.quiet("generate", span, err)
		}

		totals := map[string]float64{}
		for run := 0; run < r.plan.Runs; run++ {
			_, err := r.client.Create(ctx, fixtureEvent())
			r.quiet(OpCreate, span, err)

			ms, err := r.client.Query(ctx, w.QueryStart, w.QueryEnd, models.EventFilter{})
			totals[OpGetAll] += r.measure(OpGetAll, span, ms, err)

			ms, err = r.client.Query(ctx, w.QueryStart, w.QueryEnd, severity)
			totals[OpGetBySeverity] += r.measure(OpGetBySeverity, span, ms, err)

			ms, err = r.client.Query(ctx, w.QueryStart, w.QueryEnd, country)
			totals[OpGetByCountry] += r.measure(OpGetByCountry, span, ms, err)

			if err := sleep(ctx, r.plan.Settle); err != nil {
				return err
			}
			ms, err = r.client.UpdateSeverity(ctx, fixtureUpdate())
			totals[OpUpdate] += r.measure(OpUpdate, span, ms, err)

			_, err = r.client.Clear(ctx, fixtureTime, fixtureTime)
			r.quiet(OpDelete, span, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		for _, op := range []string{OpUpdate, OpGetAll, OpGetBySeverity, OpGetByCountry} {
			res.add(op, span, totals[op]/float64(r.plan.Runs))
		}
		r.log.Infow("measure_span_done", "suite", SuiteUpdateGet, "span", span,
			OpUpdate, totals[OpUpdate]/float64(r.plan.Runs), OpGetAll, totals[OpGetAll]/float64(r.plan.Runs))

		_, err := r.client.Clear(ctx, w.QueryStart, w.QueryEnd)
		r.quiet(OpDelete, span, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (res Results) add(op string, span int, avg float64) {
	res[op] = append(res[op], Sample{Span: span, Duration: avg})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
