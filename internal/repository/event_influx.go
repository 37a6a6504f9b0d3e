package repository

import (
	"context"
	"net"
	"net/url"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"influx_events/internal/config"
	"influx_events/internal/logger"
	"influx_events/internal/models"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// predicateDeleter is satisfied by api.DeleteAPI.
type predicateDeleter interface {
	DeleteWithName(ctx context.Context, orgName, bucketName string, start, stop time.Time, predicate string) error
}

// recordQuerier runs a Flux query and returns every record.
type recordQuerier interface {
	queryRecords(ctx context.Context, flux string) ([]*query.FluxRecord, error)
}

type fluxRunner struct {
	api api.QueryAPI
}

func (r fluxRunner) queryRecords(ctx context.Context, flux string) ([]*query.FluxRecord, error) {
	res, err := r.api.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	out := make([]*query.FluxRecord, 0, 64)
	for res.Next() {
		out = append(out, res.Record())
	}
	return out, res.Err()
}

// EventInflux stores events as points of the "events" measurement.
type EventInflux struct {
	client  influxdb2.Client
	writer  pointWriter
	querier recordQuerier
	deleter predicateDeleter
	org     string
	bucket  string
	log     *logger.Logger
}

// NewEventInflux connects to InfluxDB and fails fast when the server cannot be reached.
func NewEventInflux(ctx context.Context, cfg config.InfluxDBConfig, log *logger.Logger) (*EventInflux, error) {
	opts := influxdb2.DefaultOptions()
	if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ok, err := client.Ping(ctx)
	if err == nil && !ok {
		err = errors.Errorf("influxdb at %s did not answer ping", cfg.URL)
	}
	if err != nil {
		client.Close()
		return nil, &StoreError{Op: "connect", Kind: ErrConnection, Err: errors.Wrap(err, "ping influxdb")}
	}

	r := newEventInflux(
		client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		fluxRunner{api: client.QueryAPI(cfg.Org)},
		client.DeleteAPI(),
		cfg.Org, cfg.Bucket, log,
	)
	r.client = client
	return r, nil
}

func newEventInflux(w pointWriter, q recordQuerier, d predicateDeleter, org, bucket string, log *logger.Logger) *EventInflux {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventInflux{writer: w, querier: q, deleter: d, org: org, bucket: bucket, log: log}
}

// eventPoint encodes an event: six tags and the message field.
func eventPoint(e models.Event) *write.Point {
	return influxdb2.NewPoint(measurement,
		map[string]string{
			models.TagSeverity:        e.Severity.Name,
			models.TagEventType:       e.EventType.Name,
			models.TagSourceName:      e.Source.Name,
			models.TagSourceIP:        e.Source.IPAddress,
			models.TagLocationCountry: e.Source.Location.Country,
			models.TagLocationCity:    e.Source.Location.City,
		},
		map[string]interface{}{fieldMessage: e.Message},
		e.Timestamp,
	)
}

func storedPoint(s models.StoredEvent) *write.Point {
	return influxdb2.NewPoint(measurement,
		map[string]string{
			models.TagSeverity:        s.Severity,
			models.TagEventType:       s.EventType,
			models.TagSourceName:      s.SourceName,
			models.TagSourceIP:        s.SourceIP,
			models.TagLocationCountry: s.LocationCountry,
			models.TagLocationCity:    s.LocationCity,
		},
		map[string]interface{}{fieldMessage: s.Message},
		s.Timestamp,
	)
}

func recordString(r *query.FluxRecord, key string) string {
	if v, ok := r.ValueByKey(key).(string); ok {
		return v
	}
	return ""
}

func recordEvent(r *query.FluxRecord) models.StoredEvent {
	msg, _ := r.Value().(string)
	return models.StoredEvent{
		Timestamp:       r.Time().UTC(),
		Message:         msg,
		Severity:        recordString(r, models.TagSeverity),
		EventType:       recordString(r, models.TagEventType),
		SourceName:      recordString(r, models.TagSourceName),
		SourceIP:        recordString(r, models.TagSourceIP),
		LocationCountry: recordString(r, models.TagLocationCountry),
		LocationCity:    recordString(r, models.TagLocationCity),
	}
}

// classifyInflux turns a client error into a StoreError of the right kind.
func classifyInflux(op string, err error) error {
	kind := ErrQuery

	var (
		herr   *ihttp.Error
		netErr net.Error
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &herr):
		switch herr.StatusCode {
		case 0, 401, 403, 502, 503, 504:
			kind = ErrConnection
		}
	case errors.As(err, &netErr), errors.As(err, &urlErr),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = ErrConnection
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func (r *EventInflux) Write(ctx context.Context, e models.Event) error {
	if err := r.writer.WritePoint(ctx, eventPoint(e)); err != nil {
		return classifyInflux("write", err)
	}
	return nil
}

// WriteBatch sends every point in a single write request.
func (r *EventInflux) WriteBatch(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(events))
	for _, e := range events {
		points = append(points, eventPoint(e))
	}
	if err := r.writer.WritePoint(ctx, points...); err != nil {
		return classifyInflux("write_batch", err)
	}
	return nil
}

func (r *EventInflux) Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error) {
	// range stop is exclusive in Flux
	flux := rangeQuery(r.bucket, start, end.Add(time.Nanosecond), f.Tags(), 0)
	r.log.Debugw("influx_query", "flux", flux)

	records, err := r.querier.queryRecords(ctx, flux)
	if err != nil {
		return nil, classifyInflux("query", err)
	}
	out := make([]models.StoredEvent, 0, len(records))
	for _, rec := range records {
		out = append(out, recordEvent(rec))
	}
	return out, nil
}

// UpdateSeverity is a read, delete, write sequence: the store has no update
// primitive. Callers serialize it per key.
func (r *EventInflux) UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error {
	start := u.Timestamp.UTC()
	stop := start.Add(updateWindow)
	match := map[string]string{
		models.TagSeverity:   u.OldSeverity,
		models.TagEventType:  u.EventType,
		models.TagSourceName: u.SourceName,
	}

	records, err := r.querier.queryRecords(ctx, rangeQuery(r.bucket, start, stop, match, 1))
	if err != nil {
		return classifyInflux("update_severity_lookup", err)
	}
	if len(records) == 0 {
		return errors.Wrapf(ErrNotFound, "update severity at %s", start.Format(time.RFC3339Nano))
	}
	found := recordEvent(records[0])

	// delete's stop bound is inclusive
	if err := r.deleter.DeleteWithName(ctx, r.org, r.bucket, start, stop.Add(-time.Nanosecond), deletePredicate(match)); err != nil {
		return classifyInflux("update_severity_delete", err)
	}

	found.Severity = u.NewSeverity
	if err := r.writer.WritePoint(ctx, storedPoint(found)); err != nil {
		r.log.Errorw("influx_update_severity_lost_point",
			"err", err, "timestamp", found.Timestamp, "source_name", found.SourceName)
		return classifyInflux("update_severity_write", err)
	}
	return nil
}

func (r *EventInflux) Delete(ctx context.Context, start, end time.Time) error {
	if err := r.deleter.DeleteWithName(ctx, r.org, r.bucket, start.UTC(), end.UTC(), deletePredicate(nil)); err != nil {
		return classifyInflux("delete", err)
	}
	return nil
}

func (r *EventInflux) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	ok, err := r.client.Ping(ctx)
	if err == nil && !ok {
		err = errors.New("ping returned not ready")
	}
	if err != nil {
		return &StoreError{Op: "ping", Kind: ErrConnection, Err: err}
	}
	return nil
}

func (r *EventInflux) Close() error {
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
