package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"influx_events/internal/models"
)

const (
	eventsTable = "events"
	// sqlBatchSize bounds the rows per INSERT statement.
	sqlBatchSize = 500
)

var eventColumns = []string{
	"occurred_at", "message", "severity", "event_type",
	"source_name", "source_ip", "location_country", "location_city",
}

// EventSQL keeps events in a relational table. occurred_at holds unix nanoseconds.
type EventSQL struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ EventRepo = (*EventSQL)(nil)

// NewEventSQL wraps an open database. driver selects the placeholder style.
func NewEventSQL(db *sql.DB, driver string) *EventSQL {
	return &EventSQL{db: db, sb: statementBuilder(driver)}
}

func statementBuilder(driver string) sq.StatementBuilderType {
	if driver == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func eventValues(e models.Event) []interface{} {
	return []interface{}{
		e.Timestamp.UTC().UnixNano(), e.Message, e.Severity.Name, e.EventType.Name,
		e.Source.Name, e.Source.IPAddress, e.Source.Location.Country, e.Source.Location.City,
	}
}

func storedValues(s models.StoredEvent) []interface{} {
	return []interface{}{
		s.Timestamp.UTC().UnixNano(), s.Message, s.Severity, s.EventType,
		s.SourceName, s.SourceIP, s.LocationCountry, s.LocationCity,
	}
}

// classifySQL turns a driver error into a StoreError of the right kind.
func classifySQL(op string, err error) error {
	kind := ErrQuery
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		kind = ErrConnection
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func (r *EventSQL) Write(ctx context.Context, e models.Event) error {
	q, args, err := r.sb.Insert(eventsTable).Columns(eventColumns...).Values(eventValues(e)...).ToSql()
	if err != nil {
		return &StoreError{Op: "write", Kind: ErrQuery, Err: err}
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return classifySQL("write", err)
	}
	return nil
}

// WriteBatch inserts all events in one transaction, sqlBatchSize rows per statement.
func (r *EventSQL) WriteBatch(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQL("write_batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	for from := 0; from < len(events); from += sqlBatchSize {
		to := min(from+sqlBatchSize, len(events))
		ins := r.sb.Insert(eventsTable).Columns(eventColumns...)
		for _, e := range events[from:to] {
			ins = ins.Values(eventValues(e)...)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return &StoreError{Op: "write_batch", Kind: ErrQuery, Err: err}
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return classifySQL("write_batch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifySQL("write_batch", err)
	}
	return nil
}

func (r *EventSQL) selectEvents(start, stop int64, tags map[string]string) sq.SelectBuilder {
	sel := r.sb.Select(eventColumns...).From(eventsTable)
	for _, p := range matchWindow(start, stop, tags) {
		sel = sel.Where(p)
	}
	return sel.OrderBy("occurred_at ASC", "id ASC")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.StoredEvent, error) {
	var (
		s  models.StoredEvent
		ns int64
	)
	err := row.Scan(&ns, &s.Message, &s.Severity, &s.EventType,
		&s.SourceName, &s.SourceIP, &s.LocationCountry, &s.LocationCity)
	s.Timestamp = time.Unix(0, ns).UTC()
	return s, err
}

func (r *EventSQL) Query(ctx context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error) {
	q, args, err := r.selectEvents(start.UTC().UnixNano(), end.UTC().UnixNano(), f.Tags()).ToSql()
	if err != nil {
		return nil, &StoreError{Op: "query", Kind: ErrQuery, Err: err}
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classifySQL("query", err)
	}
	defer rows.Close()

	out := make([]models.StoredEvent, 0, 64)
	for rows.Next() {
		s, err := scanEvent(rows)
		if err != nil {
			return nil, classifySQL("query", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQL("query", err)
	}
	return out, nil
}

// matchWindow narrows a statement to [start, stop] and the given tags.
func matchWindow(start, stop int64, tags map[string]string) []sq.Sqlizer {
	preds := []sq.Sqlizer{sq.GtOrEq{"occurred_at": start}, sq.LtOrEq{"occurred_at": stop}}
	for _, k := range sortedKeys(tags) {
		preds = append(preds, sq.Eq{k: tags[k]})
	}
	return preds
}

// UpdateSeverity rewrites the first matching row with the new severity and
// drops every other match in the window, all in one transaction.
func (r *EventSQL) UpdateSeverity(ctx context.Context, u models.SeverityUpdate) error {
	start := u.Timestamp.UTC().UnixNano()
	stop := u.Timestamp.UTC().Add(updateWindow).UnixNano() - 1
	match := map[string]string{
		models.TagSeverity:   u.OldSeverity,
		models.TagEventType:  u.EventType,
		models.TagSourceName: u.SourceName,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQL("update_severity", err)
	}
	defer func() { _ = tx.Rollback() }()

	q, args, err := r.selectEvents(start, stop, match).Limit(1).ToSql()
	if err != nil {
		return &StoreError{Op: "update_severity", Kind: ErrQuery, Err: err}
	}
	s, err := scanEvent(tx.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "update severity at %s", u.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return classifySQL("update_severity_lookup", err)
	}

	del := r.sb.Delete(eventsTable)
	for _, p := range matchWindow(start, stop, match) {
		del = del.Where(p)
	}
	dq, dargs, err := del.ToSql()
	if err != nil {
		return &StoreError{Op: "update_severity", Kind: ErrQuery, Err: err}
	}
	if _, err := tx.ExecContext(ctx, dq, dargs...); err != nil {
		return classifySQL("update_severity_delete", err)
	}

	s.Severity = u.NewSeverity
	ins, iargs, err := r.sb.Insert(eventsTable).Columns(eventColumns...).Values(storedValues(s)...).ToSql()
	if err != nil {
		return &StoreError{Op: "update_severity", Kind: ErrQuery, Err: err}
	}
	if _, err := tx.ExecContext(ctx, ins, iargs...); err != nil {
		return classifySQL("update_severity_write", err)
	}

	if err := tx.Commit(); err != nil {
		return classifySQL("update_severity", err)
	}
	return nil
}

func (r *EventSQL) Delete(ctx context.Context, start, end time.Time) error {
	q, args, err := r.sb.Delete(eventsTable).
		Where(sq.GtOrEq{"occurred_at": start.UTC().UnixNano()}).
		Where(sq.LtOrEq{"occurred_at": end.UTC().UnixNano()}).
		ToSql()
	if err != nil {
		return &StoreError{Op: "delete", Kind: ErrQuery, Err: err}
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return classifySQL("delete", err)
	}
	return nil
}

func (r *EventSQL) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &StoreError{Op: "ping", Kind: ErrConnection, Err: err}
	}
	return nil
}

// Close is a no-op: the *sql.DB is shared with the accounts repository and closed by main.
func (r *EventSQL) Close() error { return nil }
