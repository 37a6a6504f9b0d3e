package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"influx_events/internal/models"
	"influx_events/internal/repository/db"
	"influx_events/internal/synth"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func newSQLMock(t *testing.T, driverName string) (*EventSQL, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = conn.Close()
	})
	return NewEventSQL(conn, driverName), mock
}

func TestEventSQL_Write(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "sqlite")
	ts := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (occurred_at,message,severity,event_type,source_name,source_ip,location_country,location_city) VALUES (?,?,?,?,?,?,?,?)")).
		WithArgs(ts.UnixNano(), "Disk usage at 91%", "WARNING", "SYSTEM", "server-01", "192.168.1.10", "USA", "New York").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Write(ctx(t), sampleEvent(ts)); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestEventSQL_Write_ClassifiesErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrConnection},
		{"conn done", sql.ErrConnDone, ErrConnection},
		{"constraint", errors.New("NOT NULL constraint failed"), ErrQuery},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo, mock := newSQLMock(t, "sqlite")
			mock.ExpectExec("INSERT INTO events").WillReturnError(tc.err)

			err := repo.Write(ctx(t), sampleEvent(time.Now()))
			if !errors.Is(err, tc.kind) {
				t.Fatalf("want %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestEventSQL_WriteBatch_ChunksInOneTransaction(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "sqlite")
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	events := make([]models.Event, sqlBatchSize+1)
	for i := range events {
		events[i] = sampleEvent(base.Add(time.Duration(i) * time.Second))
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, sqlBatchSize))
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.WriteBatch(ctx(t), events); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
}

func TestEventSQL_WriteBatch_RollsBackOnFailure(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "sqlite")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.WriteBatch(ctx(t), []models.Event{sampleEvent(time.Now())})
	if !errors.Is(err, ErrQuery) {
		t.Fatalf("want ErrQuery, got %v", err)
	}
}

func TestEventSQL_Query_PostgresPlaceholders(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "postgres")
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := sqlmock.NewRows(eventColumns).
		AddRow(start.Add(time.Minute).UnixNano(), "Disk usage at 91%", "ERROR", "SYSTEM", "server-01", "192.168.1.10", "USA", "New York")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT occurred_at, message, severity, event_type, source_name, source_ip, location_country, location_city FROM events " +
			"WHERE occurred_at >= $1 AND occurred_at <= $2 AND location_country = $3 AND severity = $4 ORDER BY occurred_at ASC, id ASC")).
		WithArgs(start.UnixNano(), end.UnixNano(), "USA", "ERROR").
		WillReturnRows(rows)

	got, err := repo.Query(ctx(t), start, end, models.EventFilter{Severity: "ERROR", LocationCountry: "USA"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || !got[0].Timestamp.Equal(start.Add(time.Minute)) || got[0].Severity != "ERROR" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got[0].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamps must come back in UTC")
	}
}

func TestEventSQL_UpdateSeverity_NotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "sqlite")
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM events").WillReturnRows(sqlmock.NewRows(append(eventColumns, "id")))
	mock.ExpectRollback()

	err := repo.UpdateSeverity(ctx(t), models.SeverityUpdate{
		Timestamp: time.Now(), OldSeverity: "INFO", NewSeverity: "ERROR", EventType: "SYSTEM", SourceName: "server-01",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestEventSQL_UpdateSeverity_DeletesWindowThenInserts(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "sqlite")
	ts := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE occurred_at >= ? AND occurred_at <= ? AND event_type = ? AND severity = ? AND source_name = ? ORDER BY occurred_at ASC, id ASC LIMIT 1")).
		WithArgs(ts.UnixNano(), ts.Add(time.Second).UnixNano()-1, "SYSTEM", "WARNING", "server-01").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(ts.UnixNano(), "msg", "WARNING", "SYSTEM", "server-01", "10.0.0.1", "USA", "Chicago"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE occurred_at >= ? AND occurred_at <= ? AND event_type = ? AND severity = ? AND source_name = ?")).
		WithArgs(ts.UnixNano(), ts.Add(time.Second).UnixNano()-1, "SYSTEM", "WARNING", "server-01").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO events").
		WithArgs(ts.UnixNano(), "msg", "CRITICAL", "SYSTEM", "server-01", "10.0.0.1", "USA", "Chicago").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	err := repo.UpdateSeverity(ctx(t), models.SeverityUpdate{
		Timestamp: ts, OldSeverity: "WARNING", NewSeverity: "CRITICAL", EventType: "SYSTEM", SourceName: "server-01",
	})
	if err != nil {
		t.Fatalf("UpdateSeverity: %v", err)
	}
}

func TestEventSQL_Delete(t *testing.T) {
	t.Parallel()

	repo, mock := newSQLMock(t, "mysql")
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE occurred_at >= ? AND occurred_at <= ?")).
		WithArgs(start.UnixNano(), end.UnixNano()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	if err := repo.Delete(ctx(t), start, end); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

// The tests below run against a real in-memory SQLite database.

func newSQLiteRepo(t *testing.T) *EventSQL {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.InitDB(db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewEventSQL(conn, db.DriverSQLite)
}

func sameEvent(a, b models.StoredEvent) bool {
	ts := a.Timestamp.Equal(b.Timestamp)
	a.Timestamp, b.Timestamp = time.Time{}, time.Time{}
	return ts && a == b
}

func TestEventSQLite_RoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	gen := synth.New(1)
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		e := gen.Event(base.Add(time.Duration(i) * time.Hour))
		if err := repo.Write(ctx(t), e); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := repo.Query(ctx(t), e.Timestamp, e.Timestamp, models.EventFilter{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 1 || !sameEvent(got[0], e.Flatten()) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, e.Flatten())
		}
	}
}

func TestEventSQLite_FiltersHaveNoFalsePositives(t *testing.T) {
	repo := newSQLiteRepo(t)
	gen := synth.New(2)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)

	if err := repo.WriteBatch(ctx(t), gen.Batch(200, start, end, 0)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	filters := []models.EventFilter{
		{},
		{Severity: "ERROR"},
		{EventType: "SECURITY_ALERT"},
		{SourceName: "cache-01", Severity: "INFO"},
		{LocationCountry: "USA"},
		{LocationCountry: "USA", LocationCity: "New York", EventType: "PERFORMANCE"},
	}
	for _, f := range filters {
		got, err := repo.Query(ctx(t), start, end, f)
		if err != nil {
			t.Fatalf("Query %+v: %v", f, err)
		}
		for i, e := range got {
			if !f.Matches(e) {
				t.Fatalf("filter %+v returned non-matching %+v", f, e)
			}
			if i > 0 && e.Timestamp.Before(got[i-1].Timestamp) {
				t.Fatalf("results not in timestamp order")
			}
		}
	}
}

func TestEventSQLite_UpdateSeverity(t *testing.T) {
	repo := newSQLiteRepo(t)
	ts := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	e := sampleEvent(ts)
	if err := repo.Write(ctx(t), e); err != nil {
		t.Fatalf("Write: %v", err)
	}

	err := repo.UpdateSeverity(ctx(t), models.SeverityUpdate{
		Timestamp: ts, OldSeverity: "WARNING", NewSeverity: "CRITICAL", EventType: "SYSTEM", SourceName: "server-01",
	})
	if err != nil {
		t.Fatalf("UpdateSeverity: %v", err)
	}

	got, err := repo.Query(ctx(t), ts, ts, models.EventFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].Severity != "CRITICAL" || got[0].Message != e.Message || got[0].SourceIP != e.Source.IPAddress {
		t.Fatalf("unexpected state after update: %+v", got)
	}
	old, _ := repo.Query(ctx(t), ts, ts, models.EventFilter{Severity: "WARNING"})
	if len(old) != 0 {
		t.Fatalf("old severity still present: %+v", old)
	}

	err = repo.UpdateSeverity(ctx(t), models.SeverityUpdate{
		Timestamp: ts, OldSeverity: "WARNING", NewSeverity: "INFO", EventType: "SYSTEM", SourceName: "server-01",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	all, _ := repo.Query(ctx(t), ts.Add(-time.Hour), ts.Add(time.Hour), models.EventFilter{})
	if len(all) != 1 {
		t.Fatalf("not-found update must not create records, have %d", len(all))
	}
}

func TestEventSQLite_UpdateSeverity_DropsEveryMatchInWindow(t *testing.T) {
	repo := newSQLiteRepo(t)
	ts := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	first, dup := sampleEvent(ts), sampleEvent(ts.Add(300*time.Millisecond))
	dup.Message = "Disk usage at 95%"
	outside := sampleEvent(ts.Add(time.Second))
	other := sampleEvent(ts.Add(100 * time.Millisecond))
	other.Source.Name = "server-02"
	if err := repo.WriteBatch(ctx(t), []models.Event{first, dup, outside, other}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	err := repo.UpdateSeverity(ctx(t), models.SeverityUpdate{
		Timestamp: ts, OldSeverity: "WARNING", NewSeverity: "CRITICAL", EventType: "SYSTEM", SourceName: "server-01",
	})
	if err != nil {
		t.Fatalf("UpdateSeverity: %v", err)
	}

	window := ts.Add(time.Second - time.Nanosecond)
	old, err := repo.Query(ctx(t), ts, window, models.EventFilter{Severity: "WARNING", SourceName: "server-01"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("old severity still present in window: %+v", old)
	}
	updated, _ := repo.Query(ctx(t), ts, window, models.EventFilter{Severity: "CRITICAL"})
	if len(updated) != 1 || !updated[0].Timestamp.Equal(ts) || updated[0].Message != first.Message {
		t.Fatalf("want one rewritten row at ts, got %+v", updated)
	}
	kept, _ := repo.Query(ctx(t), ts.Add(-time.Hour), ts.Add(time.Hour), models.EventFilter{Severity: "WARNING"})
	if len(kept) != 2 {
		t.Fatalf("rows outside the window or for other sources must stay, have %+v", kept)
	}
}

func TestEventSQLite_DeleteRange(t *testing.T) {
	repo := newSQLiteRepo(t)
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := repo.Write(ctx(t), sampleEvent(base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if err := repo.Delete(ctx(t), base.Add(2*time.Hour), base.Add(5*time.Hour)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	left, err := repo.Query(ctx(t), base, base.Add(24*time.Hour), models.EventFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(left) != 6 {
		t.Fatalf("want 6 events left, got %d", len(left))
	}
	for _, e := range left {
		h := e.Timestamp.Sub(base)
		if h >= 2*time.Hour && h <= 5*time.Hour {
			t.Fatalf("event at %s should have been deleted", e.Timestamp)
		}
	}
}

func TestEventSQLite_FiftyEventsScenario(t *testing.T) {
	repo := newSQLiteRepo(t)
	gen := synth.New(50)
	end := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	start := end.Add(-72 * time.Hour)

	if err := repo.WriteBatch(ctx(t), gen.Batch(50, start, end, 0)); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	got, err := repo.Query(ctx(t), start, end, models.EventFilter{})
	if err != nil || len(got) != 50 {
		t.Fatalf("want 50 events, got %d (%v)", len(got), err)
	}

	wideStart := end.AddDate(0, 0, -1080)
	wideEnd := end.AddDate(0, 0, 1)
	if err := repo.Delete(ctx(t), wideStart, wideEnd); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = repo.Query(ctx(t), start, end, models.EventFilter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("want 0 events after clear, got %d (%v)", len(got), err)
	}
}
