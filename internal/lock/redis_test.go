package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
)

func newTestRedis(t *testing.T) (*Redis, redismock.ClientMock, *[]error) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	var released []error
	r := NewRedis(client, 5*time.Second, time.Millisecond, func(_ string, err error) {
		released = append(released, err)
	})
	r.newToken = func() string { return "token-1" }
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet redis expectations: %v", err)
		}
	})
	return r, mock, &released
}

func TestRedis_LockAndRelease(t *testing.T) {
	r, mock, errs := newTestRedis(t)

	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{keyPrefix + "k"}, "token-1").SetVal(int64(1))

	unlock, err := r.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	unlock()

	if len(*errs) != 0 {
		t.Fatalf("unexpected release errors: %v", *errs)
	}
}

func TestRedis_RetriesWhileHeld(t *testing.T) {
	r, mock, _ := newTestRedis(t)

	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{keyPrefix + "k"}, "token-1").SetVal(int64(1))

	unlock, err := r.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	unlock()
}

func TestRedis_GivesUpWhenContextDone(t *testing.T) {
	r, mock, _ := newTestRedis(t)
	r.retry = time.Hour

	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(false)

	c, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(c, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestRedis_AcquireError(t *testing.T) {
	r, mock, _ := newTestRedis(t)

	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetErr(errors.New("connection refused"))

	if _, err := r.Lock(context.Background(), "k"); err == nil {
		t.Fatal("want error when redis is down")
	}
}

func TestRedis_ReleaseErrorIsReported(t *testing.T) {
	r, mock, errs := newTestRedis(t)

	mock.ExpectSetNX(keyPrefix+"k", "token-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{keyPrefix + "k"}, "token-1").SetErr(errors.New("timeout"))

	unlock, err := r.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	unlock()

	if len(*errs) != 1 {
		t.Fatalf("want one release error, got %v", *errs)
	}
}
