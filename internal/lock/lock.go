// Package lock serializes read-modify-write sequences on a logical event key.
package lock

import (
	"context"
	"time"
)

// Locker grants exclusive access to key until the returned unlock is called.
// Lock blocks until the key is free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SeverityKeys returns the lock keys of an update-severity sequence on the
// window [ts, ts+1s). Keys name whole-second buckets, so the window touches
// the bucket of ts and the next one. Two windows overlap only when their
// starts are less than a second apart, and then they share a bucket. Callers
// take the keys in the returned order. The severity is left out so updates
// racing on the same event contend as well.
func SeverityKeys(ts time.Time, eventType, sourceName string) []string {
	bucket := ts.UTC().Truncate(time.Second)
	return []string{
		severityKey(bucket, eventType, sourceName),
		severityKey(bucket.Add(time.Second), eventType, sourceName),
	}
}

func severityKey(bucket time.Time, eventType, sourceName string) string {
	return "severity:" + bucket.Format(time.RFC3339) + "|" + eventType + "|" + sourceName
}

// LockAll takes keys in order and returns one unlock that releases them in
// reverse. On failure the keys already held are released.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	held := make([]func(), 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range keys {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}
