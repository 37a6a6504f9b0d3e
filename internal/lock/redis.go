package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const keyPrefix = "influx_events:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Redis is a lock shared by every replica pointing at the same Redis.
type Redis struct {
	client   redis.Cmdable
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
	onError  func(key string, err error)
}

var _ Locker = (*Redis)(nil)

// NewRedis builds a lock on client. ttl bounds how long a crashed holder
// blocks the key; retry is the polling interval while waiting.
func NewRedis(client redis.Cmdable, ttl, retry time.Duration, onError func(key string, err error)) *Redis {
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Redis{
		client:   client,
		ttl:      ttl,
		retry:    retry,
		newToken: func() string { return uuid.NewString() },
		onError:  onError,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := r.newToken()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "acquire lock %q", key)
		}
		if ok {
			break
		}
		t := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Wrapf(ctx.Err(), "wait for lock %q", key)
		case <-t.C:
		}
	}

	return func() {
		// the request context may already be done
		c, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.client.Eval(c, releaseScript, []string{k}, token).Err(); err != nil {
			r.onError(key, errors.Wrapf(err, "release lock %q", key))
		}
	}, nil
}
