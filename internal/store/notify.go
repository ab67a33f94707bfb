// Package store backs the catalog and the order log with Postgres and
// pushes change notifications over redis pub/sub. Subscribers never get
// deltas: a notification only means "re-read the full snapshot", which
// keeps every delivered view self-consistent.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// listen subscribes to one pub/sub channel and calls reload once per
// notification. A reload failure is reported through onErr and the last
// delivered snapshot stays in place; there is no retry here. The
// returned release func is idempotent.
func listen(ctx context.Context, rdb *redis.Client, channel string, reload func(context.Context) error, onErr func(error)) (func(), error) {
	ps := rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	var released atomic.Bool
	go func() {
		for range ps.Channel() {
			if err := reload(ctx); err != nil {
				onErr(err)
			}
		}
		// channel closed underneath us, not by the caller
		if !released.Load() && ctx.Err() == nil {
			onErr(errors.New("pubsub feed closed"))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			released.Store(true)
			_ = ps.Close()
		})
	}, nil
}
