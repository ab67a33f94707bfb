// Package projector consumes OrderPlaced events and keeps a per-table
// "latest order" view in redis for the kitchen/expo display. It is a
// pure downstream reader of the order log's event stream.
package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/cafepos/terminal/internal/kafka"
	"github.com/cafepos/terminal/internal/order"
	"github.com/cafepos/terminal/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderPlaced is the consumer handler. Redelivered events are
// dropped via a redis dedup key on the event id.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env order.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != order.EventOrderPlaced {
		return nil // ignore
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[order.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(redisx.KeyTableLatest, p.Table)
	return s.Redis.Set(ctx, key, kafkax.MustMarshal(p), redisx.TTLTableLatest).Err()
}
