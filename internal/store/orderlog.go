package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/cafepos/terminal/internal/kafka"
	"github.com/cafepos/terminal/internal/order"
	"github.com/cafepos/terminal/internal/redisx"
)

// OrderLogPG is the append-only order log. The commit timestamp comes
// from the database clock (`now()` default), never from the caller, so
// every terminal agrees on ordering. Implements order.Log.
type OrderLogPG struct {
	DB    *pgxpool.Pool
	Redis *redis.Client

	// Producer, when set, emits an OrderPlaced envelope per append for
	// downstream projections. Service names this producer in the envelope.
	Producer *kafkax.Producer
	Service  string
}

// Append writes the order and its items in one transaction. On error
// nothing is persisted and nothing is notified.
func (l *OrderLogPG) Append(ctx context.Context, p order.Payload) (string, time.Time, error) {
	id := uuid.NewString()

	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var commitTime time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, table_no, total_cents, status)
		VALUES ($1, $2, $3, $4)
		RETURNING commit_time
	`, id, p.Table, p.TotalCents, p.Status).Scan(&commitTime)
	if err != nil {
		return "", time.Time{}, err
	}

	for i, it := range p.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, name, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			id, i, it.Name, it.Quantity, it.PriceCents,
		)
		if err != nil {
			return "", time.Time{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", time.Time{}, err
	}

	// post-commit fanout is best effort; the durable write already landed
	_ = l.Redis.Publish(ctx, redisx.ChannelOrdersChanged, id).Err()
	l.publishPlaced(id, p, commitTime)

	return id, commitTime, nil
}

func (l *OrderLogPG) publishPlaced(id string, p order.Payload, commitTime time.Time) {
	if l.Producer == nil {
		return
	}
	ev := order.Envelope{
		EventID:       uuid.NewString(),
		EventType:     order.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      l.Service,
		CorrelationID: id,
		Payload: kafkax.MustMarshal(order.OrderPlacedPayload{
			OrderID:    id,
			Table:      p.Table,
			TotalCents: p.TotalCents,
			Items:      p.Items,
			CommitTime: commitTime,
		}),
	}
	l.Producer.Publish(order.PartitionKey(id), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(order.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// Snapshot reads every committed order, newest first.
func (l *OrderLogPG) Snapshot(ctx context.Context) ([]order.Order, error) {
	rows, err := l.DB.Query(ctx, `
		SELECT id, commit_time, table_no, total_cents, status
		FROM orders
		ORDER BY commit_time DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	index := map[string]int{}
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.CommitTime, &o.Table, &o.TotalCents, &o.Status); err != nil {
			return nil, err
		}
		index[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	itemRows, err := l.DB.Query(ctx, `
		SELECT order_id, name, quantity, price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var it order.LineItem
		if err := itemRows.Scan(&orderID, &it.Name, &it.Quantity, &it.PriceCents); err != nil {
			return nil, err
		}
		i := index[orderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, itemRows.Err()
}

// Subscribe mirrors CatalogPG.Subscribe: initial set, then the full set
// again after every change notification.
func (l *OrderLogPG) Subscribe(ctx context.Context, onSnap func([]order.Order), onErr func(error)) (order.Unsubscribe, error) {
	orders, err := l.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	release, err := listen(ctx, l.Redis, redisx.ChannelOrdersChanged, func(ctx context.Context) error {
		next, err := l.Snapshot(ctx)
		if err != nil {
			return err
		}
		onSnap(next)
		return nil
	}, onErr)
	if err != nil {
		return nil, err
	}

	onSnap(orders)
	return order.Unsubscribe(release), nil
}
