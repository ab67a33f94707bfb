package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/redisx"
)

// CatalogPG is the durable catalog: product rows in Postgres, change
// pushes over redis. Implements catalog.Store.
type CatalogPG struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (s *CatalogPG) Snapshot(ctx context.Context) (catalog.Snapshot, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, price_cents FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := catalog.Snapshot{}
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents); err != nil {
			return nil, err
		}
		snap[p.ID] = p
	}
	return snap, rows.Err()
}

// Subscribe delivers the current snapshot, then re-reads and delivers
// the full set after every change notification.
func (s *CatalogPG) Subscribe(ctx context.Context, onSnap func(catalog.Snapshot), onErr func(error)) (catalog.Unsubscribe, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	release, err := listen(ctx, s.Redis, redisx.ChannelCatalogChanged, func(ctx context.Context) error {
		next, err := s.Snapshot(ctx)
		if err != nil {
			return err
		}
		onSnap(next)
		return nil
	}, onErr)
	if err != nil {
		return nil, err
	}

	onSnap(snap)
	return catalog.Unsubscribe(release), nil
}

// SaveProduct upserts one product and notifies subscribers. This is the
// admin write path; the terminal itself never mutates the catalog.
func (s *CatalogPG) SaveProduct(ctx context.Context, p catalog.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, name, price_cents) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price_cents = EXCLUDED.price_cents
	`, p.ID, p.Name, p.PriceCents)
	if err != nil {
		return err
	}
	return s.notify(ctx)
}

func (s *CatalogPG) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return s.notify(ctx)
}

func (s *CatalogPG) notify(ctx context.Context) error {
	return s.Redis.Publish(ctx, redisx.ChannelCatalogChanged, "1").Err()
}
