package redisx

import "time"

const (
	// Pub/sub channels for snapshot-change notifications. The message
	// body is informational only; subscribers re-read the full snapshot.
	ChannelCatalogChanged = "pos.catalog.changed"
	ChannelOrdersChanged  = "pos.orders.changed"

	// Latest order per table for the expo display: pos:table:{n}:latest -> order json
	KeyTableLatest = "pos:table:%d:latest"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLTableLatest = 12 * time.Hour
	TTLDedup       = 48 * time.Hour
)
