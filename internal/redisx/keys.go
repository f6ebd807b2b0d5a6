package redisx

import "time"

const (
	// Finalized session marker: finalized:session:{stripe_session_id} -> order status
	KeyFinalizedSession = "finalized:session:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLFinalized = 48 * time.Hour
	TTLDedup     = 48 * time.Hour
)
