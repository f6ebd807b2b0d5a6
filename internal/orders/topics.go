package orders

const (
	TopicOrderFinalized     = "order.finalized"
	TopicFinalizationFailed = "order.finalize.failed"
)

// Partition key = stripe_session_id, supaya semua event 1 session maintain urutan.
func PartitionKey(sessionID string) []byte { return []byte(sessionID) }
