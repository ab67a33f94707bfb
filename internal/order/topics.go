package order

const (
	TopicOrderPlaced = "pos.order.placed"
)

// Partition key = order id, so every event about one order keeps its
// relative order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
