package orders

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderRejected      = "order.rejected"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
