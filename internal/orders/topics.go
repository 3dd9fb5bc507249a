package orders

const (
	TopicFulfillmentCompleted = "order.fulfillment.completed"
	TopicStockInsufficient    = "order.stock.insufficient"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
