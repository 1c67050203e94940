package orders

// One topic for the whole lifecycle: per-order ordering only holds within a
// partition, so every event of one order must land on the same one.
const TopicOrderLifecycle = "orders.lifecycle"

// Partition key = order id, so all events of one order keep their sequence.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
