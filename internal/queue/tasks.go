// Package queue carries notification work from the API to the worker over
// asynq. Domain events are turned into tasks by EventNotifier and consumed by
// the handlers registered in NewMux.
package queue

import "github.com/noah-isme/backend-apotek/internal/events"

// Task types.
const (
	TypeStockLow             = "notify:stock_low"
	TypeBillCreated          = "notify:bill_created"
	TypePrescriptionDispense = "notify:prescription_dispensed"
)

// DefaultQueue is the asynq queue notification tasks go to.
const DefaultQueue = "notifications"

// topicTypes maps domain event topics onto task types. Other topics are not queued.
var topicTypes = map[string]string{
	events.TopicStockLow:              TypeStockLow,
	events.TopicBillCreated:           TypeBillCreated,
	events.TopicPrescriptionDispensed: TypePrescriptionDispense,
}

// TaskTypeFor returns the task type for an event topic.
func TaskTypeFor(topic string) (string, bool) {
	t, ok := topicTypes[topic]
	return t, ok
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == ':' {
			continue
		}
		return ""
	}
	return kind
}
