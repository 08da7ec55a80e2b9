package outbox

// Row statuses for the notification log. Rows are written inside the same
// write boundary as the listing state change; the worker relay publishes
// pending rows to the message bus.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// Message is an outbox row persisted alongside listing mutations.
type Message struct {
	ID           string
	EventType    string
	PartitionKey string
	Payload      []byte
	Status       string
}
