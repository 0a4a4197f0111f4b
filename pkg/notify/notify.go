package notify

import "context"

// Notification is one message handed to a delivery backend.
type Notification struct {
	Title    string
	Body     string
	Category string   // calendar, goal, pattern, learning, manual
	Priority string   // high, medium, low
	Actions  []string // action button labels, first is the primary action
}

// ResponseFunc receives user interactions routed back from a delivery
// backend. notificationID is the id Send returned; action is the raw
// interaction ("clicked", "dismissed", "action_view", ...).
type ResponseFunc func(notificationID, action string)

// Sender delivers notifications to the user. Send returns the delivery
// id used to correlate later responses.
type Sender interface {
	Send(ctx context.Context, n Notification) (string, error)
}

// ResponseRouter is implemented by senders whose backend can report
// user interactions back into the process.
type ResponseRouter interface {
	OnResponse(fn ResponseFunc)
}
