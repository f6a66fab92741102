// Package events publishes domain events about users and expenses.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event types.
const (
	UserRegistered       = "user.registered"
	AccountDeleted       = "account.deleted"
	ExpenseCreated       = "expense.created"
	ExpenseUpdated       = "expense.updated"
	ExpenseDeleted       = "expense.deleted"
	ExpensesRangeDeleted = "expenses.range_deleted"
)

// Event is a lightweight notification. Consumers fetch details from the store.
type Event struct {
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	ExpenseID int64     `json:"expense_id,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New returns an event of the given type stamped with the current time.
func New(eventType string, userID int64) Event {
	return Event{Type: eventType, UserID: userID, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event from JSON bytes.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish drops e.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Publish appends e to Events.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Types returns the types of the recorded events in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.Events))
	for i, e := range r.Events {
		types[i] = e.Type
	}
	return types
}
