package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EntityExpense = "expense"
	EntityBudget  = "budget"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeEvent announces a committed mutation. It carries identifiers and the
// fields a listener needs to route the change, not the full record.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Month     string    `json:"month,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent stamps the event with the current time
func NewChangeEvent(entity, action string, id int64) *ChangeEvent {
	return &ChangeEvent{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<entity>.<action>", e.g. "budget.updated".
func (e *ChangeEvent) RoutingKey() string {
	return e.Entity + "." + e.Action
}

func (e *ChangeEvent) Validate() error {
	switch e.Entity {
	case EntityExpense, EntityBudget:
	default:
		return fmt.Errorf("unknown entity %q", e.Entity)
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if e.ID <= 0 {
		return fmt.Errorf("invalid id %d", e.ID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and validates a message body
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
