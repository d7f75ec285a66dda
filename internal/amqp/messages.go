package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"wealthwise/internal/core"
)

// GoalEventMessage carries a goal collection change. Goals is the whole
// collection after the change, so consumers never need to read the store.
type GoalEventMessage struct {
	Op        string      `json:"op"`
	GoalID    string      `json:"goalId,omitempty"`
	Goals     []core.Goal `json:"goals"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewGoalEventMessage creates a message stamped with at.
func NewGoalEventMessage(op, goalID string, goals []core.Goal, at time.Time) *GoalEventMessage {
	if goals == nil {
		goals = []core.Goal{}
	}
	return &GoalEventMessage{
		Op:        op,
		GoalID:    goalID,
		Goals:     goals,
		Timestamp: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *GoalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalEventMessageFromJSON decodes and checks a message body.
func GoalEventMessageFromJSON(data []byte) (*GoalEventMessage, error) {
	var msg GoalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" {
		return nil, fmt.Errorf("goal event without op")
	}
	if msg.Timestamp.IsZero() {
		return nil, fmt.Errorf("goal event without timestamp")
	}
	if msg.Goals == nil {
		msg.Goals = []core.Goal{}
	}
	return &msg, nil
}
