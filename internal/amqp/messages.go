package amqp

import (
	"encoding/json"
	"time"

	"expenses/internal/core"
)

const EventExpenseCreated = "expense.created"

// ExpenseCreatedMessage announces a persisted expense. It carries the full
// record so consumers never need to read the store back.
type ExpenseCreatedMessage struct {
	Event     string       `json:"event"`
	Expense   core.Expense `json:"expense"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		Event:     EventExpenseCreated,
		Expense:   e,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
