package events

import (
	"encoding/json"
	"time"
)

// ExpenseChangedMessage announces that a row in the expenses table
// changed. Consumers make no use of the payload beyond the ID; every
// notification triggers a full re-fetch.
type ExpenseChangedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(id, userID int64) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
