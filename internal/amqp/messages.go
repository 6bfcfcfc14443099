package amqp

import (
	"encoding/json"

	"budgetlog/internal/core"
)

// NotificationMessage is the body published for every tracker notification.
type NotificationMessage struct {
	core.Notification
	Source string `json:"source"`
}

func NewNotificationMessage(n core.Notification, source string) *NotificationMessage {
	return &NotificationMessage{Notification: n, Source: source}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON parses a published message
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
