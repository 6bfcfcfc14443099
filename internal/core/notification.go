package core

import "time"

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is the short, non-blocking message shown after a command.
type Notification struct {
	Event         string    `json:"event"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Message       string    `json:"message"`
	Level         Level     `json:"level"`
	Timestamp     time.Time `json:"timestamp"`
}
