package services

import (
	"context"
	"log/slog"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
)

// LogNotifier writes notices to the log. It is used when no broker is set up.
type LogNotifier struct {
	logger *applog.Logger
}

func NewLogNotifier(logger *applog.Logger) *LogNotifier {
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentTracker)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note core.Notification) error {
	level := slog.LevelInfo
	if note.Level == core.LevelWarning || note.Level == core.LevelError {
		level = slog.LevelWarn
	}
	n.logger.LogContext(ctx, level, note.Message,
		"event", note.Event,
		applog.FieldTransactionID, note.TransactionID)
	return nil
}

// MultiNotifier fans a notice out to several notifiers and returns the first
// error after trying all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, note core.Notification) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil && first == nil {
			first = err
		}
	}
	return first
}
