// Package notify is the user-facing notification channel. The session store
// and the request gateway report outcomes here; what "showing" means is up to
// the wiring (log output for the CLI, a toast bus for an embedding UI).
package notify

import "github.com/rs/zerolog"

// Notifier receives user-visible notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications through a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message string) {
	n.logger.Info().Msg(message)
}

func (n *LogNotifier) Error(message string) {
	n.logger.Error().Msg(message)
}

// Nop discards all notifications.
type Nop struct{}

var _ Notifier = Nop{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
