package client

import "github.com/rs/zerolog/log"

// Level grades a notification for display purposes.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives user-facing messages about façade operations. The
// embedding application decides how to surface them.
type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to the process log. It is the default
// when no Notifier is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		log.Error().Msg(message)
	case LevelWarning:
		log.Warn().Msg(message)
	default:
		log.Info().Msg(message)
	}
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}
