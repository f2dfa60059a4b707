package worker

import (
	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/adherence-api/pkg/logger"
)

// cronLogger routes the scheduler's own messages into the service log.
// Per-tick chatter goes to debug.
type cronLogger struct {
	logger *logger.Logger
}

var _ cron.Logger = cronLogger{}

func newCronLogger(l *logger.Logger) cronLogger {
	return cronLogger{logger: l.WithFields(map[string]interface{}{"component": "cron"})}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(err, msg, keysAndValues...)
}
