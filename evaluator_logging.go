package storefront

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EvaluatorLogEvent describes one rule evaluation.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Field    string
	Passed   bool
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluation attempts.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// LogrusEvaluatorLogger writes evaluation events at debug level, failures
// with an error at warn.
func LogrusEvaluatorLogger(logger logrus.FieldLogger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		entry := logger.WithFields(logrus.Fields{
			"engine":   event.Engine,
			"field":    event.Field,
			"passed":   event.Passed,
			"duration": event.Duration,
		})
		if event.Err != nil {
			entry.WithError(event.Err).Warnf("rule %q failed to evaluate", event.Expr)
			return
		}
		entry.Debugf("rule %q evaluated", event.Expr)
	})
}
