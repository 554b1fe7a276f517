package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// zerologAdapter routes watermill's internal logging through zerolog.
type zerologAdapter struct {
	log zerolog.Logger
}

// NewLoggerAdapter wraps a zerolog logger as a watermill.LoggerAdapter.
func NewLoggerAdapter(log zerolog.Logger) watermill.LoggerAdapter {
	return &zerologAdapter{log: log}
}

func withFields(ev *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}

func (a *zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.log.Error().Err(err), fields).Msg(msg)
}

func (a *zerologAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.log.Info(), fields).Msg(msg)
}

func (a *zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.log.Debug(), fields).Msg(msg)
}

func (a *zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.log.Trace(), fields).Msg(msg)
}

func (a *zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := a.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &zerologAdapter{log: ctx.Logger()}
}
