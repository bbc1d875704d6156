package events

import (
	"github.com/sirupsen/logrus" // Structured logging
)

// Sink receives event records published by the coordinator. The economy
// functions identically with no sink attached; publication is one-way and
// a sink must never mutate ledger state.
type Sink interface {
	Publish(topic string, payload any, source string, metadata map[string]string)
}

// LogSink writes every published event as a structured log line.
type LogSink struct {
	Logger *logrus.Logger // Destination logger; logrus.StandardLogger() if nil
}

// Publish logs the event with its topic, source and metadata as fields.
func (s *LogSink) Publish(topic string, payload any, source string, metadata map[string]string) {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fields := logrus.Fields{
		"topic":   topic,   // Event topic
		"source":  source,  // Publishing component
		"payload": payload, // Event body
	}
	for k, v := range metadata {
		fields["meta_"+k] = v
	}
	logger.WithFields(fields).Info("event published")
}

// NopSink discards everything. Useful default when no listener is wired.
type NopSink struct{}

// Publish drops the event.
func (NopSink) Publish(string, any, string, map[string]string) {}
