package session

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithInitTimeout bounds the startup credential validation fetch.
// Defaults to 10 seconds to keep startup responsive.
func WithInitTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.initTimeout = d
	}
}

// WithAuthTimeout bounds login and register round trips.
// Defaults to 15 seconds.
func WithAuthTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.authTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}
