package deepwatch

import (
	"log/slog"

	"github.com/brunoga/deepwatch/snapshot"
)

// Option configures a Collection.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	cloner       snapshot.Cloner
	name         string
	onObserved   func()
	onUnobserved func()
}

// WithLogger sets the logger for lifecycle events. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCloner sets how snapshots are taken. The default is snapshot.Copy.
func WithCloner(c snapshot.Cloner) Option {
	return func(o *options) {
		o.cloner = c
	}
}

// WithName names the collection in logs, metrics and reaction names.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithObservedHooks registers functions called when the collection gains its
// first reactive reader and when it loses its last one.
func WithObservedHooks(onObserved, onUnobserved func()) Option {
	return func(o *options) {
		o.onObserved = onObserved
		o.onUnobserved = onUnobserved
	}
}
