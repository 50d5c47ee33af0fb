package reactive

import "log/slog"

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for runtime diagnostics. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithErrorHandler sets the function that receives reaction failures. The
// default logs them at error level.
func WithErrorHandler(fn func(*Reaction, error)) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// WithMaxIterations bounds the number of passes a single flush of stale
// reactions may take before ErrCycle is reported.
func WithMaxIterations(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxIterations = n
		}
	}
}

// AtomOption configures an Atom.
type AtomOption func(*Atom)

// OnBecomeObserved registers fn to run when the atom gains its first
// observing reaction.
func OnBecomeObserved(fn func()) AtomOption {
	return func(a *Atom) {
		a.onObserved = fn
	}
}

// OnBecomeUnobserved registers fn to run when the atom loses its last
// observing reaction.
func OnBecomeUnobserved(fn func()) AtomOption {
	return func(a *Atom) {
		a.onUnobserved = fn
	}
}
