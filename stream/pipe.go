// Package stream provides object channels: a Pipe buffers written values
// until a consumer attaches and a Multi writes every value to a dynamic set
// of writers.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrClosed is returned when writing to a pipe that has ended.
	ErrClosed = errors.New("stream closed")

	// ErrDestroyed is returned when writing to or adding to a destroyed Multi.
	ErrDestroyed = errors.New("stream destroyed")

	// ErrPanicked wraps a panic raised by a writer during Multi.Write.
	ErrPanicked = errors.New("writer panicked")
)

// Writer accepts values.
type Writer[T any] interface {
	Write(v T) error
}

// Reader is the consuming end of a Pipe.
type Reader[T any] interface {
	// OnData delivers the buffered values to fn and then every later write,
	// synchronously and in order.
	OnData(fn func(T))
	// OnEnd registers fn to run once when the stream ends. The argument is
	// the error passed to CloseWithError, or nil for End.
	OnEnd(fn func(error))
	// Read returns the next buffered value without blocking.
	Read() (T, bool)
	// Recv blocks until a value is available, the stream ends (io.EOF or the
	// close error) or ctx is done.
	Recv(ctx context.Context) (T, error)
	// End closes the stream.
	End()
	// CloseWithError closes the stream with err.
	CloseWithError(err error)
	// Ended reports whether the stream was closed.
	Ended() bool
	// Err returns the close error.
	Err() error
}

// Pipe is an unbounded object channel. It is safe for concurrent use.
type Pipe[T any] struct {
	mu     sync.Mutex
	buf    []T
	notify chan struct{}
	onData []func(T)
	onEnd  []func(error)
	ended  bool
	err    error
}

// NewPipe creates an open Pipe.
func NewPipe[T any]() *Pipe[T] {
	return &Pipe[T]{notify: make(chan struct{})}
}

// Write appends v to the stream. It returns ErrClosed after End.
func (p *Pipe[T]) Write(v T) error {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return ErrClosed
	}
	if len(p.onData) == 0 {
		p.buf = append(p.buf, v)
		p.wake()
		p.mu.Unlock()
		return nil
	}
	handlers := p.onData
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
	return nil
}

// wake releases blocked Recv calls. Called with p.mu held.
func (p *Pipe[T]) wake() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// OnData implements Reader.
func (p *Pipe[T]) OnData(fn func(T)) {
	p.mu.Lock()
	buffered := p.buf
	p.buf = nil
	p.onData = append(p.onData[:len(p.onData):len(p.onData)], fn)
	p.mu.Unlock()

	for _, v := range buffered {
		fn(v)
	}
}

// OnEnd implements Reader.
func (p *Pipe[T]) OnEnd(fn func(error)) {
	p.mu.Lock()
	if p.ended {
		err := p.err
		p.mu.Unlock()
		fn(err)
		return
	}
	p.onEnd = append(p.onEnd, fn)
	p.mu.Unlock()
}

// Read implements Reader.
func (p *Pipe[T]) Read() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if len(p.buf) == 0 {
		return zero, false
	}
	v := p.buf[0]
	p.buf[0] = zero
	p.buf = p.buf[1:]
	return v, true
}

// Recv implements Reader. Buffered values are returned before the end of
// stream is reported.
func (p *Pipe[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		if v, ok := p.Read(); ok {
			return v, nil
		}

		p.mu.Lock()
		if p.ended && len(p.buf) == 0 {
			err := p.err
			p.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return zero, err
		}
		notify := p.notify
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-notify:
		}
	}
}

// Len returns the number of buffered values.
func (p *Pipe[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// End implements Reader.
func (p *Pipe[T]) End() {
	p.CloseWithError(nil)
}

// CloseWithError implements Reader. Only the first call has an effect.
func (p *Pipe[T]) CloseWithError(err error) {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.err = err
	p.wake()
	handlers := p.onEnd
	p.onEnd = nil
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(err)
	}
}

// Ended implements Reader.
func (p *Pipe[T]) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// Err implements Reader.
func (p *Pipe[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
