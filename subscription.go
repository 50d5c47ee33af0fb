package deepwatch

import (
	"context"
	"fmt"

	"github.com/brunoga/deepwatch/patch"
	"github.com/brunoga/deepwatch/reactive"
	"github.com/brunoga/deepwatch/snapshot"
	"github.com/brunoga/deepwatch/stream"
)

// ObserverFunc is called with the live items every time the collection
// changes. sub is the subscription the function belongs to; disposing it
// from inside the function stops further calls.
type ObserverFunc[T any] func(items []T, sub *Subscription[T])

// Subscription is a patch stream subscriber, optionally paired with an
// ObserverFunc.
type Subscription[T any] struct {
	c        *Collection[T]
	pipe     *stream.Pipe[patch.Patch[[]T]]
	baseline []T
	handle   handle
	reaction *reactive.Reaction
	disposed bool
}

// Observe subscribes to the collection's patches. When fn is not nil it is
// also run now and on every change of the collection.
//
// The first patch received applies to Baseline; each following patch applies
// to the result of the previous one. Observe fails when the items cannot be
// snapshotted.
func (c *Collection[T]) Observe(fn ObserverFunc[T]) (*Subscription[T], error) {
	f, fresh, err := c.ensureFanout()
	if err != nil {
		return nil, err
	}

	var baseline []T
	c.rt.Untracked(func() {
		baseline, err = snapshot.Take(f.prev, c.cloner)
	})
	if err != nil {
		if fresh {
			c.fanout = nil
		}
		return nil, fmt.Errorf("observe %s: %w", c.name, err)
	}

	sub := &Subscription[T]{
		c:        c,
		pipe:     stream.NewPipe[patch.Patch[[]T]](),
		baseline: baseline,
	}

	if err := f.multi.Add(sub.pipe); err != nil {
		return nil, fmt.Errorf("observe %s: %w", c.name, err)
	}
	recordSubscribers(context.Background(), c.name, 1)

	c.rt.Batch(func() {
		sub.handle = c.registry.addDiff()
		if fresh {
			f.start()
		}

		if fn != nil {
			rx := c.rt.Autorun(c.name+"/observer", func(r *reactive.Reaction) error {
				sub.reaction = r
				fn(c.Items(), sub)
				return nil
			})
			sub.reaction = rx
			h := c.registry.addReactive(rx)
			rx.OnDispose(func() {
				c.registry.removeReactive(h)
			})
		}
	})

	sub.pipe.OnEnd(sub.onEnd)
	c.logger.Debug("init stream", "subscribers", c.SubscriberCount())
	return sub, nil
}

// Patches returns the subscriber's patch stream. Ending it detaches the
// subscriber on the next tick. The stream may be consumed and ended from
// another goroutine.
//
// Every subscriber receives the same patch values. Patches are read-only:
// consumers must not modify an operation or its value. Apply copies the
// values it inserts, so applying a patch is safe.
func (s *Subscription[T]) Patches() stream.Reader[patch.Patch[[]T]] {
	return s.pipe
}

// Baseline returns a copy of the items the first patch applies to.
func (s *Subscription[T]) Baseline() []T {
	return s.baseline
}

// Disposed reports whether the subscription was disposed or its stream
// ended and was detached.
func (s *Subscription[T]) Disposed() bool {
	return s.disposed
}

// Dispose flushes pending changes one last time, detaches the subscriber and
// ends its patch stream. Calling it again has no effect.
func (s *Subscription[T]) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	c := s.c

	c.rt.Batch(func() {
		if f := c.fanout; f != nil {
			if err := f.flushUntracked(); err != nil {
				c.logger.Error("final flush failed", "error", err)
			}
			f.multi.Remove(s.pipe)
		}
		c.registry.removeDiff(s.handle)
		if s.reaction != nil {
			s.reaction.Dispose()
		}
	})

	s.pipe.End()
	recordSubscribers(context.Background(), c.name, -1)
	c.logger.Debug("dispose stream", "subscribers", c.SubscriberCount())
}

// onEnd runs on the goroutine that ended the patch stream. It only queues
// the detach; everything else happens on the goroutine driving the runtime.
func (s *Subscription[T]) onEnd(err error) {
	s.c.rt.NextTick(func() {
		s.endOfStream(err)
	})
}

func (s *Subscription[T]) endOfStream(err error) {
	if s.disposed {
		return
	}
	if err != nil {
		s.c.logger.Warn("stream closed prematurely", "error", err)
	}
	s.detach()
}

// detach removes a subscriber whose stream ended.
func (s *Subscription[T]) detach() {
	if s.disposed {
		return
	}
	s.disposed = true
	c := s.c

	c.rt.Batch(func() {
		if f := c.fanout; f != nil {
			f.multi.Remove(s.pipe)
		}
		c.registry.removeDiff(s.handle)
		if s.reaction != nil {
			s.reaction.Dispose()
		}
	})

	recordSubscribers(context.Background(), c.name, -1)
	c.logger.Debug("dispose stream (end of stream)", "subscribers", c.SubscriberCount())
}
