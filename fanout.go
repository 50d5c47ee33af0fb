package deepwatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/brunoga/deepwatch/patch"
	"github.com/brunoga/deepwatch/reactive"
	"github.com/brunoga/deepwatch/snapshot"
	"github.com/brunoga/deepwatch/stream"
)

// fanout is the shared patch pipeline of a collection. It exists while the
// collection has subscribers (Active) and for one more tick after the last
// one leaves (Draining). A subscriber arriving while Draining cancels the
// scheduled teardown.
type fanout[T any] struct {
	c        *Collection[T]
	multi    *stream.Multi[patch.Patch[[]T]]
	prev     []T
	reaction *reactive.Reaction
	teardown *reactive.Task
}

func newFanout[T any](c *Collection[T]) (*fanout[T], error) {
	var prev []T
	var err error
	c.rt.Untracked(func() {
		prev, err = snapshot.Take(c.items, c.cloner)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("init patch stream")
	return &fanout[T]{
		c:     c,
		multi: stream.NewMulti[patch.Patch[[]T]](),
		prev:  prev,
	}, nil
}

func (f *fanout[T]) start() {
	f.reaction = f.c.rt.Autorun(f.c.name+"/fanout", f.run)
}

// run is the fanout reaction. It depends on the subscriber count and, while
// there are subscribers, on the collection itself.
func (f *fanout[T]) run(*reactive.Reaction) error {
	if f.c.registry.Count() == 0 {
		f.drain()
		return nil
	}

	f.cancelDrain()
	return f.flush()
}

// flush diffs the live items against the previous snapshot and writes a
// non-empty patch to every subscriber.
func (f *fanout[T]) flush() (err error) {
	ctx, span := startFlushSpan(context.Background(), f.c.name)
	defer span.End()

	start := time.Now()
	ops := 0
	defer func() {
		recordFlush(ctx, f.c.name, time.Since(start), ops, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	items := f.c.Items()

	cur, err := snapshot.Take(items, f.c.cloner)
	if err != nil {
		return fmt.Errorf("flush %s: %w", f.c.name, err)
	}

	p, err := patch.Diff(f.prev, cur)
	if err != nil {
		return fmt.Errorf("flush %s: %w", f.c.name, err)
	}
	if len(p) == 0 {
		return nil
	}
	ops = len(p)

	f.c.logger.Debug("emit patch", "operations", len(p), "subscribers", f.multi.Len())
	if werr := f.multi.Write(p); werr != nil {
		n := 1
		if joined, ok := werr.(interface{ Unwrap() []error }); ok {
			n = len(joined.Unwrap())
		}
		recordDeliveryErrors(ctx, f.c.name, n)
		f.c.logger.Warn("patch delivery failed", "error", werr)
	}
	f.prev = cur
	return nil
}

// flushUntracked flushes outside of any dependency tracking.
func (f *fanout[T]) flushUntracked() error {
	var err error
	f.c.rt.Untracked(func() {
		err = f.flush()
	})
	return err
}

func (f *fanout[T]) drain() {
	if f.teardown != nil {
		return
	}
	f.c.logger.Debug("drain patch stream")
	f.teardown = f.c.rt.NextTick(f.release)
}

func (f *fanout[T]) cancelDrain() {
	if f.teardown == nil {
		return
	}
	f.teardown.Cancel()
	f.teardown = nil
	f.c.logger.Debug("drain cancelled")
}

// release tears the fanout down unless a subscriber arrived since the drain
// was scheduled.
func (f *fanout[T]) release() {
	f.teardown = nil
	if f.c.registry.Count() > 0 {
		return
	}

	f.c.logger.Debug("release patch stream")
	f.reaction.Dispose()
	f.multi.Destroy()
	f.prev = nil
	if f.c.fanout == f {
		f.c.fanout = nil
	}
}
