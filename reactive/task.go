package reactive

// Task is a function queued to run on the next tick of a Runtime.
type Task struct {
	rt        *Runtime
	fn        func()
	cancelled bool
	done      bool
}

// NextTick queues fn to run on the next call to Tick. It is safe to call from
// any goroutine; fn always runs on the goroutine that calls Tick.
func (rt *Runtime) NextTick(fn func()) *Task {
	t := &Task{rt: rt, fn: fn}

	rt.mu.Lock()
	rt.tasks = append(rt.tasks, t)
	rt.mu.Unlock()
	return t
}

// Cancel prevents the task from running. It returns false if the task
// already ran or was cancelled before.
func (t *Task) Cancel() bool {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()

	if t.done || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// Done reports whether the task ran.
func (t *Task) Done() bool {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()
	return t.done
}

// Cancelled reports whether the task was cancelled.
func (t *Task) Cancelled() bool {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()
	return t.cancelled
}

// claim marks t as started unless it was cancelled.
func (t *Task) claim() bool {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()

	if t.cancelled {
		return false
	}
	t.done = true
	return true
}

// Tick runs the tasks that were queued before the call, in order. Tasks
// queued while it runs wait for the next tick. It returns the number of tasks
// that ran.
func (rt *Runtime) Tick() int {
	rt.mu.Lock()
	queue := rt.tasks
	rt.tasks = nil
	rt.mu.Unlock()

	n := 0
	for _, t := range queue {
		if !t.claim() {
			continue
		}
		t.fn()
		n++
	}
	return n
}

// RunUntilIdle calls Tick until no tasks are queued and returns the total
// number of tasks that ran.
func (rt *Runtime) RunUntilIdle() int {
	total := 0
	for rt.Pending() > 0 {
		total += rt.Tick()
	}
	return total
}

// Pending returns the number of queued tasks that were not cancelled.
func (rt *Runtime) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := 0
	for _, t := range rt.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}
