/* Copyright 2023 The Proofpad Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package queue serializes work sent to the backend prover: one task
// in flight at a time, pending tasks in submission order (or pushed
// on top), each running task raced against a timeout that doubles on
// every retry.
package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Defaults, tuned for a prover whose very first request covers
// process cold-start.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultStartingTimeout = 20 * time.Second
	DefaultTrials          = 3
)

// A Task is one unit of backend work.
type Task struct {
	// Name labels the task in logs and failures.
	Name string

	// Run does the work.  It must honor ctx: the queue cancels the
	// context on timeout and on CancelCurrent.
	Run func(ctx context.Context) error

	// Cancel, if set, is invoked just before each retry so the
	// backend can discard the unfinished partial computation.  It is
	// not invoked on final abandonment.
	Cancel func()

	// Abort, if set, is invoked exactly once when the task is
	// abandoned after its last trial, with the same error the
	// Failure carries.  Submitters waiting on the task use it to
	// unblock.
	Abort func(err error)
}

// A Failure reports a task abandoned after its retry budget.  It is
// the queue's only failure surface.
type Failure struct {
	Task   string
	Trials int
	Err    error
}

// Options configures a Queue.  Zero values take the defaults.
type Options struct {
	// Timeout bounds each attempt after the first task.
	Timeout time.Duration

	// StartingTimeout bounds the first attempt of the first task
	// ever run, covering backend cold-start.
	StartingTimeout time.Duration

	// Trials is the total number of attempts per task.
	Trials int

	Logf func(format string, args ...interface{})
}

// A Queue runs tasks one at a time.  Methods are safe for concurrent
// use.
type Queue struct {
	mu      sync.Mutex
	pending []*Task
	busy    bool
	started bool
	ended   chan struct{}

	// current attempt, for CancelCurrent and ExtendDeadline
	cancelCurrent context.CancelFunc
	deadline      *time.Timer
	attemptBudget time.Duration

	opts     Options
	failures chan Failure
}

// New makes an idle queue.
func New(opts Options) *Queue {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StartingTimeout <= 0 {
		opts.StartingTimeout = DefaultStartingTimeout
	}
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Queue{
		opts:     opts,
		failures: make(chan Failure, 16),
	}
}

// Add appends a task to the queue.  If the queue is idle the task
// starts immediately.
func (q *Queue) Add(t *Task) { q.add(t, false) }

// AddOnTop pushes a task in front of all pending tasks, used for
// user-initiated actions that must preempt stale pending work.
func (q *Queue) AddOnTop(t *Task) { q.add(t, true) }

func (q *Queue) add(t *Task, onTop bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if onTop {
		q.opts.Logf("queue: adding task %q on top", t.Name)
		q.pending = append([]*Task{t}, q.pending...)
	} else {
		q.opts.Logf("queue: adding task %q", t.Name)
		q.pending = append(q.pending, t)
	}
	if !q.busy {
		q.busy = true
		q.ended = make(chan struct{})
		go q.work()
	}
}

// Failures returns the channel of abandoned-task reports.  Each
// abandoned task is reported exactly once.
func (q *Queue) Failures() <-chan Failure { return q.failures }

// Ended returns a channel closed when the current run of the queue
// drains.  For a queue that has never run, the channel is already
// closed.
func (q *Queue) Ended() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ended == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return q.ended
}

// Busy reports whether a task is in flight.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Len returns the number of pending (not yet started) tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// CancelCurrent aborts the running attempt, if any.  The attempt is
// then treated like a timeout: the task is retried while its budget
// lasts.
func (q *Queue) CancelCurrent() {
	q.mu.Lock()
	cancel := q.cancelCurrent
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ExtendDeadline pushes the running attempt's deadline back to a full
// timeout from now.  Called whenever streamed output arrives, so a
// task keeps its time budget while the backend is demonstrably alive.
func (q *Queue) ExtendDeadline() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deadline != nil {
		if !q.deadline.Stop() {
			// Timer already fired; the attempt is ending anyway.
			return
		}
		q.deadline.Reset(q.attemptBudget)
	}
}

func (q *Queue) work() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.busy = false
			close(q.ended)
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.runTask(t)
	}
}

// runTask runs one task with the timeout/retry discipline: the
// timeout doubles after every failed attempt, the task's Cancel runs
// before each retry, and a single Failure is emitted if the budget
// runs out.  A transport error from Run counts like a timeout.
func (q *Queue) runTask(t *Task) {
	q.mu.Lock()
	timeout := q.opts.Timeout
	if !q.started {
		timeout = q.opts.StartingTimeout
		q.started = true
	}
	q.mu.Unlock()

	var lastErr error
	for trial := 1; trial <= q.opts.Trials; trial++ {
		err, ok := q.attempt(t, timeout)
		if ok {
			return
		}
		if err != nil {
			lastErr = err
		}
		q.opts.Logf("queue: no answer from %q within %v (trial %d)",
			t.Name, timeout, trial)
		timeout *= 2

		if trial == q.opts.Trials {
			failure := Failure{
				Task:   t.Name,
				Trials: q.opts.Trials,
				Err:    &TaskTimeout{Task: t.Name, Trials: q.opts.Trials, Cause: lastErr},
			}
			select {
			case q.failures <- failure:
			default:
				q.opts.Logf("queue: dropping failure report for %q", t.Name)
			}
			if t.Abort != nil {
				t.Abort(failure.Err)
			}
			return
		}
		if t.Cancel != nil {
			t.Cancel()
		}
	}
}

// attempt runs Run once against a deadline.  ok reports success.
func (q *Queue) attempt(t *Task, timeout time.Duration) (err error, ok bool) {
	ctx, cancel := context.WithCancel(context.Background())
	deadline := time.NewTimer(timeout)

	q.mu.Lock()
	q.cancelCurrent = cancel
	q.deadline = deadline
	q.attemptBudget = timeout
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.cancelCurrent = nil
		q.deadline = nil
		q.mu.Unlock()
		deadline.Stop()
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- t.Run(ctx) }()

	select {
	case err = <-done:
		return err, err == nil
	case <-deadline.C:
		cancel()
		// Let Run unwind; its result is moot.
		<-done
		return nil, false
	}
}
