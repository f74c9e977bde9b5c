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

package session

// ToDo: Timers.Suspend, Timers.Resume

import (
	"context"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
)

// A TimerEntry is one pending maintenance timer.  Its schedule is
// either a duration ("30s", recurring) or a cron expression.
type TimerEntry struct {
	Id  string
	Msg string
	Ctl chan bool `json:"-"`

	every time.Duration
	cron  *cronexpr.Expression

	timers *Timers
}

// Next returns the entry's next firing time.
func (te *TimerEntry) Next(now time.Time) time.Time {
	if te.cron != nil {
		return te.cron.Next(now)
	}
	return now.Add(te.every)
}

// Timers owns a session's maintenance timers.
type Timers struct {
	Map     map[string]*TimerEntry
	Emitter func(context.Context, *TimerEntry) `json:"-"`

	sync.Mutex

	logf func(format string, args ...interface{})
}

// NewTimers creates a Timers with the function entries use to emit
// their messages.
func NewTimers(logf func(string, ...interface{}), emitter func(context.Context, *TimerEntry)) *Timers {
	return &Timers{
		Map:     make(map[string]*TimerEntry, 8),
		Emitter: emitter,
		logf:    logf,
	}
}

// Add schedules a recurring timer.  Schedule is a duration string or,
// failing that, a cron expression.  Adding an existing id cancels the
// old timer first.
func (ts *Timers) Add(ctx context.Context, id, schedule, msg string) error {
	ts.logf("Timers.Add %s %q", id, schedule)

	e := &TimerEntry{
		Id:     id,
		Msg:    msg,
		Ctl:    make(chan bool),
		timers: ts,
	}
	if d, err := time.ParseDuration(schedule); err == nil {
		e.every = d
	} else {
		cron, err := cronexpr.Parse(schedule)
		if err != nil {
			return &BadSchedule{Id: id, Schedule: schedule, Err: err}
		}
		e.cron = cron
	}

	ts.Lock()
	if _, have := ts.Map[id]; have {
		ts.cancel(id)
	}
	ts.Map[id] = e
	ts.Unlock()

	go e.run(ctx)
	return nil
}

// Cancel stops and forgets a timer.
func (ts *Timers) Cancel(id string) bool {
	ts.Lock()
	defer ts.Unlock()
	return ts.cancel(id)
}

func (ts *Timers) cancel(id string) bool {
	e, have := ts.Map[id]
	if !have {
		return false
	}
	close(e.Ctl)
	delete(ts.Map, id)
	return true
}

// StopAll cancels every timer.
func (ts *Timers) StopAll() {
	ts.Lock()
	defer ts.Unlock()
	for id := range ts.Map {
		ts.cancel(id)
	}
}

func (te *TimerEntry) run(ctx context.Context) {
	for {
		wait := time.Until(te.Next(time.Now()))
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-te.Ctl:
			timer.Stop()
			return
		case <-timer.C:
			te.timers.logf("TimerEntry %s fired", te.Id)
			if te.timers.Emitter != nil {
				te.timers.Emitter(ctx, te)
			}
		}
	}
}

// BadSchedule occurs when a timer schedule is neither a duration nor
// a cron expression.
type BadSchedule struct {
	Id       string
	Schedule string
	Err      error
}

func (e *BadSchedule) Error() string {
	return "bad schedule " + e.Schedule + " for timer " + e.Id + ": " + e.Err.Error()
}

func (e *BadSchedule) Unwrap() error { return e.Err }
