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

// Package session wires the pieces together: one Session owns an
// editor, a request queue, a prover transport, macros, pattern
// libraries, the proof-state cache, and maintenance timers.  Nothing
// here is process-wide; several sessions can coexist in one process.
package session

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/proofpad/proofpad/conf"
	"github.com/proofpad/proofpad/expr"
	"github.com/proofpad/proofpad/macro"
	"github.com/proofpad/proofpad/marked"
	"github.com/proofpad/proofpad/prover"
	"github.com/proofpad/proofpad/queue"
	"github.com/proofpad/proofpad/request"
	"github.com/proofpad/proofpad/store"
)

// Session is one user's editing and proving state.
type Session struct {
	Logf func(format string, args ...interface{})

	mu     sync.Mutex
	editor *marked.Tree
	prio   marked.Priorities
	past   []*expr.Expr
	future []*expr.Expr

	queue     *queue.Queue
	disp      *request.Dispatcher
	transport prover.Transport
	cache     *store.Store
	macros    *macro.Interp
	libs      map[string]*macro.Library
	timers    *Timers

	conf conf.Conf

	exerciseFile     string
	exerciseTemplate string
	proofState       *request.ProofState
	running          bool

	// publish, if set, receives session events (view changes,
	// proof completion, heartbeats) for the service and couplings.
	publish func(event interface{})
}

// New builds a session from configuration and a prover transport.
func New(c conf.Conf, transport prover.Transport) (*Session, error) {
	prio := c.PriorityTable()

	s := &Session{
		Logf:      log.Printf,
		prio:      prio,
		editor:    marked.NewTreeWithPriorities(expr.NewMetavar(nil), prio),
		queue:     queue.New(c.QueueOptions()),
		disp:      request.NewDispatcher(),
		transport: transport,
		macros:    macro.NewInterp(),
		libs:      make(map[string]*macro.Library),
		conf:      c,
	}
	s.timers = NewTimers(func(format string, args ...interface{}) {
		s.Logf(format, args...)
	}, s.maintain)

	s.disp.Activity = s.queue.ExtendDeadline
	s.disp.OnRunningChange = func(running bool) {
		s.mu.Lock()
		s.running = running
		s.mu.Unlock()
		s.emit(map[string]interface{}{"event": "running", "running": running})
	}

	if c.Store.Path != "" {
		s.cache = store.NewStore(c.Store.Path)
	}

	for _, filename := range c.Macros {
		if _, err := s.macros.LoadFile(filename); err != nil {
			return nil, err
		}
	}
	for _, filename := range c.Patterns {
		lib, err := macro.LoadLibrary(filename)
		if err != nil {
			return nil, err
		}
		s.libs[lib.Name] = lib
	}

	return s, nil
}

// SetPublisher registers the event sink (service broadcast, MQTT).
func (s *Session) SetPublisher(publish func(event interface{})) {
	s.mu.Lock()
	s.publish = publish
	s.mu.Unlock()
}

func (s *Session) emit(event interface{}) {
	s.mu.Lock()
	publish := s.publish
	s.mu.Unlock()
	if publish != nil {
		publish(event)
	}
}

// Start opens the transport and the cache and begins routing prover
// responses.
func (s *Session) Start(ctx context.Context) error {
	if err := s.transport.Start(); err != nil {
		return err
	}
	if err := s.cache.Open(ctx); err != nil {
		return err
	}

	go func() {
		responses := s.transport.Responses()
		for {
			select {
			case <-ctx.Done():
				return
			case resp, open := <-responses:
				if !open {
					s.Logf("session: prover transport closed")
					return
				}
				s.disp.HandleResponse(resp)
			}
		}
	}()

	for _, tc := range s.conf.Timers {
		if err := s.timers.Add(ctx, tc.ID, tc.Schedule, tc.Message); err != nil {
			return err
		}
	}
	return nil
}

// Stop tears the session down.
func (s *Session) Stop(ctx context.Context) error {
	s.timers.StopAll()
	if err := s.transport.Stop(); err != nil {
		return err
	}
	return s.cache.Close(ctx)
}

// maintain handles a maintenance timer firing.
func (s *Session) maintain(ctx context.Context, te *TimerEntry) {
	switch te.Msg {
	case "ping":
		s.emit(map[string]interface{}{"event": "ping"})
	case "compact":
		if err := s.cache.Compact(ctx); err != nil {
			s.Logf("session: compact: %s", err)
		}
	default:
		s.Logf("session: unknown maintenance message %q", te.Msg)
	}
}

// mutate runs one editor mutation with undo bookkeeping: the
// before-image is pushed on the undo stack only if the mutation
// succeeds, and any redo history is invalidated.
func (s *Session) mutate(f func() bool) bool {
	snap := s.editor.Root().Copy()
	if !f() {
		return false
	}
	s.past = append(s.past, snap)
	s.future = nil
	return true
}

// Insert parses a pattern and inserts it at the cursor.
func (s *Session) Insert(pattern string) error {
	frag, err := expr.Parse(pattern)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutate(func() bool { return s.editor.Insert(frag) }) {
		return &CannotInsert{Pattern: pattern}
	}
	return nil
}

// InsertFragment inserts a named pattern from a loaded library.
func (s *Session) InsertFragment(library, name string) error {
	s.mu.Lock()
	lib, have := s.libs[library]
	s.mu.Unlock()
	if !have {
		return &UnknownLibrary{Name: library}
	}
	frag, err := lib.Fragment(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutate(func() bool { return s.editor.Insert(frag) }) {
		return &CannotInsert{Pattern: library + "/" + name}
	}
	return nil
}

// RunMacro runs an editor macro and inserts whatever it emits.
func (s *Session) RunMacro(name string) error {
	s.mu.Lock()
	state := macro.State{
		Shape:      strings.Join(s.editor.DisplayShape(), ""),
		AtEnd:      s.editor.AtEnd(),
		Unassigned: len(s.editor.Root().Metavars(true)),
	}
	if m := s.editor.Marked(); m != nil {
		state.Marked = m.RawKind()
	}
	s.mu.Unlock()

	patterns, err := s.macros.Run(name, state)
	if err != nil {
		return err
	}
	for _, pattern := range patterns {
		if err := s.Insert(pattern); err != nil {
			return err
		}
	}
	return nil
}

// Delete clears the assignment at the cursor.
func (s *Session) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutate(s.editor.DeleteAtCursor) {
		return &CannotDelete{}
	}
	return nil
}

// Undo restores the editor to its state before the last successful
// mutation.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.past) == 0 {
		return &NothingToUndo{}
	}
	snap := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append(s.future, s.editor.Root())
	s.editor = marked.NewTreeWithPriorities(snap, s.prio)
	return nil
}

// Redo reverses an Undo.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.future) == 0 {
		return &NothingToRedo{}
	}
	snap := s.future[len(s.future)-1]
	s.future = s.future[:len(s.future)-1]
	s.past = append(s.past, s.editor.Root())
	s.editor = marked.NewTreeWithPriorities(snap, s.prio)
	return nil
}

// ResetEditor replaces the edited expression with a single
// metavariable.
func (s *Session) ResetEditor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.past = nil
	s.future = nil
	s.editor = marked.NewTreeWithPriorities(expr.NewMetavar(nil), s.prio)
}

// Editor exposes the marked tree for direct cursor movement.
func (s *Session) Editor() *marked.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// move runs one cursor operation under the session lock.
func (s *Session) move(f func(t *marked.Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.editor)
}

// enqueue sends a request through the queue.  Each attempt registers
// a fresh sequence number; a timed-out attempt forgets its
// registration so late messages for it are dropped.  A request
// abandoned after the retry budget is failed, so waiters on its Done
// channel always unblock.
func (s *Session) enqueue(r request.Request, file string, onTop bool) {
	task := &queue.Task{
		Name: r.Type(),
		Run: func(ctx context.Context) error {
			req := s.disp.Register(r, file)
			if err := s.transport.Send(req); err != nil {
				s.disp.Forget(r)
				return err
			}
			select {
			case <-r.Done():
				return nil
			case <-ctx.Done():
				s.disp.Forget(r)
				return ctx.Err()
			}
		},
		Cancel: func() {
			s.emit(map[string]interface{}{"event": "retrying", "request": r.Type()})
		},
		Abort: func(err error) {
			s.disp.Forget(r)
			r.Fail(err)
		},
	}
	if onTop {
		s.queue.AddOnTop(task)
	} else {
		s.queue.Add(task)
	}
}

// OpenExercise syncs an exercise and waits (asynchronously) for its
// initial proof state.  User-initiated, so it preempts pending work.
func (s *Session) OpenExercise(file, contents string) *request.ExerciseRequest {
	r := request.NewExerciseRequest(file, contents)
	s.mu.Lock()
	s.exerciseFile = file
	s.exerciseTemplate = ""
	s.proofState = nil
	s.mu.Unlock()

	go s.watch(r)
	s.enqueue(r, file, true)
	return r
}

// SetTemplate declares the exercise's proof-step template (source
// with a request.CodeSlot placeholder).
func (s *Session) SetTemplate(template string) {
	s.mu.Lock()
	s.exerciseTemplate = template
	s.mu.Unlock()
}

// ProofStep applies a tactic tree to the open exercise.
func (s *Session) ProofStep(code *request.Code) *request.ProofStepRequest {
	s.mu.Lock()
	file, template := s.exerciseFile, s.exerciseTemplate
	s.mu.Unlock()

	r := request.NewProofStepRequest(file, template, code)
	go s.watch(r)
	s.enqueue(r, file, true)
	return r
}

// watch records a request's outcome once it completes.
func (s *Session) watch(r request.Request) {
	<-r.Done()

	state := &request.ProofState{
		Hypotheses: nil,
		Targets:    nil,
	}
	type analysed interface {
		HypoAnalyses() []string
		TargetsAnalyses() []string
		Goals() bool
	}
	a, ok := r.(analysed)
	if !ok {
		return
	}
	state.Hypotheses = a.HypoAnalyses()
	state.Targets = a.TargetsAnalyses()

	s.mu.Lock()
	s.proofState = state
	s.mu.Unlock()

	event := map[string]interface{}{
		"event":   "request-complete",
		"request": r.Type(),
		"goals":   a.Goals(),
	}
	if errs := r.Errors(); len(errs) > 0 {
		texts := make([]string, len(errs))
		for i, e := range errs {
			texts[i] = e.Text
		}
		event["errors"] = texts
	}
	if !a.Goals() {
		event["event"] = "proof-complete"
	}
	s.emit(event)
}

// InitialStates returns the cached initial proof states for the named
// statements and enqueues batched prover requests for the misses.
// When a batch completes its states are cached and published as an
// event.
func (s *Session) InitialStates(ctx context.Context, course string, names []string, source func(name string) string) (map[string]*request.ProofState, error) {
	cached := make(map[string]*request.ProofState, len(names))
	var missing []string
	for _, name := range names {
		state, err := s.cache.GetState(ctx, course, name)
		if err != nil {
			return nil, err
		}
		if state != nil {
			cached[name] = state
			continue
		}
		missing = append(missing, name)
	}

	for _, batch := range request.BatchStatements(missing) {
		sources := make([]string, len(batch))
		for i, name := range batch {
			sources[i] = source(name)
		}
		batchNames := append([]string(nil), batch...)
		r := request.NewInitialStatesRequest(course, request.JoinStatements(sources), len(batch))

		go func() {
			<-r.Done()
			states := r.States()
			recorded := make(map[string]*request.ProofState, len(states))
			for i := range states {
				if i < len(batchNames) {
					recorded[batchNames[i]] = &states[i]
				}
			}
			if err := s.cache.PutStates(ctx, course, recorded); err != nil {
				s.Logf("session: caching initial states: %s", err)
			}
			s.emit(map[string]interface{}{
				"event":  "initial-states",
				"course": course,
				"count":  len(recorded),
			})
		}()
		s.enqueue(r, course, false)
	}

	return cached, nil
}

// Failures exposes the queue's abandoned-task reports.
func (s *Session) Failures() <-chan queue.Failure { return s.queue.Failures() }

// View renders the current editor and proof state for clients.
func (s *Session) View() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.editor.DisplayShape()
	view := map[string]interface{}{
		"shape":      strings.Join(tokens, ""),
		"tokens":     tokens,
		"unassigned": len(s.editor.Root().Metavars(true)),
		"atEnd":      s.editor.AtEnd(),
		"running":    s.running,
	}
	if s.proofState != nil {
		view["hypotheses"] = s.proofState.Hypotheses
		view["targets"] = s.proofState.Targets
	}
	return view
}

// Apply handles one client action and returns the resulting view.
// This is the service.Backend entry point.
func (s *Session) Apply(ctx context.Context, action map[string]interface{}) (interface{}, error) {
	op, _ := action["op"].(string)
	str := func(key string) string {
		v, _ := action[key].(string)
		return v
	}

	var err error
	switch op {
	case "insert":
		err = s.Insert(str("pattern"))
	case "fragment":
		err = s.InsertFragment(str("library"), str("name"))
	case "macro":
		err = s.RunMacro(str("name"))
	case "delete":
		err = s.Delete()
	case "undo":
		err = s.Undo()
	case "redo":
		err = s.Redo()
	case "left":
		s.move(func(t *marked.Tree) { t.DecreaseCursor() })
	case "right":
		s.move(func(t *marked.Tree) { t.IncreaseCursor() })
	case "up":
		s.move(func(t *marked.Tree) { t.MoveUp() })
	case "begin":
		s.move(func(t *marked.Tree) { t.GoToBeginning() })
	case "end":
		s.move(func(t *marked.Tree) { t.GoToEnd() })
	case "nextUnassigned":
		s.move(func(t *marked.Tree) { t.MoveRightToNextUnassigned() })
	case "previousUnassigned":
		s.move(func(t *marked.Tree) { t.MoveLeftToPreviousUnassigned() })
	case "reset":
		s.ResetEditor()
	default:
		err = &UnknownAction{Op: op}
	}
	if err != nil {
		return nil, err
	}
	return s.View(), nil
}
