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

// Package request correlates prover responses with the high-level
// operations that caused them.  Each operation is a Request carrying
// the file contents to sync; the Dispatcher assigns sequence numbers,
// routes inbound messages by seq_num, and drops what it cannot match.
package request

import (
	"strings"
	"sync"

	"github.com/proofpad/proofpad/prover"
)

// A Request is one round trip to the prover.  OnMessage is fed every
// message correlated to the request's sequence number; once the
// request has everything it needs, IsComplete turns true and the
// Dispatcher closes Done.
type Request interface {
	// Type names the request for logs.
	Type() string

	// FileContents is the virtual-file text to sync.
	FileContents() string

	SeqNum() int
	SetSeqNum(n int)

	OnMessage(msg prover.Message)
	IsComplete() bool

	// Done is closed when the request completes or fails.
	Done() <-chan struct{}

	// Fail records an unrecoverable error and completes the
	// request, unblocking anyone waiting on Done.
	Fail(err error)

	// Errors returns the prover errors recorded so far.
	Errors() []prover.Message
}

// AnalysisSep separates items inside context and targets analyses.
const AnalysisSep = "¿¿¿"

// splitAnalysis cuts an analysis block into its items.  The block is
// a title line followed by AnalysisSep-prefixed items; the title is
// dropped and each item comes back on one line with its separator
// restored.
func splitAnalysis(text string) []string {
	parts := strings.Split(text, AnalysisSep)
	if len(parts) < 2 {
		return nil
	}
	items := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		item := AnalysisSep + strings.ReplaceAll(part, "\n", "")
		items = append(items, item)
	}
	return items
}

// base carries the bookkeeping every request shares: the assigned
// sequence number, the accumulated analyses, recorded errors, and the
// one-shot completion channel.
type base struct {
	mu      sync.Mutex
	seqNum  int
	done    chan struct{}
	once    sync.Once
	errs    []prover.Message
	failed  bool
	noGoals bool

	hypoAnalyses    []string
	targetsAnalyses []string
	targetsReceived bool
}

func newBase() base {
	return base{done: make(chan struct{})}
}

func (b *base) SeqNum() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seqNum
}

func (b *base) SetSeqNum(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seqNum = n
}

func (b *base) Done() <-chan struct{} { return b.done }

func (b *base) complete() {
	b.once.Do(func() { close(b.done) })
}

// Fail records an unrecoverable error, such as an exhausted retry
// budget, and completes the request.
func (b *base) Fail(err error) {
	b.mu.Lock()
	b.errs = append(b.errs, prover.Message{
		Severity: prover.SeverityError,
		Text:     err.Error(),
	})
	b.failed = true
	b.mu.Unlock()
	b.complete()
}

func (b *base) Errors() []prover.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]prover.Message(nil), b.errs...)
}

// HypoAnalyses returns one context analysis per sub-goal, in arrival
// order.
func (b *base) HypoAnalyses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hypoAnalyses...)
}

// TargetsAnalyses returns the target items from the last targets
// analysis received.
func (b *base) TargetsAnalyses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.targetsAnalyses...)
}

// Goals reports whether the proof still has goals: false once a
// "no goals" error arrived.
func (b *base) Goals() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.noGoals
}

// absorb handles the messages every request type treats the same way.
// It reports whether the message was consumed.
func (b *base) absorb(msg prover.Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case msg.IsContext():
		b.hypoAnalyses = append(b.hypoAnalyses, strings.ReplaceAll(msg.Text, "\n", ""))
		return true
	case msg.IsTargets():
		// A fresh targets analysis supersedes any earlier one.
		b.targetsAnalyses = splitAnalysis(msg.Text)
		b.targetsReceived = true
		return true
	case msg.IsSorryWarning():
		// The exercise skeleton ends in sorry; the warning is
		// expected and carries no information.
		return true
	case msg.IsNoGoals():
		// Authoritative: the proof is finished even if the
		// analyses have not all arrived.
		b.noGoals = true
		return true
	case msg.IsUnsolvedGoals():
		// Routine while the proof is in progress.
		return true
	case msg.Severity == prover.SeverityError:
		b.errs = append(b.errs, msg)
		b.failed = true
		return true
	}
	return false
}

// analysesCoherent reports whether a targets analysis arrived and a
// context analysis arrived for each of its goals.
func (b *base) analysesCoherent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.targetsReceived && len(b.hypoAnalyses) == len(b.targetsAnalyses)
}

func (b *base) finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.noGoals || b.failed
}
