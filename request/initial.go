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

package request

import (
	"strings"
	"sync"

	"github.com/proofpad/proofpad/prover"
)

// A ProofState is what the prover reports for one statement: the
// hypotheses in context and the targets to prove.
type ProofState struct {
	Hypotheses []string
	Targets    []string
}

// MaxStatementsPerRequest bounds how many statements one
// InitialStatesRequest carries.  Larger courses are split into
// several requests so a single slow batch cannot time out the rest.
const MaxStatementsPerRequest = 10

// InitialStatesRequest fetches the initial proof state of a batch of
// statements in one sync: the synced file states every goal, and the
// prover answers with one context and one targets analysis per
// statement, in file order.
type InitialStatesRequest struct {
	base

	// File is the virtual-file name for the batch.
	File string

	// Contents is the batch source.
	Contents string

	// Count is the number of statements in the batch.
	Count int

	stMu    sync.Mutex
	hypos   [][]string
	targets [][]string
}

// NewInitialStatesRequest prepares a batch request.  Count must match
// the number of statements in contents.
func NewInitialStatesRequest(file, contents string, count int) *InitialStatesRequest {
	return &InitialStatesRequest{base: newBase(), File: file, Contents: contents, Count: count}
}

func (r *InitialStatesRequest) Type() string         { return "initial proof states" }
func (r *InitialStatesRequest) FileContents() string { return r.Contents }

func (r *InitialStatesRequest) OnMessage(msg prover.Message) {
	switch {
	case msg.IsContext():
		r.stMu.Lock()
		r.hypos = append(r.hypos, splitAnalysis(msg.Text))
		r.stMu.Unlock()
	case msg.IsTargets():
		r.stMu.Lock()
		r.targets = append(r.targets, splitAnalysis(msg.Text))
		r.stMu.Unlock()
	default:
		r.absorb(msg)
	}
}

func (r *InitialStatesRequest) IsComplete() bool {
	if r.finished() {
		return true
	}
	r.stMu.Lock()
	defer r.stMu.Unlock()
	return len(r.hypos) >= r.Count && len(r.targets) >= r.Count
}

// States pairs up the analyses received so far, one ProofState per
// statement in file order.
func (r *InitialStatesRequest) States() []ProofState {
	r.stMu.Lock()
	defer r.stMu.Unlock()
	n := len(r.hypos)
	if len(r.targets) < n {
		n = len(r.targets)
	}
	states := make([]ProofState, n)
	for i := 0; i < n; i++ {
		states[i] = ProofState{Hypotheses: r.hypos[i], Targets: r.targets[i]}
	}
	return states
}

// BatchStatements splits a course's statement sources into batch
// contents of at most MaxStatementsPerRequest each.
func BatchStatements(statements []string) [][]string {
	var batches [][]string
	for len(statements) > 0 {
		n := MaxStatementsPerRequest
		if len(statements) < n {
			n = len(statements)
		}
		batches = append(batches, statements[:n])
		statements = statements[n:]
	}
	return batches
}

// JoinStatements renders one batch's file contents.
func JoinStatements(statements []string) string {
	return strings.Join(statements, "\n\n")
}
