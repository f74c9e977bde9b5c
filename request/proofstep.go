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

// ExerciseRequest opens an exercise: it syncs the exercise's virtual
// file and waits for the initial context and targets analyses.
type ExerciseRequest struct {
	base

	// File is the virtual-file name the exercise lives in.
	File string

	// Contents is the exercise source, ending in sorry.
	Contents string
}

// NewExerciseRequest prepares an exercise-opening request.
func NewExerciseRequest(file, contents string) *ExerciseRequest {
	return &ExerciseRequest{base: newBase(), File: file, Contents: contents}
}

func (r *ExerciseRequest) Type() string         { return "exercise" }
func (r *ExerciseRequest) FileContents() string { return r.Contents }

func (r *ExerciseRequest) OnMessage(msg prover.Message) {
	r.absorb(msg)
}

func (r *ExerciseRequest) IsComplete() bool {
	return r.finished() || r.analysesCoherent()
}

// ProofStepRequest applies one proof step: it syncs the exercise file
// with the step's tactic code inserted and collects the resulting
// proof state.  When the code carries or-else nodes, the EFFECTIVE
// CODE traces narrow it down to what actually ran, and the request is
// not complete until no or-else node remains.
type ProofStepRequest struct {
	base

	// File is the virtual-file name the exercise lives in.
	File string

	// Template is the exercise source with a CodeSlot placeholder
	// where the step's tactics go.
	Template string

	codeMu sync.Mutex
	code   *Code
}

// CodeSlot marks where a proof step's tactics are spliced into the
// template.
const CodeSlot = "<code>"

// NewProofStepRequest prepares a proof-step request for the given
// tactic tree.
func NewProofStepRequest(file, template string, code *Code) *ProofStepRequest {
	return &ProofStepRequest{base: newBase(), File: file, Template: template, code: code}
}

func (r *ProofStepRequest) Type() string { return "proof step" }

func (r *ProofStepRequest) FileContents() string {
	r.codeMu.Lock()
	defer r.codeMu.Unlock()
	return strings.Replace(r.Template, CodeSlot, r.code.Traced(), 1)
}

// EffectiveCode returns the tactic tree narrowed to what the prover
// reported running.
func (r *ProofStepRequest) EffectiveCode() *Code {
	r.codeMu.Lock()
	defer r.codeMu.Unlock()
	return r.code
}

func (r *ProofStepRequest) OnMessage(msg prover.Message) {
	if msg.IsEffectiveCode() {
		node, alt, ok := ParseEffectiveCode(msg.Text)
		if !ok {
			return
		}
		r.codeMu.Lock()
		if narrowed, found := r.code.SelectOrElse(node, alt); found {
			r.code = narrowed
		}
		r.codeMu.Unlock()
		return
	}
	r.absorb(msg)
}

func (r *ProofStepRequest) IsComplete() bool {
	if r.finished() {
		return true
	}
	r.codeMu.Lock()
	pending := r.code.HasOrElse()
	r.codeMu.Unlock()
	return !pending && r.analysesCoherent()
}
