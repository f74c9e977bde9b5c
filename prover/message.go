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

// Package prover talks to the backend theorem prover: it spawns the
// long-running process, writes sequence-numbered requests to its
// stdin, and parses the line-oriented JSON messages it streams back.
package prover

import "strings"

// Severity of a prover message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "information"
)

// Reserved text markers in prover output.
const (
	// ContextPrefix starts a hypothesis-analysis block for one
	// sub-goal.
	ContextPrefix = "context #:"

	// TargetsPrefix starts a targets-analysis block.
	TargetsPrefix = "targets #:"

	// EffectiveCodePrefix tags a trace naming the or-else
	// alternative that actually ran.
	EffectiveCodePrefix = "EFFECTIVE CODE"

	// NoGoalsText is the authoritative "proof finished" error.
	NoGoalsText = "tactic failed, there are no goals to be solved"

	// UnsolvedText is the normal mid-proof error.
	UnsolvedText = "tactic failed, there are unsolved goals"

	// UsesSorryText suffixes warnings about admitted sub-proofs;
	// those are suppressed.
	UsesSorryText = " uses sorry"
)

// A Message is one prover diagnostic line: severity, the sequence
// number of the request it answers, a source position, and free text.
type Message struct {
	Severity Severity `json:"severity"`
	SeqNum   int      `json:"seq_num"`
	FileName string   `json:"file_name"`
	Line     int      `json:"pos_line"`
	Col      int      `json:"pos_col"`
	Text     string   `json:"text"`
}

// IsContext reports whether the message carries a hypothesis
// analysis.
func (m Message) IsContext() bool {
	return strings.HasPrefix(m.Text, ContextPrefix)
}

// IsTargets reports whether the message carries a targets analysis.
func (m Message) IsTargets() bool {
	return strings.HasPrefix(m.Text, TargetsPrefix)
}

// IsEffectiveCode reports whether the message traces an effective
// or-else alternative.
func (m Message) IsEffectiveCode() bool {
	return strings.HasPrefix(m.Text, EffectiveCodePrefix)
}

// IsNoGoals reports the authoritative proof-complete error.
func (m Message) IsNoGoals() bool {
	return m.Severity == SeverityError && strings.HasPrefix(m.Text, NoGoalsText)
}

// IsUnsolvedGoals reports the routine still-goals-open error.
func (m Message) IsUnsolvedGoals() bool {
	return m.Severity == SeverityError && strings.HasPrefix(m.Text, UnsolvedText)
}

// IsSorryWarning reports a warning about an admitted sub-proof.
func (m Message) IsSorryWarning() bool {
	return m.Severity == SeverityWarning && strings.HasSuffix(m.Text, UsesSorryText)
}

// A Response is one line of prover stdout.  Kind discriminates the
// payload: "ok" and "error" answer a request directly; "all_messages"
// carries the accumulated diagnostics; "current_tasks" reports
// whether the prover is still computing.
type Response struct {
	Kind      string `json:"response"`
	SeqNum    int    `json:"seq_num,omitempty"`
	Message   string `json:"message,omitempty"`

	Msgs []Message `json:"msgs,omitempty"`

	IsRunning bool             `json:"is_running,omitempty"`
	Tasks     []BackgroundTask `json:"tasks,omitempty"`
}

// A BackgroundTask is one entry of a current_tasks response.
type BackgroundTask struct {
	FileName string `json:"file_name"`
	Line     int    `json:"pos_line"`
	Col      int    `json:"pos_col"`
	Desc     string `json:"desc"`
}

// A SyncRequest pushes file contents to the prover under a sequence
// number.  The prover answers with an ok/error response bearing the
// same number, then streams diagnostics.
type SyncRequest struct {
	Command  string `json:"request"`
	SeqNum   int    `json:"seq_num"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// NewSyncRequest makes the standard sync request.
func NewSyncRequest(seqNum int, fileName, content string) SyncRequest {
	return SyncRequest{
		Command:  "sync",
		SeqNum:   seqNum,
		FileName: fileName,
		Content:  content,
	}
}
