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
	"errors"
	"strings"
	"testing"

	"github.com/proofpad/proofpad/prover"
)

func quietDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.Logf = func(format string, args ...interface{}) {}
	return d
}

func TestSplitAnalysis(t *testing.T) {
	got := splitAnalysis("targets #: 1\n¿¿¿property:\n P ⇒ Q¿¿¿property: R")
	want := []string{"¿¿¿property: P ⇒ Q", "¿¿¿property: R"}
	if len(got) != len(want) {
		t.Fatalf("items %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d: %q, wanted %q", i, got[i], want[i])
		}
	}
	if splitAnalysis("no separator here") != nil {
		t.Fatal("expected nil for a block with no items")
	}
}

func TestFailCompletes(t *testing.T) {
	r := NewExerciseRequest("exercise.lean", "begin\n  sorry\nend")
	r.Fail(errors.New("no answer from the prover"))

	select {
	case <-r.Done():
	default:
		t.Fatal("failed request should be done")
	}
	if !r.IsComplete() {
		t.Fatal("failed request should be complete")
	}
	errs := r.Errors()
	if len(errs) != 1 || errs[0].Severity != prover.SeverityError {
		t.Fatalf("errors %+v", errs)
	}

	// A second failure must not panic or double-close.
	r.Fail(errors.New("again"))
}

func TestCodeString(t *testing.T) {
	code := AndThen(
		CodeString("intro x"),
		OrElse(CodeString("assumption"), CodeString("rw H")),
	)
	want := "intro x, `[ assumption ] <|> `[ rw H ]"
	if got := code.String(); got != want {
		t.Fatalf("rendered %q, wanted %q", got, want)
	}
}

func TestCodeTraced(t *testing.T) {
	code := OrElse(CodeString("assumption"), CodeString("rw H"))
	want := "`[ assumption, trace \"EFFECTIVE CODE 1.0: assumption\" ]" +
		" <|> `[ rw H, trace \"EFFECTIVE CODE 1.1: rw H\" ]"
	if got := code.Traced(); got != want {
		t.Fatalf("traced %q, wanted %q", got, want)
	}
}

func TestSelectOrElse(t *testing.T) {
	code := AndThen(
		CodeString("intro x"),
		OrElse(CodeString("assumption"), CodeString("rw H")),
	)
	code.Traced() // assign node numbers

	if !code.HasOrElse() {
		t.Fatal("expected a pending or-else node")
	}
	narrowed, found := code.SelectOrElse(1, 1)
	if !found {
		t.Fatal("node 1 not found")
	}
	if narrowed.HasOrElse() {
		t.Fatal("or-else should be resolved")
	}
	if got := narrowed.String(); got != "intro x, rw H" {
		t.Fatalf("narrowed to %q", got)
	}
	// The original tree is untouched.
	if !code.HasOrElse() {
		t.Fatal("receiver was modified")
	}

	if _, found := code.SelectOrElse(9, 0); found {
		t.Fatal("nonexistent node reported found")
	}
}

func TestParseEffectiveCode(t *testing.T) {
	node, alt, ok := ParseEffectiveCode("EFFECTIVE CODE 3.2: assumption")
	if !ok || node != 3 || alt != 2 {
		t.Fatalf("parsed %d.%d ok=%v", node, alt, ok)
	}
	if _, _, ok := ParseEffectiveCode("context #: whatever"); ok {
		t.Fatal("non-trace line parsed")
	}
}

func TestExerciseRequestCompletes(t *testing.T) {
	d := quietDispatcher()
	r := NewExerciseRequest("exercise.lean", "begin\n  sorry\nend")
	sync := d.Register(r, r.File)
	if sync.SeqNum != 1 || sync.Content != r.Contents {
		t.Fatalf("sync %+v", sync)
	}

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: x"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: P"},
	}})

	select {
	case <-r.Done():
	default:
		t.Fatal("request should be complete")
	}
	if d.Pending() != 0 {
		t.Fatalf("%d requests still pending", d.Pending())
	}
	if got := r.TargetsAnalyses(); len(got) != 1 || got[0] != "¿¿¿property: P" {
		t.Fatalf("targets %q", got)
	}
	if got := r.HypoAnalyses(); len(got) != 1 {
		t.Fatalf("hypos %q", got)
	}
}

func TestUnknownSeqNumDropped(t *testing.T) {
	var logged []string
	d := NewDispatcher()
	d.Logf = func(format string, args ...interface{}) {
		logged = append(logged, format)
	}
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 99, Text: "targets #:\n¿¿¿property: P"},
	}})

	if len(logged) == 0 {
		t.Fatal("stray message should be logged")
	}
	if r.IsComplete() {
		t.Fatal("stray message must not touch a live request")
	}
	if got := r.TargetsAnalyses(); got != nil {
		t.Fatalf("targets leaked: %q", got)
	}
	if d.Pending() != 1 {
		t.Fatalf("%d requests pending, wanted 1", d.Pending())
	}
}

func TestProofStepEffectiveCode(t *testing.T) {
	d := quietDispatcher()
	code := OrElse(CodeString("assumption"), CodeString("rw H"))
	r := NewProofStepRequest("exercise.lean", "begin\n  <code>,\n  sorry\nend", code)
	sync := d.Register(r, r.File)

	if !strings.Contains(sync.Content, "EFFECTIVE CODE 1.0: assumption") {
		t.Fatalf("synced contents lack traces: %s", sync.Content)
	}

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "EFFECTIVE CODE 1.1: rw H"},
	}})
	if r.IsComplete() {
		t.Fatal("analyses still missing")
	}

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityWarning, SeqNum: 1, Text: "declaration 'exercise' uses sorry"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: x"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: Q"},
	}})

	select {
	case <-r.Done():
	default:
		t.Fatal("request should be complete")
	}
	if got := r.EffectiveCode().String(); got != "rw H" {
		t.Fatalf("effective code %q", got)
	}
}

func TestProofStepWaitsForOrElse(t *testing.T) {
	d := quietDispatcher()
	code := OrElse(CodeString("assumption"), CodeString("rw H"))
	r := NewProofStepRequest("exercise.lean", "<code>", code)
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: x"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: Q"},
	}})

	if r.IsComplete() {
		t.Fatal("or-else unresolved, request must stay open")
	}
}

func TestNoGoalsCompletes(t *testing.T) {
	d := quietDispatcher()
	code := OrElse(CodeString("assumption"), CodeString("rw H"))
	r := NewProofStepRequest("exercise.lean", "<code>", code)
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityError, SeqNum: 1, Text: prover.NoGoalsText},
	}})

	select {
	case <-r.Done():
	default:
		t.Fatal("no-goals should complete the request")
	}
	if len(r.Errors()) != 0 {
		t.Fatalf("no-goals recorded as error: %v", r.Errors())
	}
	if r.Goals() {
		t.Fatal("goals should be exhausted")
	}
}

func TestUnsolvedGoalsIgnored(t *testing.T) {
	d := quietDispatcher()
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityError, SeqNum: 1, Text: prover.UnsolvedText + "\nstate: ..."},
	}})

	if r.IsComplete() {
		t.Fatal("unsolved-goals must not complete the request")
	}
	if len(r.Errors()) != 0 {
		t.Fatalf("unsolved-goals recorded as error: %v", r.Errors())
	}
}

func TestTacticErrorCompletes(t *testing.T) {
	d := quietDispatcher()
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityError, SeqNum: 1, Text: "unknown identifier 'zz'"},
	}})

	select {
	case <-r.Done():
	default:
		t.Fatal("tactic error should complete the request")
	}
	errs := r.Errors()
	if len(errs) != 1 || errs[0].Text != "unknown identifier 'zz'" {
		t.Fatalf("errors %v", errs)
	}
}

func TestProverRejection(t *testing.T) {
	d := quietDispatcher()
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "error", SeqNum: 1, Message: "file invalidated"})

	select {
	case <-r.Done():
	default:
		t.Fatal("rejection should complete the request")
	}
	if len(r.Errors()) != 1 {
		t.Fatalf("errors %v", r.Errors())
	}
}

func TestInitialStatesRequest(t *testing.T) {
	d := quietDispatcher()
	r := NewInitialStatesRequest("course.lean", "statement 1\n\nstatement 2", 2)
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: x"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: P"},
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: y¿¿¿object: z"},
	}})
	if r.IsComplete() {
		t.Fatal("one targets analysis still missing")
	}
	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: Q"},
	}})

	select {
	case <-r.Done():
	default:
		t.Fatal("batch should be complete")
	}
	states := r.States()
	if len(states) != 2 {
		t.Fatalf("%d states", len(states))
	}
	if len(states[1].Hypotheses) != 2 || states[1].Targets[0] != "¿¿¿property: Q" {
		t.Fatalf("second state %+v", states[1])
	}
}

func TestBatchStatements(t *testing.T) {
	statements := make([]string, 23)
	for i := range statements {
		statements[i] = "s"
	}
	batches := BatchStatements(statements)
	if len(batches) != 3 {
		t.Fatalf("%d batches", len(batches))
	}
	if len(batches[0]) != 10 || len(batches[2]) != 3 {
		t.Fatalf("batch sizes %d, %d", len(batches[0]), len(batches[2]))
	}
	if BatchStatements(nil) != nil {
		t.Fatal("no statements, no batches")
	}
}

func TestDispatcherActivity(t *testing.T) {
	active := 0
	d := quietDispatcher()
	d.Activity = func() { active++ }
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)

	d.HandleResponse(prover.Response{Kind: "ok", SeqNum: 1})
	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "context #:\n¿¿¿object: x"},
	}})
	d.HandleResponse(prover.Response{Kind: "current_tasks", IsRunning: true})

	if active != 3 {
		t.Fatalf("activity seen %d times, wanted 3", active)
	}
}

func TestDispatcherRunningChange(t *testing.T) {
	var changes []bool
	d := quietDispatcher()
	d.OnRunningChange = func(running bool) { changes = append(changes, running) }

	d.HandleResponse(prover.Response{Kind: "current_tasks", IsRunning: true})
	d.HandleResponse(prover.Response{Kind: "current_tasks", IsRunning: true})
	d.HandleResponse(prover.Response{Kind: "current_tasks", IsRunning: false})

	if len(changes) != 2 || changes[0] != true || changes[1] != false {
		t.Fatalf("changes %v", changes)
	}
}

func TestForget(t *testing.T) {
	d := quietDispatcher()
	r := NewExerciseRequest("exercise.lean", "sorry")
	d.Register(r, r.File)
	d.Forget(r)
	if d.Pending() != 0 {
		t.Fatal("request still pending after Forget")
	}
	d.HandleResponse(prover.Response{Kind: "all_messages", Msgs: []prover.Message{
		{Severity: prover.SeverityInfo, SeqNum: 1, Text: "targets #:\n¿¿¿property: P"},
	}})
	if r.IsComplete() {
		t.Fatal("forgotten request received a message")
	}
}
