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

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/proofpad/proofpad/request"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "states.db"))
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	states := map[string]*request.ProofState{
		"exercise.intersection": {
			Hypotheses: []string{"¿¿¿object: x"},
			Targets:    []string{"¿¿¿property: x ∈ A ∩ B"},
		},
		"exercise.union": {
			Hypotheses: []string{"¿¿¿object: y"},
			Targets:    []string{"¿¿¿property: y ∈ A ∪ B"},
		},
	}
	if err := s.PutStates(ctx, "sets", states); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetState(ctx, "sets", "exercise.union")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Targets[0] != "¿¿¿property: y ∈ A ∪ B" {
		t.Fatalf("got %+v", got)
	}

	miss, err := s.GetState(ctx, "sets", "exercise.none")
	if err != nil {
		t.Fatal(err)
	}
	if miss != nil {
		t.Fatalf("miss returned %+v", miss)
	}

	all, err := s.GetCourse(ctx, "sets")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("%d states", len(all))
	}
}

func TestDeleteAndRemCourse(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	states := map[string]*request.ProofState{
		"a": {Targets: []string{"¿¿¿property: P"}},
		"b": {Targets: []string{"¿¿¿property: Q"}},
	}
	if err := s.PutStates(ctx, "course", states); err != nil {
		t.Fatal(err)
	}

	// A nil state deletes the record.
	if err := s.PutStates(ctx, "course", map[string]*request.ProofState{"a": nil}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetState(ctx, "course", "a"); got != nil {
		t.Fatalf("deleted state still present: %+v", got)
	}

	names, err := s.Courses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "course" {
		t.Fatalf("courses %q", names)
	}

	if err := s.RemCourse(ctx, "course"); err != nil {
		t.Fatal(err)
	}
	if all, _ := s.GetCourse(ctx, "course"); all != nil {
		t.Fatalf("course survived removal: %+v", all)
	}
}

func TestNilStore(t *testing.T) {
	ctx := context.Background()
	var s *Store
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.PutStates(ctx, "c", map[string]*request.ProofState{"a": {}}); err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetState(ctx, "c", "a"); err != nil || got != nil {
		t.Fatalf("nil store returned %+v, %v", got, err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
}
