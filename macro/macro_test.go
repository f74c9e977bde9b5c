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

package macro

import (
	"errors"
	"testing"
	"time"
)

func TestMacroRun(t *testing.T) {
	i := NewInterp()
	src := `
if (_.state.marked == "METAVAR") {
	_.out("SUM(?, ?)");
}
`
	if _, err := i.Compile("autosum", src); err != nil {
		t.Fatal(err)
	}

	got, err := i.Run("autosum", State{Marked: "METAVAR"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "SUM(?, ?)" {
		t.Fatalf("emitted %q", got)
	}

	got, err = i.Run("autosum", State{Marked: "NUMBER"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("emitted %q for a non-matching state", got)
	}
}

func TestMacroStateVisible(t *testing.T) {
	i := NewInterp()
	src := `
if (_.state.atEnd && _.state.unassigned > 0) {
	_.out("NUMBER/value=0");
}
`
	if _, err := i.Compile("zerofill", src); err != nil {
		t.Fatal(err)
	}
	got, err := i.Run("zerofill", State{AtEnd: true, Unassigned: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("emitted %q", got)
	}
}

func TestMacroTimeout(t *testing.T) {
	i := NewInterp()
	i.Timeout = 10 * time.Millisecond
	if _, err := i.Compile("spin", "for (;;) {}"); err != nil {
		t.Fatal(err)
	}
	if _, err := i.Run("spin", State{}); err != Interrupted {
		t.Fatalf("got %v, wanted Interrupted", err)
	}
}

func TestUnknownMacro(t *testing.T) {
	i := NewInterp()
	_, err := i.Run("nope", State{})
	var unknown *UnknownMacro
	if !errors.As(err, &unknown) || unknown.Name != "nope" {
		t.Fatalf("got %v", err)
	}
}

func TestCompileError(t *testing.T) {
	i := NewInterp()
	if _, err := i.Compile("broken", "this is not javascript ("); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestLibrary(t *testing.T) {
	src := `
name: sets
doc: fragments for the set-theory course
patterns:
  sum: "SUM(?, ?)"
  half: "DIV(?, NUMBER/value=2)"
`
	lib, err := ParseLibrary([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if lib.Name != "sets" || len(lib.Patterns) != 2 {
		t.Fatalf("library %+v", lib)
	}

	a, err := lib.Fragment("sum")
	if err != nil {
		t.Fatal(err)
	}
	b, err := lib.Fragment("sum")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("fragments must be fresh trees")
	}
	if a.Kind() != "SUM" {
		t.Fatalf("kind %q", a.Kind())
	}

	_, err = lib.Fragment("nope")
	var unknown *UnknownPattern
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v", err)
	}
}

func TestLibraryBadPattern(t *testing.T) {
	src := `
name: broken
patterns:
  oops: "SUM(?,"
`
	_, err := ParseLibrary([]byte(src))
	var bad *BadPattern
	if !errors.As(err, &bad) || bad.Name != "oops" {
		t.Fatalf("got %v", err)
	}
}
