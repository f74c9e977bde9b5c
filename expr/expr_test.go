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

package expr

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"SUM(?, NUMBER/value=1)", "□+1"},
		{"SUM(1, 2)", "1+2"},
		{"PROP_EQUAL(LOCAL_CONSTANT/name=x, 0)", "x=0"},
		{"MULT(?a, ?a)", "□·□"},
		{"GENERIC_PARENTHESES(SUM(1, 2))", "(1+2)"},
		{"APPLICATION(CONSTANT/name=f, ?)", "f(□)"},
	}
	for _, c := range cases {
		e, err := Parse(c.src)
		if err != nil {
			t.Fatal(err)
		}
		if got := e.String(); got != c.want {
			t.Fatalf("Parse(%q) rendered %q, wanted %q", c.src, got, c.want)
		}
	}
}

func TestParseSharedMetavars(t *testing.T) {
	e := MustParse("MULT(?a, ?a)")
	mvs := e.Metavars(false)
	if len(mvs) != 2 {
		t.Fatalf("got %d metavars", len(mvs))
	}
	if mvs[0] != mvs[1] {
		t.Fatal("?a occurrences should be the same node")
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"SUM(1, 2))",
		"SUM(1,",
		"NUMBER/value(1)",
	} {
		if _, err := Parse(src); err == nil {
			t.Fatalf("Parse(%q) should have failed", src)
		}
	}
}

func TestMetavarDelegation(t *testing.T) {
	mv := NewMetavar(nil)
	if mv.Kind() != Metavar || mv.IsAssigned() {
		t.Fatal("fresh metavar")
	}
	mv.Assign(MustParse("SUM(1, 2)"))
	if mv.Kind() != Sum {
		t.Fatalf("assigned metavar kind %q", mv.Kind())
	}
	if !mv.IsMetavar() {
		t.Fatal("assignment should not change the node's own nature")
	}
	if len(mv.Children()) != 2 {
		t.Fatal("children should delegate")
	}
	mv.ClearAssignment()
	if mv.IsAssigned() || mv.Kind() != Metavar {
		t.Fatal("clear assignment")
	}
}

func TestClearAssignmentClearsMetavarType(t *testing.T) {
	typ := NewMetavar(nil)
	typ.Assign(Name(Constant, "ℝ"))
	mv := NewMetavar(typ)
	mv.Assign(Num("1"))
	mv.ClearAssignment()
	if typ.IsAssigned() {
		t.Fatal("metavar type slot should be cleared with its value")
	}
}

func TestCopyIndependence(t *testing.T) {
	orig := MustParse("SUM(?, NUMBER/value=1)")
	cp := orig.Copy()
	if !orig.Equal(cp) {
		t.Fatal("copy should be equal")
	}

	// Assigning in the copy must not leak into the original.
	cp.Metavars(true)[0].Assign(Num("9"))
	if len(orig.Metavars(true)) != 1 {
		t.Fatal("original metavar got assigned through the copy")
	}
	if orig.Equal(cp) {
		t.Fatal("trees should have diverged")
	}

	// Info mutation must not leak either.
	cp.Children()[1].SetAttr("value", "7")
	if orig.Children()[1].Value() != "1" {
		t.Fatal("info leaked")
	}
}

func TestCopyKeepsCursorAndAssignment(t *testing.T) {
	orig := MustParse("SUM(?, 1)")
	mv := orig.Metavars(true)[0]
	mv.Assign(Num("5"))
	mv.SetCursor(0)

	cp := orig.Copy()
	m := cp.Marked()
	if m == nil {
		t.Fatal("cursor lost in copy")
	}
	if m == mv {
		t.Fatal("marked node should be the copy, not the original")
	}
	if m.Kind() != Number || m.Value() != "5" {
		t.Fatal("assignment lost in copy")
	}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		target  string
		ok      bool
	}{
		{"SUM(?, ?)", "SUM(1, 2)", true},
		{"SUM(?a, ?a)", "SUM(1, 1)", true},
		{"SUM(?a, ?a)", "SUM(1, 2)", false},
		{"SUM(?, ?)", "MULT(1, 2)", false},
		{"NUMBER/value=1", "NUMBER/value=1", true},
		{"NUMBER/value=1", "NUMBER/value=2", false},
		{"NUMBER/value=?", "NUMBER/value=2", true},
		{"*INEQUALITY(?, ?)", "PROP_<(1, 2)", true},
		{"*INEQUALITY(?, ?)", "PROP_EQUAL(1, 2)", false},
		{"?", "SUM(1, 2)", true},
	}
	for _, c := range cases {
		pattern, target := MustParse(c.pattern), MustParse(c.target)
		if got := pattern.Match(target); got != c.ok {
			t.Fatalf("%q.Match(%q) = %v", c.pattern, c.target, got)
		}
		if c.ok && !pattern.Equal(target) {
			t.Fatalf("after match, %q should render as %q, got %q",
				c.pattern, target, pattern)
		}
	}
}

func TestEqualJokers(t *testing.T) {
	if !MustParse("NUMBER/value=?").Equal(MustParse("NUMBER/value=2")) {
		t.Fatal("value joker should compare equal to any value")
	}
	if !MustParse("*INEQUALITY(1, 2)").Equal(MustParse("PROP_<(1, 2)")) {
		t.Fatal("wildcard kind should compare equal to a member kind")
	}
	if MustParse("NUMBER/value=1").Equal(MustParse("NUMBER/value=2")) {
		t.Fatal("distinct values should not compare equal")
	}
	if MustParse("*INEQUALITY(1, 2)").Equal(MustParse("PROP_EQUAL(1, 2)")) {
		t.Fatal("non-member kind should not compare equal")
	}
}

func TestMatchAtomic(t *testing.T) {
	// The left ? matches but the whole match fails; the partial
	// binding must not stick.
	pattern := MustParse("SUM(?, NUMBER/value=1)")
	target := MustParse("SUM(9, NUMBER/value=2)")
	if pattern.Match(target) {
		t.Fatal("match should fail")
	}
	if len(pattern.Metavars(true)) != 1 {
		t.Fatal("failed match left a metavar assigned")
	}
}

func TestMatchRespectsExistingAssignment(t *testing.T) {
	pattern := MustParse("SUM(?, ?)")
	mv := pattern.Metavars(true)[0]
	mv.Assign(Num("1"))
	if !pattern.Match(MustParse("SUM(1, 2)")) {
		t.Fatal("compatible assignment should match")
	}
	pattern2 := MustParse("SUM(?, ?)")
	pattern2.Metavars(true)[0].Assign(Num("3"))
	if pattern2.Match(MustParse("SUM(1, 2)")) {
		t.Fatal("conflicting assignment should not match")
	}
}

func TestMatchTypes(t *testing.T) {
	real := Name(Constant, "ℝ")
	mv := NewMetavar(real.Copy())
	one := NewTyped(Number, real.Copy())
	one.SetAttr("value", "1")
	if !mv.Match(one) {
		t.Fatal("same type should match")
	}

	nat := Name(Constant, "ℕ")
	mv2 := NewMetavar(nat)
	if mv2.Match(one.Copy()) {
		t.Fatal("ℕ slot should not take an ℝ value")
	}

	// NoType is permissive.
	mv3 := NewMetavar(nil)
	if !mv3.Match(one.Copy()) {
		t.Fatal("untyped slot takes anything")
	}
}

func TestShape(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"SUM(1, 2)", "1+2"},
		{"DIFFERENCE(1, 2)", "1−2"},
		{"MULT(1, 2)", "1·2"},
		{"PROP_≤(1, 2)", "1≤2"},
		{"COMPOSITE_NUMBER(1, 2)", "1 2"},
		{"GENERIC_NODE(1, 2)", "1•2"},
		{"?", "□"},
		{"POINT", "."},
	}
	for _, c := range cases {
		if got := MustParse(c.src).String(); got != c.want {
			t.Fatalf("%q rendered %q, wanted %q", c.src, got, c.want)
		}
	}
}

func TestMainSymbol(t *testing.T) {
	if got := MustParse("SUM(1, 2)").MainSymbol(); got != 1 {
		t.Fatalf("SUM main symbol rank %d", got)
	}
	if got := MustParse("1").MainSymbol(); got != 0 {
		t.Fatalf("NUMBER main symbol rank %d", got)
	}
	if got := MustParse("GENERIC_PARENTHESES(1)").MainSymbol(); got != 0 {
		t.Fatalf("parens main symbol rank %d", got)
	}
}

func TestOrderedChildren(t *testing.T) {
	e := MustParse("SUM(1, 2)")
	oc := e.OrderedChildren()
	if len(oc) != 3 {
		t.Fatalf("got %d ordered children", len(oc))
	}
	if oc[0] != e.Children()[0] || oc[1] != e || oc[2] != e.Children()[1] {
		t.Fatal("ordered children out of order")
	}
}

func TestEqualIgnoresMetavarIdentity(t *testing.T) {
	a := MustParse("SUM(?, 1)")
	b := MustParse("SUM(?, 1)")
	if !a.Equal(b) {
		t.Fatal("distinct unassigned metavars should compare equal")
	}
	a.Metavars(true)[0].Assign(Num("2"))
	if a.Equal(b) {
		t.Fatal("assigned vs unassigned should differ")
	}
	b.Metavars(true)[0].Assign(Num("2"))
	if !a.Equal(b) {
		t.Fatal("same assignment should compare equal")
	}
}
