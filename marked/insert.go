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

package marked

import (
	"strings"

	"github.com/proofpad/proofpad/expr"
)

// An assignment is a staged metavariable binding.  Insertion attempts
// stage every tree mutation and commit only on success, so a failed
// attempt leaves the tree observably unchanged.
type assignment struct {
	mvar  *expr.Expr
	value *expr.Expr
}

// Insert tries to splice fragment into the tree just after the
// cursor, and reports success.  The fragment itself is never mutated;
// each attempt works on its own copy.
//
// Attempts run at two anchors in turn, the marked node and the node
// just right of the cursor, walking up through ancestors when an
// anchor refuses the fragment.  If no anchor accepts it, adjacent
// numeric fragments are merged by digit concatenation; failing that,
// a non-numeric fragment is force-inserted under a generic grouping
// node.  On success the cursor moves to the first unassigned slot of
// the inserted fragment, else to an unassigned sibling, else stays
// just after the fragment.
func (t *Tree) Insert(fragment *expr.Expr) bool {
	marked := t.Marked()
	if marked == nil {
		return false
	}

	for _, anchor := range []*expr.Expr{marked, t.NextAfterMarked()} {
		if anchor == nil {
			continue
		}
		if anchor.Kind() == expr.GenericNode && anchor.IsMetavar() && anchor.IsAssigned() {
			if t.substituteGenericNode(anchor, fragment.Copy()) {
				t.moveAfterInsert(anchor)
				return true
			}
		}

		mvar, parent := anchor, t.ParentOf(anchor)
		for mvar != nil {
			if mvar.IsMetavar() {
				if t.insertIfYouCan(fragment.Copy(), mvar, parent, false) {
					t.moveAfterInsert(mvar)
					return true
				}
			}
			mvar, parent = parent, t.ParentOf(parent)
		}
	}

	if merged := t.insertNumber(fragment); merged != nil {
		t.SetCursorAtMainSymbol(merged)
		return true
	}

	return t.GenericInsert(fragment)
}

// insertIfYouCan attempts one insertion of frag at the metavariable
// mvar, whose parent (possibly nil) is parentMvar.  All tree
// mutations are staged and committed only if the whole attempt
// succeeds.  frag is the attempt's private copy and may be consumed.
func (t *Tree) insertIfYouCan(frag, mvar, parentMvar *expr.Expr, checkTypes bool) bool {
	var assignments []assignment
	var toClear []*expr.Expr

	if !t.priorityTests(frag, mvar, parentMvar) {
		return false
	}

	// Re-home the anchor's current value under one of the
	// fragment's own slots.
	if mvar.IsAssigned() &&
		!t.reassign(mvar, frag, &assignments, &toClear, checkTypes) {
		return false
	}

	// Last test: can the emptied slot take the fragment?  On a type
	// mismatch the fragment is assigned anyway unless strict
	// checking was requested.
	if !typeMatches(mvar.Type(), frag.Type()) && checkTypes {
		return false
	}
	assignments = append(assignments, assignment{mvar, frag})

	for _, c := range toClear {
		c.ClearAssignment()
	}
	for _, a := range assignments {
		a.mvar.Assign(a.value)
	}
	return true
}

// priorityTests checks precedence compatibility both ways: frag
// taking mvar's place under parentMvar (test I), and mvar's value
// becoming a child of frag (test II, sided by the cursor).
func (t *Tree) priorityTests(frag, mvar, parentMvar *expr.Expr) bool {
	if parentMvar != nil {
		left, _, right := partitionedChildren(parentMvar)
		ok := true
		switch {
		case containsNode(left, mvar):
			ok = t.prio.canBeLeftChild(parentMvar.Kind(), frag.Kind())
		case containsNode(right, mvar):
			ok = t.prio.canBeRightChild(parentMvar.Kind(), frag.Kind())
		}
		if !ok {
			return false
		}
	}

	if t.AppearsLeftOfCursor(mvar) {
		return t.prio.canBeLeftChild(frag.Kind(), mvar.Kind())
	}
	return t.prio.canBeRightChild(frag.Kind(), mvar.Kind())
}

// reassign moves mvar's current value into one of frag's unassigned
// slots, chosen by which side of the cursor mvar appears on.  When
// the move strands some of the value's own children on the wrong
// side of frag, those are walked down frag's opposite branch and
// re-homed there; any child that cannot be placed aborts the attempt.
func (t *Tree) reassign(mvar, frag *expr.Expr, assignments *[]assignment,
	toClear *[]*expr.Expr, checkTypes bool) bool {

	left := t.AppearsLeftOfCursor(mvar)
	right := t.AppearsRightOfCursor(mvar)
	leftMvars, centralMvars, rightMvars := partitionedMvars(frag, true)
	value := mvar.Assigned()

	var leftIns, rightIns, centralIns bool
	if left {
		leftIns = assignToFirst(leftMvars, value, assignments, checkTypes)
	}
	if !leftIns && right {
		rightIns = assignToFirst(rightMvars, value, assignments, checkTypes)
	}
	if !leftIns && !rightIns {
		centralIns = assignToFirst(centralMvars, value, assignments, checkTypes)
	}
	if !leftIns && !rightIns && !centralIns {
		return false
	}
	if centralIns {
		return true
	}

	var pool, bad []*expr.Expr
	if leftIns {
		pool, bad = rightMvars, t.firstRightDescendants(mvar)
	} else {
		pool, bad = leftMvars, t.firstLeftDescendants(mvar)
	}

	for _, child := range bad {
		displaced := child.Assigned()
		if displaced == nil {
			continue
		}
		placed := false
		for len(pool) > 0 {
			slot := pool[0]
			pool = pool[1:]
			if slot.Match(displaced) {
				placed = true
			} else if !checkTypes {
				*assignments = append(*assignments, assignment{slot, displaced})
				placed = true
			}
			if placed {
				*toClear = append(*toClear, child)
				break
			}
		}
		if !placed {
			return false
		}
	}
	return true
}

// assignToFirst stages value into the first slot that takes it.  A
// slot whose type refuses the value still takes it unless strict
// checking was requested.
func assignToFirst(slots []*expr.Expr, value *expr.Expr,
	assignments *[]assignment, checkTypes bool) bool {

	for _, slot := range slots {
		if slot.Match(value) {
			return true
		}
		if !checkTypes {
			*assignments = append(*assignments, assignment{slot, value})
			return true
		}
	}
	return false
}

// firstRightDescendants returns the descendants of mvar's value that
// are the first in their lineage to appear strictly right of the
// cursor, top to bottom: right children, plus recursively the right
// descendants of the last left child.  These are the nodes stranded
// when mvar's value moves to a slot left of the cursor.
func (t *Tree) firstRightDescendants(mvar *expr.Expr) []*expr.Expr {
	value := mvar.Assigned()
	if value == nil {
		return nil
	}
	var leftChildren, rightChildren []*expr.Expr
	for _, c := range value.Children() {
		if !t.AppearsRightOfCursor(c) {
			leftChildren = append(leftChildren, c)
		}
		if !t.AppearsLeftOfCursor(c) {
			rightChildren = append(rightChildren, c)
		}
	}
	var acc []*expr.Expr
	if len(leftChildren) > 0 {
		acc = t.firstRightDescendants(leftChildren[len(leftChildren)-1])
	}
	return append(acc, rightChildren...)
}

// firstLeftDescendants is the mirror image: left children plus the
// left descendants of the first right child.
func (t *Tree) firstLeftDescendants(mvar *expr.Expr) []*expr.Expr {
	value := mvar.Assigned()
	if value == nil {
		return nil
	}
	var leftChildren, rightChildren []*expr.Expr
	for _, c := range value.Children() {
		if !t.AppearsRightOfCursor(c) {
			leftChildren = append(leftChildren, c)
		}
		if !t.AppearsLeftOfCursor(c) {
			rightChildren = append(rightChildren, c)
		}
	}
	acc := leftChildren
	if len(rightChildren) > 0 {
		acc = append(acc, t.firstLeftDescendants(rightChildren[0])...)
	}
	return acc
}

// insertNumber merges a NUMBER or POINT fragment into the number
// adjacent to the cursor by digit concatenation, refusing a second
// decimal point.  It returns the metavariable holding the merged
// number, or nil.
func (t *Tree) insertNumber(frag *expr.Expr) *expr.Expr {
	var v string
	switch frag.Kind() {
	case expr.Number:
		v = frag.Value()
	case expr.Point:
		v = "."
	default:
		return nil
	}

	mvar := t.Marked()
	if mvar != nil && mvar.IsAssigned() && mvar.Assigned().Kind() == expr.Number {
		leftNb := mvar.Assigned()
		if merged, ok := mergeNumbers(leftNb.Value(), v); ok {
			leftNb.SetAttr("value", merged)
			return mvar
		}
		return nil
	}

	mvar = t.NextAfterMarked()
	if mvar != nil && mvar.IsAssigned() && mvar.Assigned().Kind() == expr.Number {
		rightNb := mvar.Assigned()
		if merged, ok := mergeNumbers(v, rightNb.Value()); ok {
			rightNb.SetAttr("value", merged)
			return mvar
		}
	}
	return nil
}

func mergeNumbers(a, b string) (string, bool) {
	merged := a + b
	if strings.Count(merged, ".") > 1 {
		return "", false
	}
	return merged, true
}

// GenericInsert force-inserts a non-numeric fragment at the marked
// metavariable by gluing the slot's current value and the fragment
// under a two-slot generic grouping node.  Used when no operator
// relationship between the two is known.
func (t *Tree) GenericInsert(fragment *expr.Expr) bool {
	switch fragment.Kind() {
	case expr.Number, expr.Point:
		// Numbers only ever merge; grouping digits would produce
		// nonsense like 3•5.
		return false
	}
	mvar := t.Marked()
	if mvar == nil || !mvar.IsMetavar() {
		return false
	}

	frag := fragment.Copy()
	var generic *expr.Expr
	if old := mvar.Assigned(); old != nil {
		mvar.ClearAssignment()
		generic = genericNode(old, frag)
	} else {
		generic = genericNode(frag, nil)
	}
	mvar.Assign(generic)
	t.SetCursorAtMainSymbol(generic.Children()[1])
	return true
}

func genericNode(left, right *expr.Expr) *expr.Expr {
	g := expr.New(expr.GenericNode, expr.NewMetavar(nil), expr.NewMetavar(nil))
	if left != nil {
		g.Children()[0].Assign(left)
	}
	if right != nil {
		g.Children()[1].Assign(right)
	}
	return g
}

// substituteGenericNode replaces the generic grouping node assigned
// to mvar by frag, re-homing the grouping node's two operands into
// frag's own slots by side.
func (t *Tree) substituteGenericNode(mvar, frag *expr.Expr) bool {
	cs := mvar.Children()
	if len(cs) != 2 {
		return false
	}
	mo1, mo2 := cs[0].Assigned(), cs[1].Assigned()
	leftMvars, centralMvars, rightMvars := partitionedMvars(frag, true)

	var assignments []assignment
	if mo1 != nil {
		switch {
		case len(leftMvars) > 0:
			assignments = append(assignments, assignment{leftMvars[0], mo1})
		case len(centralMvars) > 0:
			assignments = append(assignments, assignment{centralMvars[0], mo1})
			centralMvars = centralMvars[1:]
		default:
			return false
		}
	}
	if mo2 != nil {
		switch {
		case len(rightMvars) > 0:
			assignments = append(assignments, assignment{rightMvars[0], mo2})
		case len(centralMvars) > 0:
			assignments = append(assignments, assignment{centralMvars[0], mo2})
			centralMvars = centralMvars[1:]
		default:
			return false
		}
	}

	for _, a := range assignments {
		a.mvar.Assign(a.value)
	}
	mvar.Assign(frag)
	return true
}

// typeMatches reports whether a slot of type pattern can take a value
// of type target.  The check stages nothing: it runs on a copy of the
// pattern.
func typeMatches(pattern, target *expr.Expr) bool {
	return pattern.Copy().Match(target)
}

func containsNode(nodes []*expr.Expr, n *expr.Expr) bool {
	for _, x := range nodes {
		if x == n {
			return true
		}
	}
	return false
}
