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

// Package marked implements the marked-tree editor: a cursor over the
// display order of an expression tree, and the priority-driven
// insertion engine that splices new fragments in at the cursor.
package marked

import "github.com/proofpad/proofpad/expr"

// A Tree is an expression tree with at most one marked node.  The
// marked node's cursor position is a rank in that node's display
// shape; the pair (node, rank) identifies one spot in the left-to-
// right display order of the whole tree.
//
// Tree methods are not safe for concurrent use.  A tree belongs to
// one editing session and is driven from a single goroutine.
type Tree struct {
	root *expr.Expr
	prio Priorities
}

// NewTree makes a marked tree rooted at root, with the default
// priority table.  If no node is marked, the root is marked at its
// main symbol.
func NewTree(root *expr.Expr) *Tree {
	return NewTreeWithPriorities(root, DefaultPriorities())
}

// NewTreeWithPriorities is NewTree with an extended priority table
// (see Priorities.Extend).
func NewTreeWithPriorities(root *expr.Expr, prio Priorities) *Tree {
	t := &Tree{root: root, prio: prio}
	if t.Marked() == nil {
		t.SetCursorAtMainSymbol(root)
	}
	return t
}

// Root returns the tree's root node.
func (t *Tree) Root() *expr.Expr { return t.root }

// Marked returns the tree's marked node, or nil.
func (t *Tree) Marked() *expr.Expr { return t.root.Marked() }

// totalAndCursorList flattens the tree's display into a sequence of
// (node, local cursor rank) pairs: one pair per unbreakable token,
// where the rank is the token's index in the owning node's shape.  A
// node appears once per literal token of its shape, so a
// parenthesized node appears both before and after its child.
//
// The sequence is the canonical left-to-right edit order.  It is
// recomputed on every call: tree mutations invalidate any flattening,
// so indices are never cached across calls.
func (t *Tree) totalAndCursorList() ([]*expr.Expr, []int) {
	var nodes []*expr.Expr
	var cursors []int
	flatten(t.root, &nodes, &cursors)
	return nodes, cursors
}

func flatten(e *expr.Expr, nodes *[]*expr.Expr, cursors *[]int) {
	cs := e.Children()
	for i, si := range e.Shape() {
		if si.IsTok() || si.Child >= len(cs) {
			*nodes = append(*nodes, e)
			*cursors = append(*cursors, i)
		} else {
			flatten(cs[si.Child], nodes, cursors)
		}
	}
}

// currentIndex returns the index of the marked (node, rank) pair in
// the flattened display order, or -1 when the cursor sits at the
// before-beginning sentinel.
func (t *Tree) currentIndex() int {
	marked := t.Marked()
	if marked == nil {
		return -1
	}
	pos, _ := marked.CursorPos()
	nodes, cursors := t.totalAndCursorList()
	for i, n := range nodes {
		if n == marked && cursors[i] == pos {
			return i
		}
	}
	return -1
}

// SetCursorAt moves the mark to the given node at the given shape
// rank, unmarking the previous holder.
func (t *Tree) SetCursorAt(node *expr.Expr, pos int) {
	if m := t.Marked(); m != nil {
		m.ClearCursor()
	}
	node.SetCursor(pos)
}

// SetCursorAtMainSymbol moves the mark to the node's main symbol.
func (t *Tree) SetCursorAtMainSymbol(node *expr.Expr) {
	t.SetCursorAt(node, node.MainSymbol())
}

// GoToBeginning puts the cursor at the before-beginning sentinel.
func (t *Tree) GoToBeginning() {
	t.SetCursorAt(t.root, -1)
}

// GoToEnd puts the cursor on the last element of the display order.
func (t *Tree) GoToEnd() {
	nodes, cursors := t.totalAndCursorList()
	if len(nodes) == 0 {
		return
	}
	t.SetCursorAt(nodes[len(nodes)-1], cursors[len(cursors)-1])
}

// AtBeginning reports whether the cursor is at the before-beginning
// sentinel.
func (t *Tree) AtBeginning() bool {
	m := t.Marked()
	if m == nil {
		return false
	}
	pos, _ := m.CursorPos()
	return pos == -1
}

// AtEnd reports whether the cursor is on the last display element.
func (t *Tree) AtEnd() bool {
	nodes, cursors := t.totalAndCursorList()
	if len(nodes) == 0 {
		return false
	}
	m := t.Marked()
	if m == nil {
		return false
	}
	pos, _ := m.CursorPos()
	return m == nodes[len(nodes)-1] && pos == cursors[len(cursors)-1]
}

// IncreaseCursor moves the cursor one element right in the display
// order; clamped at the end.
func (t *Tree) IncreaseCursor() {
	nodes, cursors := t.totalAndCursorList()
	idx := t.currentIndex()
	if idx < len(nodes)-1 {
		t.SetCursorAt(nodes[idx+1], cursors[idx+1])
	}
}

// DecreaseCursor moves the cursor one element left; at the left edge
// it falls back to the before-beginning sentinel.
func (t *Tree) DecreaseCursor() {
	nodes, cursors := t.totalAndCursorList()
	idx := t.currentIndex()
	if idx > 0 && idx < len(nodes) {
		t.SetCursorAt(nodes[idx-1], cursors[idx-1])
	} else {
		t.GoToBeginning()
	}
}

// NextAfterMarked returns the node just right of the cursor, or nil
// at the end.
func (t *Tree) NextAfterMarked() *expr.Expr {
	nodes, _ := t.totalAndCursorList()
	idx := t.currentIndex()
	if idx < len(nodes)-1 {
		return nodes[idx+1]
	}
	return nil
}

// ParentOf returns the parent of descendant within the tree, walking
// through metavariable assignments, or nil for the root or a node not
// in the tree.
func (t *Tree) ParentOf(descendant *expr.Expr) *expr.Expr {
	if descendant == nil {
		return nil
	}
	return parentOf(t.root, descendant)
}

func parentOf(e, descendant *expr.Expr) *expr.Expr {
	if e == descendant {
		return nil
	}
	for _, c := range e.Children() {
		if c == descendant {
			return e
		}
		if p := parentOf(c, descendant); p != nil {
			return p
		}
	}
	return nil
}

// MoveUp moves the mark to the parent of the marked node, if any, and
// returns the new marked node.
func (t *Tree) MoveUp() *expr.Expr {
	m := t.Marked()
	if m == nil {
		return nil
	}
	parent := t.ParentOf(m)
	if parent == nil {
		return nil
	}
	t.SetCursorAtMainSymbol(parent)
	return parent
}

// NextUnassigned returns the first unassigned metavariable strictly
// right of the cursor, or nil.
func (t *Tree) NextUnassigned() *expr.Expr {
	nodes, _ := t.totalAndCursorList()
	idx := t.currentIndex()
	for _, n := range nodes[idx+1:] {
		if n.IsMetavar() && !n.IsAssigned() {
			return n
		}
	}
	return nil
}

// PreviousUnassigned returns the last unassigned metavariable
// strictly left of the cursor, or nil.
func (t *Tree) PreviousUnassigned() *expr.Expr {
	nodes, _ := t.totalAndCursorList()
	idx := t.currentIndex()
	if idx < 0 {
		return nil
	}
	if idx >= len(nodes) {
		idx = len(nodes)
	}
	var found *expr.Expr
	for _, n := range nodes[:idx] {
		if n.IsMetavar() && !n.IsAssigned() {
			found = n
		}
	}
	return found
}

// MoveRightToNextUnassigned moves the mark to the next unassigned
// metavariable.  The cursor is unchanged when there is none.
func (t *Tree) MoveRightToNextUnassigned() *expr.Expr {
	mvar := t.NextUnassigned()
	if mvar != nil {
		t.SetCursorAtMainSymbol(mvar)
	}
	return mvar
}

// MoveLeftToPreviousUnassigned moves the mark to the previous
// unassigned metavariable.  The cursor is unchanged when there is
// none.
func (t *Tree) MoveLeftToPreviousUnassigned() *expr.Expr {
	mvar := t.PreviousUnassigned()
	if mvar != nil {
		t.SetCursorAtMainSymbol(mvar)
	}
	return mvar
}

// AppearsLeftOfCursor reports whether other has an appearance at or
// left of the cursor.  An ancestor of the marked node can appear on
// both sides.
func (t *Tree) AppearsLeftOfCursor(other *expr.Expr) bool {
	nodes, _ := t.totalAndCursorList()
	idx := t.currentIndex()
	for _, n := range nodes[:idx+1] {
		if n == other {
			return true
		}
	}
	return false
}

// AppearsRightOfCursor reports whether other has an appearance
// strictly right of the cursor.
func (t *Tree) AppearsRightOfCursor(other *expr.Expr) bool {
	nodes, _ := t.totalAndCursorList()
	idx := t.currentIndex()
	for _, n := range nodes[idx+1:] {
		if n == other {
			return true
		}
	}
	return false
}

// moveAfterInsert re-marks the tree after an insertion at mvar: the
// first unassigned metavariable below the inserted fragment if any,
// else the first unassigned sibling, else mvar itself (cursor just
// after the fragment).
func (t *Tree) moveAfterInsert(mvar *expr.Expr) *expr.Expr {
	for _, child := range mvar.OrderedChildren() {
		if child == mvar {
			continue
		}
		if child.IsMetavar() && !child.IsAssigned() {
			t.SetCursorAt(child, 0)
			return child
		}
	}

	if parent := t.ParentOf(mvar); parent != nil {
		for _, child := range parent.OrderedChildren() {
			if child == parent {
				continue
			}
			if child.IsMetavar() && !child.IsAssigned() {
				t.SetCursorAt(child, 0)
				return child
			}
		}
	}

	t.SetCursorAtMainSymbol(mvar)
	return mvar
}

// DeleteAtCursor clears the assignment of the marked metavariable
// (and of its metavariable type slot, if any), then steps the cursor
// one element left.  It reports whether anything was deleted.
func (t *Tree) DeleteAtCursor() bool {
	m := t.Marked()
	if m == nil || !m.IsMetavar() || !m.IsAssigned() {
		return false
	}
	m.ClearAssignment()
	t.SetCursorAt(m, 0)
	t.DecreaseCursor()
	return true
}

// DisplayShape renders the tree for the display layer: the flattened
// token sequence with CursorToken spliced in just after the marked
// element.
func (t *Tree) DisplayShape() []string {
	nodes, cursors := t.totalAndCursorList()
	idx := t.currentIndex()
	acc := make([]string, 0, len(nodes)+1)
	if idx < 0 {
		acc = append(acc, CursorToken)
	}
	for i, n := range nodes {
		shape := n.Shape()
		pos := cursors[i]
		if pos < len(shape) {
			acc = append(acc, shape[pos].Tok)
		}
		if i == idx {
			acc = append(acc, CursorToken)
		}
	}
	return acc
}

// CursorToken marks the cursor spot in DisplayShape output.
const CursorToken = "‸"
