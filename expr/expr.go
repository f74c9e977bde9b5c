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

// Package expr implements the expression trees that the editor
// manipulates: pattern nodes, metavariables (unassigned slots), and
// structural matching.
package expr

// Node kinds.  A kind is an operator tag or one of the special tags
// below.  The set is open: course material can introduce operator
// kinds this package has never heard of.
const (
	Metavar       = "METAVAR"
	BoundVar      = "BOUND_VAR"
	Number        = "NUMBER"
	Point         = "POINT"
	Constant      = "CONSTANT"
	LocalConstant = "LOCAL_CONSTANT"
	Application   = "APPLICATION"

	// GenericNode glues two subexpressions together when no
	// operator relationship is known.
	GenericNode   = "GENERIC_NODE"
	GenericParens = "GENERIC_PARENTHESES"

	CompositeNumber = "COMPOSITE_NUMBER"
	Mult            = "MULT"
	Div             = "DIV"
	Sum             = "SUM"
	Difference      = "DIFFERENCE"
	PropEqual       = "PROP_EQUAL"
	PropLess        = "PROP_<"
	PropGreater     = "PROP_>"
	PropLeq         = "PROP_≤"
	PropGeq         = "PROP_≥"
)

// Info holds a node's auxiliary attributes such as "name" and
// "value".  The value "?" is a joker: it matches anything.
type Info map[string]string

// Copy makes a shallow copy of the Info.
func (i Info) Copy() Info {
	acc := make(Info, len(i))
	for k, v := range i {
		acc[k] = v
	}
	return acc
}

// An Expr is a node of an expression tree.  Children are exclusively
// owned by their parent; types are shared by value equality only.
//
// A node with kind Metavar is an unassigned slot until it is given an
// assignment, after which all structural queries (Kind, Info,
// Children) delegate to the assignee.
//
// An Expr also carries an optional cursor capability: the marked
// package guarantees that at most one node in a tree has its cursor
// set.
type Expr struct {
	kind     string
	info     Info
	children []*Expr
	typ      *Expr

	// assigned is the metavariable slot.  Only meaningful when
	// kind == Metavar.
	assigned *Expr

	// cursor is the rank of the selected item in the node's
	// display shape.  -1 is the "before beginning" sentinel.
	cursor    int
	hasCursor bool
}

// NoType is the sentinel for "type not provided".  It matches any
// type.  Compare with == only.
var NoType = &Expr{kind: "NO_TYPE", info: Info{}}

// New creates a node with the given kind and children.  The node's
// type is NoType.
func New(kind string, children ...*Expr) *Expr {
	return &Expr{
		kind:     kind,
		info:     Info{},
		children: children,
		typ:      NoType,
	}
}

// NewTyped creates a node with an explicit type.
func NewTyped(kind string, typ *Expr, children ...*Expr) *Expr {
	e := New(kind, children...)
	if typ != nil {
		e.typ = typ
	}
	return e
}

// NewMetavar creates a fresh unassigned metavariable of the given
// type (NoType if nil).
func NewMetavar(typ *Expr) *Expr {
	return NewTyped(Metavar, typ)
}

// Num creates a NUMBER node with the given literal value.
func Num(value string) *Expr {
	e := New(Number)
	e.info["value"] = value
	return e
}

// Name creates a named leaf of the given kind (Constant,
// LocalConstant, BoundVar).
func Name(kind, name string) *Expr {
	e := New(kind)
	e.info["name"] = name
	return e
}

// Kind returns the node's effective kind, delegating to the assignee
// when the node is an assigned metavariable.
func (e *Expr) Kind() string {
	if e.assigned != nil {
		return e.assigned.Kind()
	}
	return e.kind
}

// RawKind returns the node's own kind without delegation.
func (e *Expr) RawKind() string {
	return e.kind
}

// Children returns the node's effective children, delegating when
// the node is an assigned metavariable.
func (e *Expr) Children() []*Expr {
	if e.assigned != nil {
		return e.assigned.Children()
	}
	return e.children
}

// Attr returns the effective info attribute for the given key.
func (e *Expr) Attr(key string) string {
	if e.assigned != nil {
		return e.assigned.Attr(key)
	}
	return e.info[key]
}

// SetAttr sets an info attribute, delegating to the assignee.
func (e *Expr) SetAttr(key, value string) {
	if e.assigned != nil {
		e.assigned.SetAttr(key, value)
		return
	}
	e.info[key] = value
}

// Name returns the effective "name" attribute.
func (e *Expr) Name() string { return e.Attr("name") }

// Value returns the effective "value" attribute.
func (e *Expr) Value() string { return e.Attr("value") }

// Type returns the node's type (NoType when not provided).
func (e *Expr) Type() *Expr {
	if e.typ == nil {
		return NoType
	}
	return e.typ
}

// IsMetavar reports whether the node itself is a metavariable
// (regardless of assignment).
func (e *Expr) IsMetavar() bool {
	return e.kind == Metavar
}

// IsAssigned reports whether the node is an assigned metavariable.
func (e *Expr) IsAssigned() bool {
	return e.assigned != nil
}

// Assigned returns the metavariable's assignee, or nil.
func (e *Expr) Assigned() *Expr {
	return e.assigned
}

// Assign fills the metavariable slot.
func (e *Expr) Assign(v *Expr) {
	e.assigned = v
}

// ClearAssignment unassigns a metavariable.  If the metavariable's
// type is itself a metavariable, that type slot is cleared too, since
// assigning a value can imply assignment of its type.
func (e *Expr) ClearAssignment() {
	e.assigned = nil
	if e.typ != nil && e.typ.IsMetavar() {
		e.typ.assigned = nil
	}
}

// CursorPos returns the node's cursor position, if set.
func (e *Expr) CursorPos() (int, bool) {
	return e.cursor, e.hasCursor
}

// IsMarked reports whether this node carries the cursor.
func (e *Expr) IsMarked() bool {
	return e.hasCursor
}

// SetCursor places the cursor at the given shape rank on this node.
// Callers must clear any other cursor in the tree first.
func (e *Expr) SetCursor(pos int) {
	e.cursor = pos
	e.hasCursor = true
}

// ClearCursor removes the cursor from this node.
func (e *Expr) ClearCursor() {
	e.cursor = 0
	e.hasCursor = false
}

// Copy produces a fully independent copy of the subtree, including
// all descendant metavariables with fresh identity.  Assignments,
// types, and cursor state are copied as well.
func (e *Expr) Copy() *Expr {
	if e == nil {
		return nil
	}
	if e == NoType {
		// The sentinel is kept identical so that type sharing
		// survives copies.
		return NoType
	}
	children := make([]*Expr, len(e.children))
	for i, c := range e.children {
		children[i] = c.Copy()
	}
	n := &Expr{
		kind:      e.kind,
		info:      e.info.Copy(),
		children:  children,
		typ:       e.typ.Copy(),
		assigned:  e.assigned.Copy(),
		cursor:    e.cursor,
		hasCursor: e.hasCursor,
	}
	return n
}

// Equal reports structural (value) equality, ignoring cursor state
// and metavariable identity.  Assigned metavariables compare as their
// assignees.  Joker names and values and wildcard kinds compare equal
// to anything, mirroring Match.
func (e *Expr) Equal(other *Expr) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e == NoType || other == NoType {
		return e == other
	}
	if !kindMatches(e.Kind(), other.Kind()) && !kindMatches(other.Kind(), e.Kind()) {
		return false
	}
	if en, on := e.Name(), other.Name(); en != on && en != Joker && on != Joker {
		return false
	}
	if ev, ov := e.Value(), other.Value(); ev != ov && ev != Joker && ov != Joker {
		return false
	}
	ec, oc := e.Children(), other.Children()
	if len(ec) != len(oc) {
		return false
	}
	for i := range ec {
		if !ec[i].Equal(oc[i]) {
			return false
		}
	}
	return e.Type().Equal(other.Type())
}

// Metavars returns the metavariable descendants of e in display
// order, including e itself.  With unassignedOnly, only unassigned
// metavariables are returned.
func (e *Expr) Metavars(unassignedOnly bool) []*Expr {
	var acc []*Expr
	e.metavars(unassignedOnly, &acc)
	return acc
}

func (e *Expr) metavars(unassignedOnly bool, acc *[]*Expr) {
	if e.IsMetavar() && (!unassignedOnly || !e.IsAssigned()) {
		*acc = append(*acc, e)
	}
	for _, c := range e.Children() {
		c.metavars(unassignedOnly, acc)
	}
}

// Marked returns the marked node in e's subtree, if any, traversing
// through metavariable assignments.
func (e *Expr) Marked() *Expr {
	if e.IsMarked() {
		return e
	}
	if e.assigned != nil {
		if m := e.assigned.Marked(); m != nil {
			return m
		}
	}
	for _, c := range e.children {
		if m := c.Marked(); m != nil {
			return m
		}
	}
	return nil
}
