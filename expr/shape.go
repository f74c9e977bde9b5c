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

import "strings"

// A ShapeItem is one element of a node's display shape: either a
// literal token or a reference to a child slot.
type ShapeItem struct {
	// Tok is the literal token.  Empty when the item is a child
	// reference.
	Tok string

	// Child is the index of the referenced child.  Only
	// meaningful when Tok is empty.
	Child int
}

func tok(s string) ShapeItem { return ShapeItem{Tok: s} }
func child(i int) ShapeItem  { return ShapeItem{Child: i} }

// IsTok reports whether the item is a literal token.
func (si ShapeItem) IsTok() bool { return si.Tok != "" }

// infixSymbols maps binary operator kinds to their display token.
var infixSymbols = map[string]string{
	Sum:         "+",
	Difference:  "−",
	Mult:        "·",
	Div:         "/",
	PropEqual:   "=",
	PropLess:    "<",
	PropGreater: ">",
	PropLeq:     "≤",
	PropGeq:     "≥",
	GenericNode: "•",

	// Juxtaposition of digit groups.
	CompositeNumber: " ",
}

// MetavarToken is the display token of an unassigned slot.
const MetavarToken = "□"

// Shape returns the node's display shape: the fixed ordered list of
// literal tokens and child slots used to render the node.  Assigned
// metavariables take the shape of their assignee.
func (e *Expr) Shape() []ShapeItem {
	if e.assigned != nil {
		return e.assigned.Shape()
	}
	kind := e.kind
	if sym, ok := infixSymbols[kind]; ok {
		return []ShapeItem{child(0), tok(sym), child(1)}
	}
	switch kind {
	case Metavar:
		return []ShapeItem{tok(MetavarToken)}
	case Number:
		return []ShapeItem{tok(e.info["value"])}
	case Point:
		return []ShapeItem{tok(".")}
	case Constant, LocalConstant, BoundVar:
		name := e.info["name"]
		if name == "" {
			name = "?"
		}
		return []ShapeItem{tok(name)}
	case GenericParens:
		return []ShapeItem{tok("("), child(0), tok(")")}
	case Application:
		// f(x)
		return []ShapeItem{child(0), tok("("), child(1), tok(")")}
	}
	// Unknown kinds render function-style: KIND(c0, c1, ...).
	shape := []ShapeItem{tok(kind), tok("(")}
	for i := range e.children {
		if i > 0 {
			shape = append(shape, tok(", "))
		}
		shape = append(shape, child(i))
	}
	return append(shape, tok(")"))
}

// MainSymbol returns the rank, in the node's shape, of its main
// symbol: the operator token for infix nodes, else the first literal
// token.
func (e *Expr) MainSymbol() int {
	shape := e.Shape()
	first := -1
	for i, si := range e.Shape() {
		if si.Tok == "" {
			continue
		}
		if first < 0 {
			first = i
		}
		// An operator token strictly between two child slots is
		// the main symbol.
		if i > 0 && i < len(shape)-1 && shape[i-1].Tok == "" && shape[i+1].Tok == "" {
			return i
		}
	}
	if first < 0 {
		return 0
	}
	return first
}

// OrderedChildren expands the node's shape into the sequence of
// nodes contributing to the display: the node itself for each literal
// token, and the referenced child for each child slot.  A node may
// therefore appear several times (e.g. before and after its own child
// for a parenthesized shape).
func (e *Expr) OrderedChildren() []*Expr {
	shape := e.Shape()
	acc := make([]*Expr, 0, len(shape))
	cs := e.Children()
	for _, si := range shape {
		if si.Tok != "" {
			acc = append(acc, e)
		} else if si.Child < len(cs) {
			acc = append(acc, cs[si.Child])
		} else {
			acc = append(acc, e)
		}
	}
	return acc
}

// String renders the tree as a flat string.  For diagnostics only;
// clients that display expressions should use the marked package's
// DisplayShape.
func (e *Expr) String() string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

func (e *Expr) render(b *strings.Builder) {
	cs := e.Children()
	for _, si := range e.Shape() {
		if si.Tok != "" {
			b.WriteString(si.Tok)
		} else if si.Child < len(cs) {
			cs[si.Child].render(b)
		}
	}
}
