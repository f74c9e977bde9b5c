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

import "github.com/proofpad/proofpad/expr"

// Rel is the outcome of a precedence comparison.
type Rel int

const (
	// Incomparable: the tags are not co-listed; no constraint.
	Incomparable Rel = iota
	Same
	// Higher: the first tag binds tighter.
	Higher
	Lower
)

// Priorities is an ordered list of precedence classes, tightest
// binding first.  Tags not listed anywhere are incomparable with
// everything.
type Priorities [][]string

// DefaultPriorities returns the built-in precedence table: numeric
// composition > point > multiplicative > additive > relational.
func DefaultPriorities() Priorities {
	return Priorities{
		{expr.CompositeNumber},
		{expr.Point},
		{expr.Mult, expr.Div},
		{expr.Sum, expr.Difference},
		{expr.PropEqual, expr.PropLess, expr.PropGreater,
			expr.PropLeq, expr.PropGeq},
	}
}

// Extend appends classes at the loose end of the table, so course
// configuration can rank operator tags the built-in table has never
// heard of.
func (p Priorities) Extend(classes ...[]string) Priorities {
	return append(p, classes...)
}

// Compare returns the precedence relation of tag a to tag b.
func (p Priorities) Compare(a, b string) Rel {
	if a == "" || b == "" {
		return Incomparable
	}
	aFound, bFound := false, false
	for _, class := range p {
		aIn, bIn := false, false
		for _, tag := range class {
			if tag == a {
				aIn = true
			}
			if tag == b {
				bIn = true
			}
		}
		switch {
		case aIn && bIn:
			return Same
		case aIn:
			if bFound {
				return Lower
			}
			aFound = true
		case bIn:
			if aFound {
				return Higher
			}
			bFound = true
		}
	}
	return Incomparable
}

// canBeLeftChild reports whether a node tagged child may sit as a
// left operand under a node tagged parent: only a strictly tighter
// parent forbids it.
func (p Priorities) canBeLeftChild(parent, child string) bool {
	return p.Compare(parent, child) != Higher
}

// canBeRightChild reports whether a node tagged child may sit as a
// right operand under a node tagged parent: a tighter-or-equal parent
// forbids it (equal priority associates left).
func (p Priorities) canBeRightChild(parent, child string) bool {
	rel := p.Compare(parent, child)
	return rel != Higher && rel != Same
}
