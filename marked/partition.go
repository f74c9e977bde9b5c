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

// partitionedChildren splits a node's proper ordered children into
// three runs relative to the node's own token appearances: left of
// the first appearance, between the first and last appearances, and
// after the last.  An infix node like SUM has one left and one right
// child and no central ones; a node rendered "( c )" has only a
// central child.
func partitionedChildren(e *expr.Expr) (left, central, right []*expr.Expr) {
	appeared := false
	lastSelf := -1
	for _, child := range e.OrderedChildren() {
		if child == e {
			if !appeared {
				appeared = true
			} else {
				lastSelf = len(central)
			}
			continue
		}
		if !appeared {
			left = append(left, child)
		} else {
			central = append(central, child)
		}
	}
	switch {
	case !appeared:
		// The node contributes no token of its own.
		return nil, left, nil
	case lastSelf != -1:
		return left, central[:lastSelf], central[lastSelf:]
	default:
		// A single token appearance: everything after it is right.
		return left, nil, central
	}
}

// partitionedMvars partitions the node's children and expands each
// run into its metavariable descendants, in display order.
func partitionedMvars(e *expr.Expr, unassignedOnly bool) (left, central, right []*expr.Expr) {
	l, c, r := partitionedChildren(e)
	return mvarsOf(l, unassignedOnly), mvarsOf(c, unassignedOnly), mvarsOf(r, unassignedOnly)
}

func mvarsOf(children []*expr.Expr, unassignedOnly bool) []*expr.Expr {
	var acc []*expr.Expr
	for _, child := range children {
		acc = append(acc, child.Metavars(unassignedOnly)...)
	}
	return acc
}
