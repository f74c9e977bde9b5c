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

// Joker in a name or value attribute matches anything.
const Joker = "?"

// metaKinds groups operator tags under a wildcard tag.  A pattern
// node with a "*" kind matches any of the listed kinds.
var metaKinds = map[string][]string{
	"*INEQUALITY": {PropLess, PropGreater, PropLeq, PropGeq},
	"*EQUALITY":   {PropEqual, PropLess, PropGreater, PropLeq, PropGeq},
}

// A binding stages a metavariable assignment during matching.
type binding struct {
	mvar  *Expr
	value *Expr
}

// Match attempts structural unification of the pattern e against the
// concrete expression target.  On success all metavariables
// encountered are assigned to their matched subtrees and Match
// reports true.  On failure no assignment is performed: staged
// bindings are discarded, never committed (atomic match).
func (e *Expr) Match(target *Expr) bool {
	var binds []binding
	if !e.matchInto(target, &binds) {
		return false
	}
	for _, b := range binds {
		b.mvar.assigned = b.value
	}
	return true
}

// matchInto is the staged-assignment matcher.  Bindings accumulate
// in binds; the caller commits them only after the whole match
// succeeds.
func (e *Expr) matchInto(target *Expr, binds *[]binding) bool {
	// NoType matches anything in either direction; this also
	// stops the type recursion.
	if e == NoType || target == NoType {
		return true
	}

	if e.IsMetavar() && !e.IsAssigned() {
		if prev := staged(e, *binds); prev != nil {
			return prev.Equal(target)
		}
		// Types must match before the slot is filled.
		if !e.Type().matchInto(target.Type(), binds) {
			return false
		}
		*binds = append(*binds, binding{e, target})
		return true
	}

	if !kindMatches(e.Kind(), target.Kind()) {
		return false
	}
	if name := e.Name(); name != "" && name != Joker && name != target.Name() {
		return false
	}
	if value := e.Value(); value != "" && value != Joker && value != target.Value() {
		return false
	}
	if !e.Type().matchInto(target.Type(), binds) {
		return false
	}

	ec, tc := e.Children(), target.Children()
	if len(ec) != len(tc) {
		return false
	}
	for i := range ec {
		if !ec[i].matchInto(tc[i], binds) {
			return false
		}
	}
	return true
}

// staged returns the value already staged for the given metavariable,
// if any.
func staged(mvar *Expr, binds []binding) *Expr {
	for _, b := range binds {
		if b.mvar == mvar {
			return b.value
		}
	}
	return nil
}

func kindMatches(pattern, target string) bool {
	if pattern == target {
		return true
	}
	group, ok := metaKinds[pattern]
	if !ok {
		return false
	}
	for _, k := range group {
		if k == target {
			return true
		}
	}
	return false
}
