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

package request

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Code is a tactic tree to send to the prover: a single instruction,
// a sequence run in order, or an or-else node whose alternatives the
// prover tries until one succeeds.  When an alternative succeeds the
// prover emits an EFFECTIVE CODE trace naming it, and SelectOrElse
// narrows the tree accordingly, so the proof history records what
// actually ran.
type Code struct {
	// Instruction is the tactic text of a leaf.
	Instruction string

	// Sequence, when non-empty, chains sub-tactics in order.
	Sequence []*Code

	// Alternatives, when non-empty, makes this an or-else node.
	Alternatives []*Code

	// node is the or-else node number used in traces, assigned by
	// Traced.
	node int
}

// CodeString makes a leaf.
func CodeString(instruction string) *Code {
	return &Code{Instruction: instruction}
}

// AndThen chains tactics to run in order.
func AndThen(steps ...*Code) *Code {
	return &Code{Sequence: steps}
}

// OrElse combines alternatives under an or-else node.
func OrElse(alternatives ...*Code) *Code {
	return &Code{Alternatives: alternatives}
}

// IsOrElse reports whether c itself is an or-else node.
func (c *Code) IsOrElse() bool { return len(c.Alternatives) > 0 }

// HasOrElse reports whether any or-else node remains in the tree.
// Sending proof steps is repeated until this is false.
func (c *Code) HasOrElse() bool {
	if c == nil {
		return false
	}
	if c.IsOrElse() {
		return true
	}
	for _, s := range c.Sequence {
		if s.HasOrElse() {
			return true
		}
	}
	return false
}

// String renders the raw tactic text: sequences joined by commas,
// alternatives by the prover's or-else combinator.
func (c *Code) String() string {
	if c == nil {
		return ""
	}
	switch {
	case c.IsOrElse():
		alts := make([]string, len(c.Alternatives))
		for i, a := range c.Alternatives {
			alts[i] = "`[ " + a.String() + " ]"
		}
		return strings.Join(alts, " <|> ")
	case len(c.Sequence) > 0:
		steps := make([]string, len(c.Sequence))
		for i, s := range c.Sequence {
			steps[i] = s.String()
		}
		return strings.Join(steps, ", ")
	default:
		return c.Instruction
	}
}

// Traced renders the tactic text with each or-else alternative
// followed by a trace of its node and alternative number, so the
// prover's output reveals which alternative ran.  Node numbers are
// assigned in pre-order starting at 1 and stick to the tree, which
// keeps SelectOrElse in step with the traces.
func (c *Code) Traced() string {
	counter := 0
	c.number(&counter)
	return c.traced()
}

func (c *Code) number(counter *int) {
	if c == nil {
		return
	}
	if c.IsOrElse() {
		*counter++
		c.node = *counter
		for _, a := range c.Alternatives {
			a.number(counter)
		}
		return
	}
	for _, s := range c.Sequence {
		s.number(counter)
	}
}

func (c *Code) traced() string {
	switch {
	case c.IsOrElse():
		alts := make([]string, len(c.Alternatives))
		for i, a := range c.Alternatives {
			trace := fmt.Sprintf("trace %q", fmt.Sprintf("EFFECTIVE CODE %d.%d: %s",
				c.node, i, a.String()))
			alts[i] = "`[ " + a.traced() + ", " + trace + " ]"
		}
		return strings.Join(alts, " <|> ")
	case len(c.Sequence) > 0:
		steps := make([]string, len(c.Sequence))
		for i, s := range c.Sequence {
			steps[i] = s.traced()
		}
		return strings.Join(steps, ", ")
	default:
		return c.Instruction
	}
}

// SelectOrElse replaces the or-else node numbered node by its alt-th
// alternative.  It returns the narrowed tree and whether the node was
// found.  The receiver is not modified.
func (c *Code) SelectOrElse(node, alt int) (*Code, bool) {
	if c == nil {
		return nil, false
	}
	if c.IsOrElse() {
		if c.node == node {
			if alt < 0 || alt >= len(c.Alternatives) {
				return c, false
			}
			return c.Alternatives[alt], true
		}
		alts, found := selectIn(c.Alternatives, node, alt)
		if !found {
			return c, false
		}
		return &Code{Alternatives: alts, node: c.node}, true
	}
	if len(c.Sequence) > 0 {
		steps, found := selectIn(c.Sequence, node, alt)
		if !found {
			return c, false
		}
		return &Code{Sequence: steps}, true
	}
	return c, false
}

func selectIn(children []*Code, node, alt int) ([]*Code, bool) {
	out := make([]*Code, len(children))
	found := false
	for i, child := range children {
		narrowed, ok := child.SelectOrElse(node, alt)
		out[i] = narrowed
		found = found || ok
	}
	return out, found
}

var effectiveCodeRe = regexp.MustCompile(`EFFECTIVE CODE (\d+)\.(\d+)`)

// ParseEffectiveCode extracts the node and alternative numbers from
// an EFFECTIVE CODE trace line.
func ParseEffectiveCode(line string) (node, alt int, ok bool) {
	m := effectiveCodeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	node, _ = strconv.Atoi(m[1])
	alt, _ = strconv.Atoi(m[2])
	return node, alt, true
}
