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

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse builds an expression from a compact pattern notation:
//
//	SUM(?1, NUMBER/value=1)
//
// An element is a kind, optionally followed by /key=value attribute
// pairs and a parenthesized child list.  "?" is a fresh unassigned
// metavariable; "?n" names one, and a name reused within a single
// Parse call yields the same node.  A bare numeric literal is
// shorthand for NUMBER/value=<literal>.
//
// This notation appears in macro pattern libraries and in the shell;
// it is not a prover wire format.
func Parse(s string) (*Expr, error) {
	p := &parser{src: s, mvars: map[string]*Expr{}}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.ws()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("trailing input at %d in %q", p.pos, s)
	}
	return e, nil
}

// MustParse is Parse for tests and static pattern tables.
func MustParse(s string) *Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src   string
	pos   int
	mvars map[string]*Expr
}

func (p *parser) ws() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) expr() (*Expr, error) {
	p.ws()
	switch {
	case p.pos >= len(p.src):
		return nil, fmt.Errorf("unexpected end of input in %q", p.src)
	case p.peek() == '?':
		p.pos++
		name := p.ident()
		if name == "" {
			return NewMetavar(nil), nil
		}
		if mv, have := p.mvars[name]; have {
			return mv, nil
		}
		mv := NewMetavar(nil)
		p.mvars[name] = mv
		return mv, nil
	case unicode.IsDigit(rune(p.peek())):
		return Num(p.number()), nil
	}

	kind := p.ident()
	if kind == "" {
		return nil, fmt.Errorf("expected element at %d in %q", p.pos, p.src)
	}
	info := Info{}
	for p.peek() == '/' {
		p.pos++
		key := p.ident()
		if key == "" || p.peek() != '=' {
			return nil, fmt.Errorf("malformed attribute at %d in %q", p.pos, p.src)
		}
		p.pos++
		info[key] = p.value()
	}

	var children []*Expr
	if p.peek() == '(' {
		p.pos++
		for {
			c, err := p.expr()
			if err != nil {
				return nil, err
			}
			children = append(children, c)
			p.ws()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ) at %d in %q", p.pos, p.src)
		}
		p.pos++
	}

	e := New(kind, children...)
	e.info = info
	return e, nil
}

// ident consumes a kind, attribute key, or metavariable name: letters,
// digits, and the punctuation used by operator tags.
func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			p.pos++
			continue
		}
		// Operator tags such as PROP_< embed comparison symbols,
		// and the ≤ ≥ tags are multibyte.
		if strings.ContainsRune("<>", r) || p.src[p.pos] >= 0x80 {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// value consumes an attribute value: anything up to the next
// structural character.
func (p *parser) value() string {
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("/(),", rune(p.src[p.pos])) {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

func (p *parser) number() string {
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.') {
		p.pos++
	}
	return p.src[start:p.pos]
}
