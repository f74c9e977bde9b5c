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

package macro

import (
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/proofpad/proofpad/expr"
)

// A Library is a named set of insertable pattern fragments, usually
// one per course.  Patterns are in the expr notation.
type Library struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Doc      string            `json:"doc,omitempty" yaml:"doc,omitempty"`
	Patterns map[string]string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
}

// LoadLibrary reads a YAML pattern library.
func LoadLibrary(filename string) (*Library, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseLibrary(bs)
}

// ParseLibrary parses YAML pattern-library source.  Every pattern is
// checked at load time so a course file cannot break insertion later.
func ParseLibrary(bs []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(bs, &lib); err != nil {
		return nil, err
	}
	for name, pattern := range lib.Patterns {
		if _, err := expr.Parse(pattern); err != nil {
			return nil, &BadPattern{Library: lib.Name, Name: name, Err: err}
		}
	}
	return &lib, nil
}

// Fragment parses a fresh copy of the named pattern.  Each call
// returns a new tree, so inserting a fragment twice never aliases
// nodes.
func (l *Library) Fragment(name string) (*expr.Expr, error) {
	pattern, have := l.Patterns[name]
	if !have {
		return nil, &UnknownPattern{Library: l.Name, Name: name}
	}
	return expr.Parse(pattern)
}

// Names lists the library's patterns.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Patterns))
	for name := range l.Patterns {
		names = append(names, name)
	}
	return names
}

// UnknownPattern occurs when asking a library for a pattern it does
// not have.
type UnknownPattern struct {
	Library string
	Name    string
}

func (e *UnknownPattern) Error() string {
	return "unknown pattern " + e.Name + " in library " + e.Library
}

// BadPattern occurs at load time when a library pattern does not
// parse.
type BadPattern struct {
	Library string
	Name    string
	Err     error
}

func (e *BadPattern) Error() string {
	return "bad pattern " + e.Name + " in library " + e.Library + ": " + e.Err.Error()
}

func (e *BadPattern) Unwrap() error { return e.Err }
