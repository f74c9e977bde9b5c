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

// Package macro runs user-defined editor macros written in
// ECMAScript.  A macro inspects the editor state and emits pattern
// strings (in the expr notation) to insert, letting course authors
// script insertion shortcuts.
package macro

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// InterruptedMessage is the string value of Interrupted.
var InterruptedMessage = "RuntimeError: timeout"

// Interrupted is returned by Run if the script exceeds its time
// budget.
var Interrupted = errors.New(InterruptedMessage)

// DefaultTimeout bounds one macro run.
const DefaultTimeout = 100 * time.Millisecond

// State is what a macro sees of the editor.
type State struct {
	// Shape is the rendered display shape, cursor token included.
	Shape string `json:"shape"`

	// Marked is the kind tag of the marked node, empty if none.
	Marked string `json:"marked"`

	// AtEnd reports whether the cursor sits at the end position.
	AtEnd bool `json:"atEnd"`

	// Unassigned counts the unassigned metavariable slots.
	Unassigned int `json:"unassigned"`
}

// A Macro is one compiled script.
type Macro struct {
	Name string
	Doc  string

	program *goja.Program
}

// Interp owns a session's macros.  Not safe for concurrent use; a
// session runs macros from its own loop.
type Interp struct {
	// Timeout bounds one run.  Zero means DefaultTimeout.
	Timeout time.Duration

	macros map[string]*Macro
}

// NewInterp makes an empty macro interpreter.
func NewInterp() *Interp {
	return &Interp{macros: make(map[string]*Macro)}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles a macro and registers it under name.
func (i *Interp) Compile(name, src string) (*Macro, error) {
	p, err := goja.Compile(name, wrapSrc(src), true)
	if err != nil {
		return nil, err
	}
	m := &Macro{Name: name, program: p}
	i.macros[name] = m
	return m, nil
}

// LoadFile compiles a macro file; the macro's name is the filename's
// base without its extension.
func (i *Interp) LoadFile(filename string) (*Macro, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return i.Compile(name, string(bs))
}

// Names lists the registered macros.
func (i *Interp) Names() []string {
	names := make([]string, 0, len(i.macros))
	for name := range i.macros {
		names = append(names, name)
	}
	return names
}

// Run executes a macro against the given state and returns the
// pattern strings it emitted via out().
//
// The runtime exposes, at _:
//
//	state: the editor State (shape, marked, atEnd, unassigned)
//	out(pattern): emit a pattern string to insert
func (i *Interp) Run(name string, state State) ([]string, error) {
	m, have := i.macros[name]
	if !have {
		return nil, &UnknownMacro{Name: name}
	}

	timeout := i.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var emitted []string

	env := map[string]interface{}{
		"state": map[string]interface{}{
			"shape":      state.Shape,
			"marked":     state.Marked,
			"atEnd":      state.AtEnd,
			"unassigned": state.Unassigned,
		},
	}
	env["out"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		pattern, is := x.(string)
		if !is {
			panic("out() wants a pattern string")
		}
		emitted = append(emitted, pattern)
		return x
	}

	o := goja.New()
	o.Set("_", env)

	timer := time.AfterFunc(timeout, func() {
		o.Interrupt(InterruptedMessage)
	})
	defer timer.Stop()

	if _, err := o.RunProgram(m.program); err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}
	return emitted, nil
}

// UnknownMacro occurs when running a macro that was never compiled.
type UnknownMacro struct {
	Name string
}

func (e *UnknownMacro) Error() string {
	return fmt.Sprintf("unknown macro %q", e.Name)
}
