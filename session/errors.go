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

package session

import "fmt"

// CannotInsert occurs when a fragment fits nowhere at the cursor.
type CannotInsert struct {
	Pattern string
}

func (e *CannotInsert) Error() string {
	return fmt.Sprintf("cannot insert %q at the cursor", e.Pattern)
}

// CannotDelete occurs when there is nothing assigned at the cursor.
type CannotDelete struct{}

func (e *CannotDelete) Error() string {
	return "nothing to delete at the cursor"
}

// UnknownAction occurs when a client sends an op the session does not
// know.
type UnknownAction struct {
	Op string
}

func (e *UnknownAction) Error() string {
	return fmt.Sprintf("unknown action %q", e.Op)
}

// UnknownLibrary occurs when inserting from a library that was never
// loaded.
type UnknownLibrary struct {
	Name string
}

func (e *UnknownLibrary) Error() string {
	return fmt.Sprintf("unknown pattern library %q", e.Name)
}

// NothingToUndo occurs when the undo stack is empty.
type NothingToUndo struct{}

func (e *NothingToUndo) Error() string {
	return "nothing to undo"
}

// NothingToRedo occurs when the redo stack is empty.
type NothingToRedo struct{}

func (e *NothingToRedo) Error() string {
	return "nothing to redo"
}
