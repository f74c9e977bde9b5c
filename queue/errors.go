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

package queue

import "fmt"

// TaskTimeout reports a task abandoned after its retry budget.
// Transport errors during an attempt are classified as timeouts too;
// the last one, if any, is kept as the Cause.
type TaskTimeout struct {
	Task   string
	Trials int
	Cause  error
}

func (e *TaskTimeout) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("task %q abandoned after %d trials: %s",
			e.Task, e.Trials, e.Cause)
	}
	return fmt.Sprintf("task %q timed out after %d trials", e.Task, e.Trials)
}

func (e *TaskTimeout) Unwrap() error { return e.Cause }
