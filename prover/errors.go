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

package prover

// NotStarted occurs when a Process is used before Start().
type NotStarted struct{}

func (e *NotStarted) Error() string {
	return "prover process not started"
}

// NotStopped occurs when Start() is called on a running Process.
type NotStopped struct{}

func (e *NotStopped) Error() string {
	return "prover process already running"
}
