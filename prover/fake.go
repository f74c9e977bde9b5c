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

import "sync"

// Fake is an in-process Transport for tests and the shell's offline
// mode.  A Script function turns each request into the responses a
// real prover would stream back.
type Fake struct {
	// Script answers one request.  Nil means echo an ok response.
	Script func(req SyncRequest) []Response

	mu        sync.Mutex
	started   bool
	sent      []SyncRequest
	responses chan Response
}

// NewFake makes a fake transport with the given script.
func NewFake(script func(req SyncRequest) []Response) *Fake {
	return &Fake{
		Script:    script,
		responses: make(chan Response, 64),
	}
}

func (f *Fake) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return &NotStopped{}
	}
	f.started = true
	return nil
}

func (f *Fake) Send(req SyncRequest) error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return &NotStarted{}
	}
	f.sent = append(f.sent, req)
	script := f.Script
	f.mu.Unlock()

	if script == nil {
		f.responses <- Response{Kind: "ok", SeqNum: req.SeqNum}
		return nil
	}
	for _, resp := range script(req) {
		f.responses <- resp
	}
	return nil
}

func (f *Fake) Responses() <-chan Response { return f.responses }

// Inject delivers a response that answers no request, for testing
// unsolicited-message handling.
func (f *Fake) Inject(resp Response) {
	f.responses <- resp
}

// Sent returns the requests sent so far.
func (f *Fake) Sent() []SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SyncRequest(nil), f.sent...)
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return &NotStarted{}
	}
	f.started = false
	close(f.responses)
	return nil
}
