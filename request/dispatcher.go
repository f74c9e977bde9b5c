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
	"log"
	"sync"

	"github.com/proofpad/proofpad/prover"
)

// Dispatcher assigns sequence numbers to outbound requests and routes
// inbound prover traffic back to them.  Responses carrying a sequence
// number no live request owns are logged and dropped; they never
// touch another request's state.
type Dispatcher struct {
	// Activity, if set, is called whenever a message reaches a live
	// request.  The queue uses it to push back its deadline while
	// the prover is still talking.
	Activity func()

	// OnRunningChange, if set, is called when the prover reports a
	// change in background activity.
	OnRunningChange func(running bool)

	Logf func(format string, args ...interface{})

	mu      sync.Mutex
	nextSeq int
	pending map[int]Request
	running bool
}

// NewDispatcher makes an empty dispatcher.  Sequence numbers start
// at 1.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Logf:    log.Printf,
		pending: make(map[int]Request),
	}
}

// Register assigns the next sequence number to r and tracks it until
// completion.  It returns the sync request to send.
func (d *Dispatcher) Register(r Request, file string) prover.SyncRequest {
	d.mu.Lock()
	d.nextSeq++
	seq := d.nextSeq
	r.SetSeqNum(seq)
	d.pending[seq] = r
	d.mu.Unlock()
	return prover.NewSyncRequest(seq, file, r.FileContents())
}

// Pending returns how many requests are still awaiting completion.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Forget drops a request without completing it, for cancellation.
func (d *Dispatcher) Forget(r Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, r.SeqNum())
}

// HandleResponse routes one inbound response.
func (d *Dispatcher) HandleResponse(resp prover.Response) {
	switch resp.Kind {
	case "ok":
		// Sync acknowledged; the analyses follow as messages.
		d.touch(resp.SeqNum)
	case "error":
		d.Logf("request: prover rejected seq_num %d: %s", resp.SeqNum, resp.Message)
		d.fail(resp.SeqNum, resp.Message)
	case "all_messages":
		for _, msg := range resp.Msgs {
			d.dispatch(msg)
		}
	case "current_tasks":
		d.setRunning(resp.IsRunning)
	default:
		d.Logf("request: unknown response kind %q", resp.Kind)
	}
}

func (d *Dispatcher) dispatch(msg prover.Message) {
	d.mu.Lock()
	r, ok := d.pending[msg.SeqNum]
	d.mu.Unlock()
	if !ok {
		d.Logf("request: dropping message for unknown seq_num %d: %.60s", msg.SeqNum, msg.Text)
		return
	}
	d.active()
	r.OnMessage(msg)
	d.settle(r)
}

// touch extends the deadline for a live request without feeding it a
// message.
func (d *Dispatcher) touch(seq int) {
	d.mu.Lock()
	_, ok := d.pending[seq]
	d.mu.Unlock()
	if ok {
		d.active()
	}
}

func (d *Dispatcher) fail(seq int, text string) {
	d.mu.Lock()
	r, ok := d.pending[seq]
	d.mu.Unlock()
	if !ok {
		d.Logf("request: dropping error for unknown seq_num %d", seq)
		return
	}
	r.OnMessage(prover.Message{
		Severity: prover.SeverityError,
		SeqNum:   seq,
		Text:     text,
	})
	d.settle(r)
}

// settle completes and deregisters r once it has everything it needs.
func (d *Dispatcher) settle(r Request) {
	if !r.IsComplete() {
		return
	}
	d.mu.Lock()
	delete(d.pending, r.SeqNum())
	d.mu.Unlock()
	if b, ok := r.(interface{ complete() }); ok {
		b.complete()
	}
}

func (d *Dispatcher) active() {
	if d.Activity != nil {
		d.Activity()
	}
}

func (d *Dispatcher) setRunning(running bool) {
	d.mu.Lock()
	changed := running != d.running
	d.running = running
	d.mu.Unlock()
	if running {
		d.active()
	}
	if changed && d.OnRunningChange != nil {
		d.OnRunningChange(running)
	}
}
