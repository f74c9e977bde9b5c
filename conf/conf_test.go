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

package conf

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/proofpad/proofpad/marked"
)

func TestLoad(t *testing.T) {
	src := `
prover:
  command: ["lean", "--json", "--server", "-M", "4096"]
  showStderr: true
queue:
  timeout: 5s
  trials: 2
priorities:
  - ["EXP"]
service:
  addr: ":9000"
store:
  path: "states.db"
timers:
  - id: ping
    schedule: 30s
    message: ping
`
	filename := filepath.Join(t.TempDir(), "proofpad.yaml")
	if err := ioutil.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Prover.Command) != 5 || !c.Prover.ShowStderr {
		t.Fatalf("prover %+v", c.Prover)
	}
	if got := c.QueueOptions(); got.Timeout != 5*time.Second || got.Trials != 2 {
		t.Fatalf("queue %+v", got)
	}
	// Unset keys keep their defaults.
	if c.Queue.StartingTimeout != Default().Queue.StartingTimeout {
		t.Fatalf("starting timeout %q", c.Queue.StartingTimeout)
	}
	if c.Service.Addr != ":9000" || c.Store.Path != "states.db" {
		t.Fatalf("service %+v store %+v", c.Service, c.Store)
	}
	if len(c.Timers) != 1 || c.Timers[0].Message != "ping" {
		t.Fatalf("timers %+v", c.Timers)
	}

	prio := c.PriorityTable()
	if prio.Compare("EXP", "EXP") != marked.Same {
		t.Fatal("extended class not in table")
	}
	if prio.Compare("MULT", "SUM") != marked.Higher {
		t.Fatal("built-in classes lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestQueueOptions(t *testing.T) {
	opts := Default().QueueOptions()
	if opts.Timeout == 0 || opts.StartingTimeout == 0 || opts.Trials == 0 {
		t.Fatalf("options %+v", opts)
	}
}
