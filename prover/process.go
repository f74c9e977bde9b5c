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

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"os/exec"
	"sync"
)

// A Transport moves requests to the prover and responses back.  The
// real implementation is Process; tests use an in-process fake.
type Transport interface {
	Start() error
	Send(req SyncRequest) error
	Responses() <-chan Response
	Stop() error
}

// Process runs the prover as a subprocess, one JSON request per stdin
// line, one JSON response per stdout line.
type Process struct {
	// Args is the prover command line.  The first element is the
	// executable.
	Args []string

	// ShowStderr controls whether the prover's stderr is logged.
	ShowStderr bool

	Logf func(format string, args ...interface{})

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	responses chan Response
}

// NewProcess prepares (but does not start) a prover subprocess.
func NewProcess(args ...string) *Process {
	return &Process{
		Args:      args,
		Logf:      log.Printf,
		responses: make(chan Response, 64),
	}
}

// Start launches the subprocess and the stdout reader.  The responses
// channel is closed when the prover's stdout ends.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return &NotStopped{}
	}

	cmd := exec.Command(p.Args[0], p.Args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if p.ShowStderr {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return err
		}
		go func() {
			in := bufio.NewScanner(stderr)
			for in.Scan() {
				p.Logf("prover stderr: %s", in.Text())
			}
		}()
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	p.cmd = cmd
	p.stdin = stdin

	go p.reader(stdout)
	return nil
}

func (p *Process) reader(stdout io.Reader) {
	in := bufio.NewScanner(stdout)
	// Analysis blocks can be long lines.
	in.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for in.Scan() {
		line := in.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			p.Logf("prover: dropping unparsable line: %s", err)
			continue
		}
		p.responses <- resp
	}
	if err := in.Err(); err != nil {
		p.Logf("prover: stdout read error: %s", err)
	}
	close(p.responses)
}

// Send writes one request line.
func (p *Process) Send(req SyncRequest) error {
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()
	if stdin == nil {
		return &NotStarted{}
	}
	js, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = stdin.Write(append(js, '\n'))
	return err
}

// Responses returns the inbound response channel.  Closed when the
// prover exits.
func (p *Process) Responses() <-chan Response { return p.responses }

// Stop terminates the subprocess.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return &NotStarted{}
	}
	p.stdin.Close()
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	go p.cmd.Wait()
	p.cmd = nil
	p.stdin = nil
	return nil
}
