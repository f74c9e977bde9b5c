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

// Package conf loads session configuration from YAML.
package conf

import (
	"io/ioutil"
	"time"

	"github.com/jsccast/yaml"

	"github.com/proofpad/proofpad/marked"
	"github.com/proofpad/proofpad/queue"
)

// Conf is everything a session needs to start: how to run the prover,
// how patient the queue is, extra operator precedence classes, macro
// and pattern-library files, and where the service listens.
type Conf struct {
	Prover ProverConf `json:"prover,omitempty" yaml:"prover,omitempty"`
	Queue  QueueConf  `json:"queue,omitempty" yaml:"queue,omitempty"`

	// Priorities lists extra precedence classes, tightest first,
	// appended after the built-in ones.
	Priorities [][]string `json:"priorities,omitempty" yaml:"priorities,omitempty"`

	// Macros names ECMAScript macro files to load.
	Macros []string `json:"macros,omitempty" yaml:"macros,omitempty"`

	// Patterns names YAML pattern-library files to load.
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`

	Service ServiceConf `json:"service,omitempty" yaml:"service,omitempty"`
	MQTT    MQTTConf    `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
	Store   StoreConf   `json:"store,omitempty" yaml:"store,omitempty"`

	// Timers schedules maintenance messages.
	Timers []TimerConf `json:"timers,omitempty" yaml:"timers,omitempty"`
}

// ProverConf says how to run the backend prover.
type ProverConf struct {
	// Command is the prover command line.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`

	// ShowStderr controls whether the prover's stderr is logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`
}

// QueueConf tunes the request queue.  Timeouts are duration strings
// ("10s"); empty or unparsable values fall back to the queue's
// defaults.
type QueueConf struct {
	Timeout         string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	StartingTimeout string `json:"startingTimeout,omitempty" yaml:"startingTimeout,omitempty"`
	Trials          int    `json:"trials,omitempty" yaml:"trials,omitempty"`
}

// ServiceConf is the WebSocket service listen address and the
// exercise descriptions it serves.
type ServiceConf struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// Docs lists Markdown exercise descriptions served at /doc.
	Docs []DocConf `json:"docs,omitempty" yaml:"docs,omitempty"`
}

// DocConf names one Markdown exercise description file.
type DocConf struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MQTTConf configures the optional MQTT coupling.  An empty Broker
// disables it.
type MQTTConf struct {
	Broker   string `json:"broker,omitempty" yaml:"broker,omitempty"`
	ClientID string `json:"clientId,omitempty" yaml:"clientId,omitempty"`

	// Topic is the base topic; events go to Topic/out and actions
	// arrive on Topic/in.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// StoreConf locates the proof-state cache.  An empty Path disables
// caching.
type StoreConf struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TimerConf schedules one recurring maintenance message.  Schedule is
// either a duration ("30s") or a cron expression.
type TimerConf struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`

	// Message names the maintenance action ("ping", "compact").
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Default returns a runnable configuration for a local prover.
func Default() Conf {
	return Conf{
		Prover: ProverConf{
			Command: []string{"lean", "--json", "--server"},
		},
		Queue: QueueConf{
			Timeout:         queue.DefaultTimeout.String(),
			StartingTimeout: queue.DefaultStartingTimeout.String(),
			Trials:          queue.DefaultTrials,
		},
		Service: ServiceConf{Addr: ":8574"},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(filename string) (Conf, error) {
	c := Default()
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return c, err
	}
	return c, nil
}

// QueueOptions renders the queue tuning for queue.New.  Bad duration
// strings come back zero, which queue.New replaces with defaults.
func (c Conf) QueueOptions() queue.Options {
	return queue.Options{
		Timeout:         parseDuration(c.Queue.Timeout),
		StartingTimeout: parseDuration(c.Queue.StartingTimeout),
		Trials:          c.Queue.Trials,
	}
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// PriorityTable renders the built-in precedence classes extended by
// the configured extras.
func (c Conf) PriorityTable() marked.Priorities {
	return marked.DefaultPriorities().Extend(c.Priorities...)
}
