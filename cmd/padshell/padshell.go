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

// Package main is an interactive proofpad shell: commands on stdin,
// editor views on stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/proofpad/proofpad/conf"
	"github.com/proofpad/proofpad/prover"
	"github.com/proofpad/proofpad/request"
	"github.com/proofpad/proofpad/session"
	"github.com/proofpad/proofpad/util"
	. "github.com/proofpad/proofpad/util/testutil"
)

func main() {
	var (
		confFilename = flag.String("c", "", "configuration filename")
		offline      = flag.Bool("offline", false, "use a fake prover")
		verbose      = flag.Bool("v", false, "verbosity")
	)
	flag.Parse()

	c := conf.Default()
	if *confFilename != "" {
		var err error
		if c, err = conf.Load(*confFilename); err != nil {
			log.Fatal(err)
		}
	}

	var transport prover.Transport
	if *offline {
		transport = prover.NewFake(nil)
	} else {
		transport = prover.NewProcess(c.Prover.Command...)
	}

	s, err := session.New(c, transport)
	if err != nil {
		log.Fatal(err)
	}
	util.Logging = *verbose
	s.Logf = util.Logf
	s.SetPublisher(func(event interface{}) {
		fmt.Printf("event %s\n", JS(event))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer s.Stop(ctx)

	go func() {
		for f := range s.Failures() {
			fmt.Printf("failure %s after %d trials: %s\n", f.Task, f.Trials, f.Err)
		}
	}()

	fmt.Println("proofpad shell; 'help' for commands")
	show(s)

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		cmd, rest := line, ""
		if i := strings.IndexByte(line, ' '); i >= 0 {
			cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
		}

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			help()
			continue
		case "open":
			bs, err := ioutil.ReadFile(rest)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			s.OpenExercise(rest, string(bs))
			fmt.Println("opened", rest)
			continue
		case "step":
			s.ProofStep(request.CodeString(rest))
			fmt.Println("step queued")
			continue
		}

		action := map[string]interface{}{"op": cmd}
		switch cmd {
		case "insert":
			action["pattern"] = rest
		case "macro":
			action["name"] = rest
		case "fragment":
			parts := strings.SplitN(rest, " ", 2)
			if len(parts) != 2 {
				fmt.Println("usage: fragment LIBRARY NAME")
				continue
			}
			action["library"], action["name"] = parts[0], parts[1]
		}

		if _, err := s.Apply(ctx, action); err != nil {
			fmt.Println("error:", err)
			continue
		}
		show(s)
	}
}

func show(s *session.Session) {
	view, is := s.View().(map[string]interface{})
	if !is {
		return
	}
	fmt.Printf("  %s\n", view["shape"])
	if targets, is := view["targets"].([]string); is && len(targets) > 0 {
		for _, t := range targets {
			fmt.Printf("  goal %s\n", t)
		}
	}
}

func help() {
	fmt.Print(`commands:
  insert PATTERN       insert a pattern (e.g. SUM(?, ?) or NUMBER/value=2)
  fragment LIB NAME    insert a named library pattern
  macro NAME           run an editor macro
  left right up begin end nextUnassigned previousUnassigned
                       move the cursor
  delete               clear the assignment at the cursor
  undo redo reset      history
  open FILE            open an exercise file
  step TACTIC          send a proof step
  quit
`)
}
