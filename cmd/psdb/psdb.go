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

// Package main inspects a proofpad proof-state cache.
//
//	psdb -f states.db courses
//	psdb -f states.db course COURSE
//	psdb -f states.db get COURSE STATEMENT
//	psdb -f states.db rm COURSE
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/proofpad/proofpad/store"
)

func main() {
	filename := flag.String("f", "states.db", "cache filename")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	ctx := context.Background()
	s := store.NewStore(*filename)
	if err := s.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer s.Close(ctx)

	switch args[0] {
	case "courses":
		names, err := s.Courses(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "course":
		if len(args) != 2 {
			usage()
		}
		states, err := s.GetCourse(ctx, args[1])
		if err != nil {
			log.Fatal(err)
		}
		statements := make([]string, 0, len(states))
		for statement := range states {
			statements = append(statements, statement)
		}
		sort.Strings(statements)
		for _, statement := range statements {
			js, err := json.Marshal(states[statement])
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%s\t%s\n", statement, js)
		}
	case "get":
		if len(args) != 3 {
			usage()
		}
		state, err := s.GetState(ctx, args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		if state == nil {
			log.Fatalf("no state for %s %s", args[1], args[2])
		}
		js, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(js))
	case "rm":
		if len(args) != 2 {
			usage()
		}
		if err := s.RemCourse(ctx, args[1]); err != nil {
			log.Fatal(err)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: psdb -f FILE {courses | course COURSE | get COURSE STATEMENT | rm COURSE}\n")
	os.Exit(1)
}
