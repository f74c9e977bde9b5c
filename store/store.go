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

// Package store caches initial proof states on disk so that
// re-opening a course does not re-query the prover for every
// statement.  One bucket per course, one record per statement.
package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/proofpad/proofpad/request"
)

// Store is the proof-state cache.  A nil Store is a disabled cache:
// every method is a no-op and every lookup misses.
type Store struct {
	Debug bool

	filename string
	db       *bolt.DB
}

// NewStore prepares (but does not open) a cache at filename.
func NewStore(filename string) *Store {
	return &Store{filename: filename}
}

// Open opens the underlying database file.
func (s *Store) Open(ctx context.Context) error {
	if s == nil {
		return nil
	}
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) logf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	if s.Debug {
		log.Printf("store "+format, args...)
	}
}

// EnsureCourse creates the course's bucket if needed.
func (s *Store) EnsureCourse(ctx context.Context, course string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(course))
		return err
	})
}

// RemCourse drops a course's cached states.
func (s *Store) RemCourse(ctx context.Context, course string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(course))
	})
}

// PutStates records proof states for statements of a course.  A nil
// state deletes the statement's record.
func (s *Store) PutStates(ctx context.Context, course string, states map[string]*request.ProofState) error {
	if s == nil || len(states) == 0 {
		return nil
	}

	vals := make(map[string][]byte, len(states))
	for statement, state := range states {
		if state == nil {
			vals[statement] = nil
			continue
		}
		js, err := json.Marshal(state)
		if err != nil {
			return err
		}
		vals[statement] = js
	}

	s.logf("PutStates %s (%d statements)", course, len(vals))

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(course))
		if err != nil {
			return err
		}
		for statement, js := range vals {
			if js == nil {
				if err := b.Delete([]byte(statement)); err != nil {
					return err
				}
				continue
			}
			if err := b.Put([]byte(statement), js); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetState looks up one statement's cached state.  A miss is
// (nil, nil).
func (s *Store) GetState(ctx context.Context, course, statement string) (*request.ProofState, error) {
	if s == nil {
		return nil, nil
	}
	var state *request.ProofState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(course))
		if b == nil {
			return nil
		}
		js := b.Get([]byte(statement))
		if js == nil {
			return nil
		}
		var ps request.ProofState
		if err := json.Unmarshal(js, &ps); err != nil {
			return err
		}
		state = &ps
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// GetCourse returns every cached state of a course, keyed by
// statement.
func (s *Store) GetCourse(ctx context.Context, course string) (map[string]*request.ProofState, error) {
	if s == nil {
		return nil, nil
	}
	states := make(map[string]*request.ProofState, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(course))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for statement, js := c.First(); statement != nil; statement, js = c.Next() {
			var ps request.ProofState
			if err := json.Unmarshal(js, &ps); err != nil {
				return err
			}
			states[string(statement)] = &ps
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logf("GetCourse %s found %d states", course, len(states))

	if len(states) == 0 {
		return nil, nil
	}
	return states, nil
}

// Courses lists the course buckets present in the cache.
func (s *Store) Courses(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Compact rewrites nothing but syncs the database file, used by the
// scheduled maintenance timer.
func (s *Store) Compact(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Sync()
}
