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

// Package service exposes a session to GUIs: a WebSocket endpoint
// streams editor views and accepts user actions, and an HTTP endpoint
// renders exercise descriptions.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// A Backend is what the service fronts: it applies user actions and
// reports the current editor view.  session.Session implements it.
type Backend interface {
	// Apply handles one user action and returns the view to send
	// back.
	Apply(ctx context.Context, action map[string]interface{}) (interface{}, error)

	// View returns the current editor view.
	View() interface{}
}

// Service is the WebSocket front end.
type Service struct {
	Backend Backend

	// Docs, if set, is served at /doc (see DocHandler).
	Docs map[string]Doc

	Logf func(format string, args ...interface{})

	ops   chan interface{}
	conns sync.Map
}

// NewService fronts the given backend.
func NewService(backend Backend) *Service {
	return &Service{
		Backend: backend,
		Logf:    log.Printf,
		ops:     make(chan interface{}, 1024),
	}
}

// Publish broadcasts an event to every connected client.
func (s *Service) Publish(event interface{}) {
	select {
	case s.ops <- event:
	default:
		s.Logf("service: broadcast queue full, dropping event")
	}
}

// Mux returns the service's routes: the WebSocket endpoint at /ws
// and, when Docs is set, exercise descriptions at /doc.
func (s *Service) Mux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS(ctx))
	if len(s.Docs) > 0 {
		mux.Handle("/doc", DocHandler(s.Docs))
	}
	return mux
}

// Serve runs the HTTP server until the context is done.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Mux(ctx)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go s.fanout(ctx)

	s.Logf("service: listening on %s", addr)
	return srv.ListenAndServe()
}

// Handler returns the WebSocket handler for mounting on an existing
// mux (the fanout loop must be running; see Serve).
func (s *Service) Handler(ctx context.Context) http.HandlerFunc {
	go s.fanout(ctx)
	return s.handleWS(ctx)
}

func (s *Service) fanout(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case x := <-s.ops:
			s.conns.Range(func(k, v interface{}) bool {
				c := v.(chan interface{})
				select {
				case c <- x:
				default:
					s.Logf("service: %v ops blocked", k)
				}
				return true
			})
		}
	}
}

func (s *Service) handleWS(ctx context.Context) http.HandlerFunc {
	var upgrader = websocket.Upgrader{} // use default options

	return func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.Logf("service: upgrade error: %s", err)
			return
		}
		defer c.Close()

		ctl := make(chan bool)
		defer close(ctl)

		in := make(chan interface{}, 32)

		id := r.RemoteAddr
		s.conns.Store(id, in)
		defer s.conns.Delete(id)

		// A fresh connection sees the current view first.
		in <- map[string]interface{}{"view": s.Backend.View()}

		go func() {
			mt := websocket.TextMessage
		LOOP:
			for {
				select {
				case <-ctl:
					break LOOP
				case <-ctx.Done():
					break LOOP
				case x := <-in:
					js, err := json.Marshal(&x)
					if err != nil {
						s.Logf("service: marshal error %s on %#v", err, x)
						continue
					}
					if err = c.WriteMessage(mt, js); err != nil {
						s.Logf("service: write error: %s", err)
					}
				}
			}
		}()

		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				s.Logf("service: read error: %s", err)
				break
			}

			var action map[string]interface{}
			if err := json.Unmarshal(message, &action); err != nil {
				in <- map[string]interface{}{"error": fmt.Sprintf("can't parse: %s", err)}
				continue
			}

			view, err := s.Backend.Apply(r.Context(), action)
			if err != nil {
				in <- map[string]interface{}{"error": err.Error()}
				continue
			}
			in <- map[string]interface{}{"view": view}
		}
	}
}
