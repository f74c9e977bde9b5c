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

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeBackend struct {
	view string
}

func (b *fakeBackend) Apply(ctx context.Context, action map[string]interface{}) (interface{}, error) {
	op, _ := action["op"].(string)
	if op == "" {
		return nil, errors.New("no op")
	}
	b.view = op
	return b.view, nil
}

func (b *fakeBackend) View() interface{} { return b.view }

func dialTest(t *testing.T, s *Service, ctx context.Context) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(s.Handler(ctx))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatal(err)
	}
	return c, func() { c.Close(); srv.Close() }
}

func readMsg(t *testing.T, c *websocket.Conn) map[string]interface{} {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, js, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(js, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestWebSocketRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := &fakeBackend{view: "initial"}
	s := NewService(backend)
	s.Logf = func(format string, args ...interface{}) {}

	c, done := dialTest(t, s, ctx)
	defer done()

	// The current view arrives first.
	if m := readMsg(t, c); m["view"] != "initial" {
		t.Fatalf("first message %+v", m)
	}

	if err := c.WriteJSON(map[string]interface{}{"op": "insert"}); err != nil {
		t.Fatal(err)
	}
	if m := readMsg(t, c); m["view"] != "insert" {
		t.Fatalf("after action %+v", m)
	}

	// Bad actions come back as errors, not closed connections.
	if err := c.WriteJSON(map[string]interface{}{}); err != nil {
		t.Fatal(err)
	}
	if m := readMsg(t, c); m["error"] != "no op" {
		t.Fatalf("error reply %+v", m)
	}
}

func TestPublishBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewService(&fakeBackend{})
	s.Logf = func(format string, args ...interface{}) {}

	c, done := dialTest(t, s, ctx)
	defer done()
	readMsg(t, c) // initial view

	s.Publish(map[string]interface{}{"event": "proof-complete"})
	if m := readMsg(t, c); m["event"] != "proof-complete" {
		t.Fatalf("broadcast %+v", m)
	}
}

func TestRenderDocHTML(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDocHTML(Doc{
		Title: "Intersection & union",
		Body:  "Prove that `x ∈ A ∩ B` implies *membership* in A.",
	}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Intersection &amp; union") {
		t.Fatalf("title not escaped: %s", out)
	}
	if !strings.Contains(out, "<em>membership</em>") {
		t.Fatalf("markdown not rendered: %s", out)
	}
	if !strings.Contains(out, "<code>") {
		t.Fatalf("code span not rendered: %s", out)
	}
}

func TestMuxMountsDocs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewService(&fakeBackend{})
	s.Logf = func(format string, args ...interface{}) {}
	s.Docs = map[string]Doc{
		"inter": {Title: "Intersection", Body: "body"},
	}

	mux := s.Mux(ctx)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/doc?name=inter", nil))
	if w.Code != 200 || !strings.Contains(w.Body.String(), "Intersection") {
		t.Fatalf("code %d body %s", w.Code, w.Body.String())
	}

	// Without docs the route is absent.
	bare := NewService(&fakeBackend{})
	bare.Logf = s.Logf
	w = httptest.NewRecorder()
	bare.Mux(ctx).ServeHTTP(w, httptest.NewRequest("GET", "/doc?name=inter", nil))
	if w.Code != 404 {
		t.Fatalf("code %d", w.Code)
	}
}

func TestDocHandler(t *testing.T) {
	h := DocHandler(map[string]Doc{
		"inter": {Title: "Intersection", Body: "body"},
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest("GET", "/doc?name=inter", nil))
	if w.Code != 200 || !strings.Contains(w.Body.String(), "Intersection") {
		t.Fatalf("code %d body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest("GET", "/doc?name=nope", nil))
	if w.Code != 404 {
		t.Fatalf("code %d", w.Code)
	}
}
