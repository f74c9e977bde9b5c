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
	"fmt"
	"html"
	"io"
	"net/http"

	md "github.com/russross/blackfriday/v2"
)

// A Doc is one exercise description: a title and a Markdown body.
type Doc struct {
	Title string
	Body  string
}

// RenderDocHTML writes a Doc as an HTML fragment.
func RenderDocHTML(d Doc, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="exercise">`)
	f(`<h1 class="exerciseTitle">%s</h1>`, html.EscapeString(d.Title))
	f(`<div class="exerciseDoc doc">%s</div>`, md.Run([]byte(d.Body)))
	f(`</div>`)
	return nil
}

// DocHandler serves exercise descriptions at /doc?name=....
func DocHandler(docs map[string]Doc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		d, have := docs[name]
		if !have {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		RenderDocHTML(d, w)
	}
}
