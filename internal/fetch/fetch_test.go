/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fetch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorefcanvas/internal/geom"
)

func servePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 9, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAcquireDeliversResults(t *testing.T) {
	pic := servePNG(t)
	authc := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			select {
			case authc <- r.Header.Get("Authorization"):
			default:
			}
			_, _ = w.Write(pic)
		case "/text":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{Token: "tok", Timeout: 5 * time.Second})
	defer c.Close()
	at := geom.Pt(3, 4)
	c.Acquire(srv.URL+"/ok.png", at)
	c.Acquire(srv.URL+"/missing", at)
	c.Acquire(srv.URL+"/text", at)

	got := map[string]Result{}
	for i := 0; i < 3; i++ {
		select {
		case r := <-c.Results():
			got[r.URL] = r
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for result %d", i)
		}
	}
	ok := got[srv.URL+"/ok.png"]
	if ok.Err != nil || ok.Image.Width != 9 || ok.Image.Height != 4 || ok.At != at {
		t.Fatalf("unexpected success result: %+v", ok)
	}
	if auth := <-authc; auth != "Bearer tok" {
		t.Fatalf("authorization header = %q", auth)
	}
	for _, u := range []string{"/missing", "/text"} {
		if r := got[srv.URL+u]; !errors.Is(r.Err, ErrAcquisition) {
			t.Fatalf("%s: expected ErrAcquisition, got %v", u, r.Err)
		}
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	pic := servePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(pic) }))
	defer srv.Close()
	c := NewClient(Options{MaxBytes: 10})
	defer c.Close()
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected size limit failure, got %v", err)
	}
}

func TestCloseAbandonsPendingRequests(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	c := NewClient(Options{Queue: 1})
	c.Acquire(srv.URL, geom.Pt(0, 0))
	done := make(chan struct{})
	go func() { c.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not return")
	}
}
