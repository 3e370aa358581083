/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fetch acquires remote images for dropped URLs. Requests run on
// their own goroutines; results are queued on a channel that the owner drains
// on the event thread, in completion order.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gorefcanvas/internal/geom"
	"gorefcanvas/internal/imageio"
	applog "gorefcanvas/internal/log"
)

// ErrAcquisition wraps every failure to obtain a usable image.
var ErrAcquisition = errors.New("image acquisition failed")

// Result is one finished acquisition. At is the scene point of the drop.
type Result struct {
	URL   string
	At    geom.Point
	Image imageio.Image
	Err   error
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// Token is sent as a bearer token when set.
	Token string
	// Queue is the result channel capacity.
	Queue int
	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client downloads images concurrently.
type Client struct {
	opts    Options
	http    *http.Client
	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *slog.Logger
}

// NewClient returns a ready client. Call Close to stop outstanding requests.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	if opts.Queue <= 0 {
		opts.Queue = 64
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		http:    hc,
		results: make(chan Result, opts.Queue),
		ctx:     ctx,
		cancel:  cancel,
		log:     applog.WithComponent("fetch"),
	}
}

// Results is the completion queue.
func (c *Client) Results() <-chan Result { return c.results }

// Acquire starts downloading url in the background. Its result is queued
// on Results once the download finishes or fails.
func (c *Client) Acquire(url string, at geom.Point) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		img, err := c.Fetch(c.ctx, url)
		res := Result{URL: url, At: at, Image: img, Err: err}
		select {
		case c.results <- res:
		case <-c.ctx.Done():
		}
	}()
}

// Fetch downloads and decodes url synchronously.
func (c *Client) Fetch(ctx context.Context, url string) (imageio.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return imageio.Image{}, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return imageio.Image{}, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return imageio.Image{}, fmt.Errorf("%w: GET %s: %s", ErrAcquisition, url, resp.Status)
	}
	body := &progressReader{r: io.LimitReader(resp.Body, c.opts.MaxBytes+1), total: resp.ContentLength, log: c.log, url: url}
	data, err := io.ReadAll(body)
	if err != nil {
		return imageio.Image{}, fmt.Errorf("%w: read %s: %v", ErrAcquisition, url, err)
	}
	if int64(len(data)) > c.opts.MaxBytes {
		return imageio.Image{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrAcquisition, url, c.opts.MaxBytes)
	}
	img, err := imageio.Decode(data)
	if err != nil {
		return imageio.Image{}, fmt.Errorf("%w: %s: %v", ErrAcquisition, url, err)
	}
	c.log.Info("fetched", slog.String("url", url), slog.Int("bytes", len(data)), slog.Int("w", img.Width), slog.Int("h", img.Height))
	return img, nil
}

// Close cancels outstanding downloads and waits for their goroutines.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

// progressReader logs download progress in tenths.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	step  int64
	log   *slog.Logger
	url   string
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		if s := p.read * 10 / p.total; s > p.step {
			p.step = s
			p.log.Debug("progress", slog.String("url", p.url), slog.Int64("percent", s*10))
		}
	}
	return n, err
}
