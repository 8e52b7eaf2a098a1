/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package stats implements the process-wide counters and timing
// accumulators of spec §3/§5: a single mutex guards every field so readers
// at /stats (and the Prometheus collector in metrics.go) observe a
// self-consistent snapshot.
package stats

import (
	"sync"
	"time"
)

// Snapshot is an immutable point-in-time copy of the live counters,
// returned by Stats.Snapshot for presentation layers (the JSON /stats
// body, the Prometheus collector, the staticctl TUI).
type Snapshot struct {
	TotalRequests     uint64
	CompletedRequests uint64
	BytesTransferred  uint64
	TotalResponseTime time.Duration

	Status200 uint64
	Status206 uint64
	Status400 uint64
	Status403 uint64
	Status404 uint64
	Status416 uint64
	Status500 uint64
	Status501 uint64
	Status503 uint64

	ActiveConnections int32
	ServerStartTime   time.Time
}

// Stats is the process-wide counter set. All mutation happens under mu so
// that total_requests, completed_requests, and each status_XXX counter are
// monotonically non-decreasing and bytes_transferred equals the sum of
// every response send, per spec §8.
type Stats struct {
	mu sync.Mutex
	s  Snapshot
}

// New creates a Stats with ServerStartTime set to now.
func New(now time.Time) *Stats {
	return &Stats{s: Snapshot{ServerStartTime: now}}
}

// IncomingConnection records a connection accepted by the acceptor (spec
// §4.H: "On success it increments total_requests").
func (s *Stats) IncomingConnection() {
	s.mu.Lock()
	s.s.TotalRequests++
	s.s.ActiveConnections++
	s.mu.Unlock()
}

// ConnectionClosed decrements active_connections when a session ends.
func (s *Stats) ConnectionClosed() {
	s.mu.Lock()
	s.s.ActiveConnections--
	s.mu.Unlock()
}

// RequestServed records the outcome of one completed request/response
// exchange: the emitted status code, bytes sent (headers + body), and the
// wall-clock time spent producing the response.
func (s *Stats) RequestServed(status int, bytes uint64, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.s.CompletedRequests++
	s.s.BytesTransferred += bytes
	s.s.TotalResponseTime += elapsed

	switch status {
	case 200:
		s.s.Status200++
	case 206:
		s.s.Status206++
	case 400:
		s.s.Status400++
	case 403:
		s.s.Status403++
	case 404:
		s.s.Status404++
	case 416:
		s.s.Status416++
	case 500:
		s.s.Status500++
	case 501:
		s.s.Status501++
	case 503:
		s.s.Status503++
	}
}

// RejectedQueueFull records a 503 emitted directly by the acceptor on a
// full queue — a connection that never reached a worker, so it is counted
// without a matching RequestServed call (no session ever ran). bytes is the
// exact byte count the acceptor wrote on the rejected socket, folded into
// bytes_transferred the same way RequestServed does.
func (s *Stats) RejectedQueueFull(bytes uint64) {
	s.mu.Lock()
	s.s.Status503++
	s.s.BytesTransferred += bytes
	s.mu.Unlock()
}

// Snapshot returns a consistent point-in-time copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}
