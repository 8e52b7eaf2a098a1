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

// Package statsview provides the default /stats JSON body, /dashboard
// HTML body, and /metrics Prometheus exposition body — the "external
// consumer" presentation layer spec §1 keeps out of the core, given a
// minimal in-tree default so the server is runnable end-to-end.
package statsview

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/nabbar/staticd/stats"
)

// jsonSnapshot is the wire shape for /stats: exported field names matching
// the counter vocabulary from spec §3, not Snapshot's Go-idiomatic names.
type jsonSnapshot struct {
	TotalRequests        uint64  `json:"total_requests"`
	CompletedRequests    uint64  `json:"completed_requests"`
	BytesTransferred     uint64  `json:"bytes_transferred"`
	TotalResponseTimeSec float64 `json:"total_response_time_seconds"`
	Status200            uint64  `json:"status_200"`
	Status206            uint64  `json:"status_206"`
	Status400            uint64  `json:"status_400"`
	Status403            uint64  `json:"status_403"`
	Status404            uint64  `json:"status_404"`
	Status416            uint64  `json:"status_416"`
	Status500            uint64  `json:"status_500"`
	Status501            uint64  `json:"status_501"`
	Status503            uint64  `json:"status_503"`
	ActiveConnections    int32   `json:"active_connections"`
	ServerStartTimeUnix  int64   `json:"server_start_time"`
}

// FormatJSON renders snap as the /stats response body.
func FormatJSON(snap stats.Snapshot) []byte {
	out := jsonSnapshot{
		TotalRequests:        snap.TotalRequests,
		CompletedRequests:    snap.CompletedRequests,
		BytesTransferred:     snap.BytesTransferred,
		TotalResponseTimeSec: snap.TotalResponseTime.Seconds(),
		Status200:            snap.Status200,
		Status206:            snap.Status206,
		Status400:            snap.Status400,
		Status403:            snap.Status403,
		Status404:            snap.Status404,
		Status416:            snap.Status416,
		Status500:            snap.Status500,
		Status501:            snap.Status501,
		Status503:            snap.Status503,
		ActiveConnections:    snap.ActiveConnections,
		ServerStartTimeUnix:  snap.ServerStartTime.Unix(),
	}

	body, err := json.Marshal(out)
	if err != nil {
		return []byte(`{"error":"stats encode failed"}`)
	}
	return body
}

// Dashboard renders a minimal auto-refreshing HTML view of the live
// counters for /dashboard.
func Dashboard(snap stats.Snapshot) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta http-equiv="refresh" content="5"><title>staticd</title></head>
<body>
<h1>staticd</h1>
<ul>
<li>total_requests: %d</li>
<li>completed_requests: %d</li>
<li>active_connections: %d</li>
<li>bytes_transferred: %d</li>
<li>status_200: %d</li>
<li>status_404: %d</li>
<li>status_503: %d</li>
</ul>
</body></html>`,
		snap.TotalRequests, snap.CompletedRequests, snap.ActiveConnections,
		snap.BytesTransferred, snap.Status200, snap.Status404, snap.Status503))
}

// MetricsRenderer formats a Stats instance as Prometheus text exposition,
// for the /metrics route (component N).
type MetricsRenderer struct {
	registry *prometheus.Registry
}

// NewMetricsRenderer registers st's Collector on a private registry.
func NewMetricsRenderer(st *stats.Stats) *MetricsRenderer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewCollector(st))
	return &MetricsRenderer{registry: reg}
}

// Render gathers and encodes the current metric families in the classic
// Prometheus text format.
func (m *MetricsRenderer) Render() []byte {
	families, err := m.registry.Gather()
	if err != nil {
		return []byte("# error gathering metrics\n")
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return []byte("# error encoding metrics\n")
		}
	}
	return buf.Bytes()
}
