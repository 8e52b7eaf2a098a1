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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// snapshot mirrors the wire shape of a running server's /stats JSON body.
// It is deliberately a standalone type: staticctl has no access to server
// internals, it only ever parses the same JSON an operator's browser would
// fetch.
type snapshot struct {
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

// fetchSnapshot polls addr's /stats endpoint and decodes the response body
// into a snapshot.
func fetchSnapshot(client *http.Client, addr string) (snapshot, error) {
	var snap snapshot

	resp, err := client.Get(fmt.Sprintf("http://%s/stats", addr))
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("unexpected status fetching /stats: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return snap, err
	}

	if err := json.Unmarshal(body, &snap); err != nil {
		return snap, err
	}

	return snap, nil
}

// uptime returns how long the server has been running, derived from the
// snapshot's start time and the given reference instant.
func (s snapshot) uptime(now time.Time) time.Duration {
	if s.ServerStartTimeUnix == 0 {
		return 0
	}
	return now.Sub(time.Unix(s.ServerStartTimeUnix, 0)).Truncate(time.Second)
}

// delta computes per-field differences against a previous snapshot, used to
// render the "since last poll" counters in the dashboard.
type delta struct {
	Requests uint64
	Bytes    uint64
}

func deltaBetween(prev, cur snapshot) delta {
	d := delta{}
	if cur.CompletedRequests >= prev.CompletedRequests {
		d.Requests = cur.CompletedRequests - prev.CompletedRequests
	}
	if cur.BytesTransferred >= prev.BytesTransferred {
		d.Bytes = cur.BytesTransferred - prev.BytesTransferred
	}
	return d
}
