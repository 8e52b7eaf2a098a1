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

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts Stats to prometheus.Collector so the server can expose
// /metrics alongside the plain-JSON /stats endpoint (spec §9: both routes
// read the same counters and both count toward total_requests/status_200
// like any other request).
type Collector struct {
	s *Stats

	totalRequests     *prometheus.Desc
	completedRequests *prometheus.Desc
	bytesTransferred  *prometheus.Desc
	responseTimeTotal *prometheus.Desc
	statusCount       *prometheus.Desc
	activeConnections *prometheus.Desc
	startTime         *prometheus.Desc
}

// NewCollector wraps s for registration with a prometheus.Registry.
func NewCollector(s *Stats) *Collector {
	return &Collector{
		s: s,
		totalRequests: prometheus.NewDesc(
			"staticd_total_requests", "Total accepted connections.", nil, nil),
		completedRequests: prometheus.NewDesc(
			"staticd_completed_requests", "Total fully handled requests.", nil, nil),
		bytesTransferred: prometheus.NewDesc(
			"staticd_bytes_transferred_total", "Total response bytes sent.", nil, nil),
		responseTimeTotal: prometheus.NewDesc(
			"staticd_response_time_seconds_total", "Cumulative response handling time.", nil, nil),
		statusCount: prometheus.NewDesc(
			"staticd_responses_total", "Responses by status code.", []string{"status"}, nil),
		activeConnections: prometheus.NewDesc(
			"staticd_active_connections", "Currently open client connections.", nil, nil),
		startTime: prometheus.NewDesc(
			"staticd_start_time_seconds", "Unix time the server started.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalRequests
	ch <- c.completedRequests
	ch <- c.bytesTransferred
	ch <- c.responseTimeTotal
	ch <- c.statusCount
	ch <- c.activeConnections
	ch <- c.startTime
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.s.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.totalRequests, prometheus.CounterValue, float64(snap.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.completedRequests, prometheus.CounterValue, float64(snap.CompletedRequests))
	ch <- prometheus.MustNewConstMetric(c.bytesTransferred, prometheus.CounterValue, float64(snap.BytesTransferred))
	ch <- prometheus.MustNewConstMetric(c.responseTimeTotal, prometheus.CounterValue, snap.TotalResponseTime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.activeConnections, prometheus.GaugeValue, float64(snap.ActiveConnections))
	ch <- prometheus.MustNewConstMetric(c.startTime, prometheus.GaugeValue, float64(snap.ServerStartTime.Unix()))

	statuses := []struct {
		label string
		value uint64
	}{
		{"200", snap.Status200},
		{"206", snap.Status206},
		{"400", snap.Status400},
		{"403", snap.Status403},
		{"404", snap.Status404},
		{"416", snap.Status416},
		{"500", snap.Status500},
		{"501", snap.Status501},
		{"503", snap.Status503},
	}
	for _, st := range statuses {
		ch <- prometheus.MustNewConstMetric(c.statusCount, prometheus.CounterValue, float64(st.value), st.label)
	}
}
