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

// Package session implements the per-connection keep-alive loop of spec
// §4.G: request parsing, synthetic-endpoint routing, the traversal guard,
// method allow-listing, and dispatch to the file responder, instrumented
// against stats and the access log on every iteration.
package session

import (
	"net"
	"path"
	"strings"
	"time"

	lbuuid "github.com/hashicorp/go-uuid"
	"github.com/sirupsen/logrus"

	"github.com/nabbar/staticd/accesslog"
	"github.com/nabbar/staticd/config"
	"github.com/nabbar/staticd/fileserver"
	"github.com/nabbar/staticd/httpcodec"
	"github.com/nabbar/staticd/internal/logx"
	"github.com/nabbar/staticd/stats"
)

// MaxRequestsPerConnection bounds the keep-alive loop per spec §4.G.
const MaxRequestsPerConnection = 50

// IdleTimeout is the receive timeout applied between requests on a
// keep-alive connection (count > 0 in Serve's loop).
const IdleTimeout = 5 * time.Second

// DefaultInitialTimeout is the receive timeout applied to the first
// request on a freshly accepted connection (count == 0) when no
// configured value is available. Spec §5 gives the initial read a longer
// allowance than the keep-alive idle timeout, since a slow client still
// establishing its first request is not yet "idle".
const DefaultInitialTimeout = 30 * time.Second

// StatsFormatter renders a stats snapshot as the /stats response body
// (injected so the wire format is a presentation concern, per spec §1).
type StatsFormatter func(stats.Snapshot) []byte

// DashboardProvider renders the /dashboard response body.
type DashboardProvider func() []byte

// MetricsFormatter renders the /metrics response body in Prometheus text
// exposition format.
type MetricsFormatter func() []byte

// terminalStatus mirrors spec §7's keep-alive policy table: these five
// codes always close the connection regardless of protocol version.
var terminalStatus = map[int]bool{
	400: true,
	403: true,
	500: true,
	501: true,
	503: true,
}

// Handler runs the keep-alive session loop for one accepted connection.
type Handler struct {
	Config    *config.ServerConfig
	Files     *fileserver.Server
	Stats     *stats.Stats
	Access    *accesslog.Logger
	FormatJSN StatsFormatter
	Dashboard DashboardProvider
	Metrics   MetricsFormatter
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// sessionLog generates a request id for one accepted connection and
// returns both the id and a structured-logging entry carrying it, attached
// via logx.WithField so every line logged for this connection can be
// correlated. Per spec §4.J, this id is never written to the fixed-format
// access log line itself (see accesslog.Entry), though the Entry carries it
// for out-of-band correlation.
func (h *Handler) sessionLog() (string, *logrus.Entry) {
	id, err := lbuuid.GenerateUUID()
	if err != nil {
		id = "unknown"
	}
	return id, logx.WithField("request_id", id)
}

// initialTimeout returns the receive timeout for the first request on a
// connection, sourced from the configured IdleTimeoutSeconds so an
// operator can tune it, falling back to DefaultInitialTimeout when no
// config is wired (e.g. in tests that construct a bare Handler).
func (h *Handler) initialTimeout() time.Duration {
	if h.Config != nil && h.Config.IdleTimeoutSeconds > 0 {
		return time.Duration(h.Config.IdleTimeoutSeconds) * time.Second
	}
	return DefaultInitialTimeout
}

// Serve runs the keep-alive loop over conn until a terminal status, the
// request-count bound, a read failure, or an HTTP/1.0 request ends it.
func (h *Handler) Serve(conn net.Conn) {
	defer conn.Close()
	defer h.Stats.ConnectionClosed()

	w := httpcodec.NewWriter(conn)
	requestID, log := h.sessionLog()

	for count := 0; count < MaxRequestsPerConnection; count++ {
		timeout := IdleTimeout
		if count == 0 {
			timeout = h.initialTimeout()
		}
		conn.SetReadDeadline(h.now().Add(timeout))

		raw, err := httpcodec.ReadRequest(conn)
		if err != nil {
			return
		}

		start := h.now()
		req, perr := httpcodec.Parse(raw)
		if perr != nil {
			h.respondTerminal(w, 400, requestID)
			return
		}

		keepAlive := req.KeepAlivePreferred()

		status, bytesSent := h.dispatch(w, req, keepAlive)
		elapsed := h.now().Sub(start)

		h.Stats.RequestServed(status, uint64(bytesSent), elapsed)
		if err := h.Access.Log(accesslog.Entry{
			Method:    req.Method,
			Path:      req.Path,
			Version:   req.Version,
			Status:    status,
			Bytes:     bytesSent,
			Timestamp: h.now(),
			RequestID: requestID,
		}); err != nil {
			log.Warnf("access log write failed: %v", err)
		}

		if terminalStatus[status] || !keepAlive {
			return
		}
	}
}

// dispatch routes one parsed request and returns the emitted status and
// the exact byte count sent, per spec §4.G/§4.F.6.
func (h *Handler) dispatch(w *httpcodec.Writer, req *httpcodec.Request, keepAlive bool) (int, int64) {
	wantBody := req.Method == "GET"

	switch req.Path {
	case "/cause400":
		return h.writeSynthetic(w, 400, keepAlive)
	case "/cause500":
		return h.writeSynthetic(w, 500, keepAlive)
	case "/cause501":
		return h.writeSynthetic(w, 501, keepAlive)
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		return h.writeSynthetic(w, 501, keepAlive)
	}

	if strings.Contains(req.Path, "..") {
		return h.writeSynthetic(w, 403, keepAlive)
	}

	switch req.Path {
	case "/stats":
		body := h.FormatJSN(h.Stats.Snapshot())
		return h.writeOK(w, "application/json", body, wantBody, keepAlive)
	case "/dashboard":
		body := h.Dashboard()
		return h.writeOK(w, "text/html", body, wantBody, keepAlive)
	case "/metrics":
		body := h.Metrics()
		return h.writeOK(w, "text/plain; version=0.0.4", body, wantBody, keepAlive)
	}

	root := h.Config.ResolveDocRoot(hostWithoutPort(req.Host))
	target := resolveTarget(root, req.Path)

	return h.Files.Serve(w, target, wantBody, req.RangeSpec, keepAlive)
}

func (h *Handler) writeOK(w *httpcodec.Writer, contentType string, body []byte, includeBody, keepAlive bool) (int, int64) {
	resp := httpcodec.NewResponse(200, contentType, int64(len(body)), h.now())
	resp.SetConnection(keepAlive)
	if includeBody {
		resp.Body = body
	}
	n, _ := resp.WriteTo(w)
	return 200, n
}

func (h *Handler) writeSynthetic(w *httpcodec.Writer, status int, keepAlive bool) (int, int64) {
	body := fileserver.DefaultErrorBody(status)
	resp := httpcodec.NewResponse(status, "text/html; charset=utf-8", int64(len(body)), h.now())
	resp.Body = body
	resp.SetConnection(keepAlive)
	n, _ := resp.WriteTo(w)
	return status, n
}

// respondTerminal is used for the one case with no parsed request
// available (request-line parse failure): a bare, connection-closing
// response on the raw writer.
func (h *Handler) respondTerminal(w *httpcodec.Writer, status int, requestID string) {
	body := fileserver.DefaultErrorBody(status)
	resp := httpcodec.NewResponse(status, "text/html; charset=utf-8", int64(len(body)), h.now())
	resp.Body = body
	resp.SetConnection(false)
	n, _ := resp.WriteTo(w)

	h.Stats.RequestServed(status, uint64(n), 0)
	_ = h.Access.Log(accesslog.Entry{Status: status, Bytes: n, Timestamp: h.now(), RequestID: requestID})
}

func hostWithoutPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// resolveTarget builds the on-disk path for req.Path under root, appending
// index.html when the effective path ends in "/" (including the bare "/"
// request), per spec §4.G.
func resolveTarget(root, reqPath string) string {
	clean := reqPath
	if clean == "" {
		clean = "/"
	}

	if strings.HasSuffix(clean, "/") {
		clean += "index.html"
	}

	return path.Join(root, clean)
}
