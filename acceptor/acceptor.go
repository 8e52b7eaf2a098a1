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

// Package acceptor implements the single accept loop of spec §4.H: it
// never blocks on the connection queue — a full queue is answered with an
// inline 503 on the socket the acceptor just accepted, preserving the
// liveness of the accept path under load.
package acceptor

import (
	"errors"
	"net"
	"time"

	"github.com/nabbar/staticd/httpcodec"
	"github.com/nabbar/staticd/internal/logx"
	"github.com/nabbar/staticd/queue"
	"github.com/nabbar/staticd/stats"
)

// Acceptor owns the listener and feeds accepted connections to the
// connection queue.
type Acceptor struct {
	Listener net.Listener
	Queue    *queue.Queue
	Stats    *stats.Stats
	Now      func() time.Time
}

func (a *Acceptor) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Run loops accepting connections until the listener closes or the queue
// is shut down. It never returns an error the caller must act on beyond
// logging: a closed listener is the expected shutdown path.
func (a *Acceptor) Run() {
	for {
		conn, err := a.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logx.Warnf("accept error: %v", err)
			continue
		}

		a.Stats.IncomingConnection()

		if err := a.Queue.TryEnqueue(conn); err != nil {
			if errors.Is(err, queue.ErrStopped) {
				_ = conn.Close()
				a.Stats.ConnectionClosed()
				return
			}
			a.rejectQueueFull(conn)
			continue
		}
	}
}

// rejectQueueFull writes a fixed 503 directly on the just-accepted socket
// and closes it, per spec §4.H. It also undoes the active_connections
// bump from IncomingConnection since this connection never reaches a
// session worker.
func (a *Acceptor) rejectQueueFull(conn net.Conn) {
	defer conn.Close()
	defer a.Stats.ConnectionClosed()

	body := []byte("<h1>Service Unavailable</h1>")
	resp := httpcodec.NewResponse(503, "text/html; charset=utf-8", int64(len(body)), a.now())
	resp.Body = body
	resp.SetConnection(false)

	w := httpcodec.NewWriter(conn)
	n, err := resp.WriteTo(w)
	if err != nil {
		logx.Warnf("failed writing 503 on full queue: %v", err)
	}

	a.Stats.RejectedQueueFull(uint64(n))
}
