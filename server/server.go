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

// Package server wires the acceptor, the bounded queue, the fixed worker
// pool, the cache, stats, and the access log into the supervisor of spec
// §4.I: Listen starts everything, Shutdown tears it down in the mandated
// order, and both are idempotent.
package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/staticd/acceptor"
	"github.com/nabbar/staticd/accesslog"
	"github.com/nabbar/staticd/apperror"
	"github.com/nabbar/staticd/cache"
	"github.com/nabbar/staticd/config"
	"github.com/nabbar/staticd/fileserver"
	"github.com/nabbar/staticd/internal/logx"
	"github.com/nabbar/staticd/internal/statsview"
	"github.com/nabbar/staticd/queue"
	"github.com/nabbar/staticd/session"
	"github.com/nabbar/staticd/stats"
)

// Server is the supervisor owning every long-lived resource: listener,
// queue, cache, stats, access log, and the worker set.
type Server struct {
	cfg *config.ServerConfig

	ln    net.Listener
	q     *queue.Queue
	c     *cache.Cache
	st    *stats.Stats
	al    *accesslog.Logger
	acc   *acceptor.Acceptor
	group *errgroup.Group

	running   atomic.Bool
	shutdown  sync.Once
	formatJSN session.StatsFormatter
	dashboard session.StatsFormatter
}

// New builds a Server bound to cfg's listen port. formatJSN and dashboard
// render the /stats and /dashboard response bodies from a stats snapshot —
// presentation concerns injected from outside the core per spec §1. A nil
// dashboard falls back to statsview.Dashboard.
func New(cfg *config.ServerConfig, formatJSN session.StatsFormatter, dashboard session.StatsFormatter) (*Server, error) {
	al, err := accesslog.Open(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	if dashboard == nil {
		dashboard = statsview.Dashboard
	}

	return &Server{
		cfg:       cfg,
		q:         queue.New(int(cfg.QueueCapacity)),
		c:         cache.New(cfg.CacheBytes),
		st:        stats.New(time.Now()),
		al:        al,
		formatJSN: formatJSN,
		dashboard: dashboard,
	}, nil
}

// Stats exposes the live counters, the same ones the session loop's
// /stats, /dashboard and /metrics routes render.
func (s *Server) Stats() *stats.Stats { return s.st }

// Listen binds the configured port, starts the acceptor and the fixed
// worker pool of cfg.PoolSize() session workers, and returns once the
// listener is bound (the accept loop and workers run in background
// goroutines).
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return apperror.New(apperror.ErrorListenBind, err)
	}
	s.ln = ln

	s.acc = &acceptor.Acceptor{Listener: ln, Queue: s.q, Stats: s.st}

	g, _ := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		s.acc.Run()
		return nil
	})

	files := fileserver.New(s.c, nil)
	metrics := statsview.NewMetricsRenderer(s.st)
	handler := &session.Handler{
		Config:    s.cfg,
		Files:     files,
		Stats:     s.st,
		Access:    s.al,
		FormatJSN: s.formatJSN,
		Dashboard: func() []byte { return s.dashboard(s.st.Snapshot()) },
		Metrics:   metrics.Render,
	}

	for i := 0; i < s.cfg.PoolSize(); i++ {
		g.Go(func() error {
			for {
				conn, err := s.q.Dequeue()
				if err != nil {
					return nil
				}
				handler.Serve(conn)
			}
		})
	}

	s.running.Store(true)
	logx.Infof("staticd listening on %s (pool size %d)", ln.Addr(), s.cfg.PoolSize())
	return nil
}

// Addr returns the bound listener address, valid after a successful
// Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown tears down the supervisor in the order spec §4.I mandates:
// close the listener (unblocks the acceptor), shut down the queue (wakes
// workers), wait for workers to drain, destroy the cache, then flush and
// close the access log. Idempotent.
func (s *Server) Shutdown() error {
	var err error
	s.shutdown.Do(func() {
		logx.Infof("staticd shutting down")
		s.running.Store(false)

		if s.ln != nil {
			_ = s.ln.Close()
		}

		s.q.Shutdown()

		if s.group != nil {
			_ = s.group.Wait()
		}

		s.c.Destroy()

		err = s.al.Close()
	})
	return err
}

// IsRunning reports whether Listen has succeeded and Shutdown has not yet
// run.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// WaitNotify blocks until SIGINT, SIGTERM, or SIGQUIT arrives (or ctx is
// cancelled), then runs Shutdown. Mirrors the teacher's signal-driven
// graceful-stop entry point for the CLI front door.
func (s *Server) WaitNotify(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	return s.Shutdown()
}
