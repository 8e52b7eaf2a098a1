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

// Package queue implements the bounded FIFO of accepted-but-unprocessed
// client connections described by spec §4.C: blocking producer/consumer
// ends plus a non-blocking try-enqueue for the acceptor's backpressure
// path. A buffered channel's send-blocks-when-full / receive-blocks-when-
// empty semantics are exactly the not_full/not_empty condition pair of the
// original semaphore-guarded ring buffer — see DESIGN.md for the mapping.
package queue

import (
	"errors"
	"net"
	"sync"
)

// ErrStopped is returned by Dequeue once shutdown has been signalled and
// the queue has drained.
var ErrStopped = errors.New("queue: stopped")

// ErrFull is returned by TryEnqueue when the queue is at capacity.
var ErrFull = errors.New("queue: full")

// Queue is a fixed-capacity FIFO of accepted client connections.
type Queue struct {
	items    chan net.Conn
	capacity int

	closeOnce sync.Once
	stopped   chan struct{}
}

// New creates a Queue with the given capacity (must be >= 1).
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:    make(chan net.Conn, capacity),
		capacity: capacity,
		stopped:  make(chan struct{}),
	}
}

// Capacity returns the fixed bound N = queue_capacity.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Len returns the number of connections currently queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// TryEnqueue is the non-blocking producer path used by the acceptor: it
// never blocks the accept loop. Returns ErrFull if the queue holds N
// items.
func (q *Queue) TryEnqueue(conn net.Conn) error {
	select {
	case <-q.stopped:
		return ErrStopped
	default:
	}

	select {
	case q.items <- conn:
		return nil
	default:
		return ErrFull
	}
}

// Enqueue blocks until a slot is free. Used only when backpressure is
// desired; the acceptor itself always uses TryEnqueue.
func (q *Queue) Enqueue(conn net.Conn) error {
	select {
	case q.items <- conn:
		return nil
	case <-q.stopped:
		return ErrStopped
	}
}

// Dequeue blocks until an item is available, or returns ErrStopped once
// Shutdown has been called and no items remain. A connection already
// queued before Shutdown is always delivered before ErrStopped is
// returned: the items channel is preferred over the stopped signal.
func (q *Queue) Dequeue() (net.Conn, error) {
	// Fast path: drain whatever is already buffered without racing the
	// stopped signal in a two-way select.
	select {
	case conn, ok := <-q.items:
		if ok {
			return conn, nil
		}
		return nil, ErrStopped
	default:
	}

	select {
	case conn, ok := <-q.items:
		if ok {
			return conn, nil
		}
		return nil, ErrStopped
	case <-q.stopped:
		// Shutdown fired while we were about to block; make one more
		// non-blocking attempt so a connection enqueued right before
		// shutdown is not abandoned in the channel.
		select {
		case conn, ok := <-q.items:
			if ok {
				return conn, nil
			}
		default:
		}
		return nil, ErrStopped
	}
}

// Shutdown sets the stopping flag and wakes all waiters. Idempotent.
func (q *Queue) Shutdown() {
	q.closeOnce.Do(func() {
		close(q.stopped)
	})
}
