package queue_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nabbar/staticd/queue"
)

func pipeConn() net.Conn {
	c1, _ := net.Pipe()
	return c1
}

func TestTryEnqueueFullReturnsErrFull(t *testing.T) {
	q := queue.New(1)

	if err := q.TryEnqueue(pipeConn()); err != nil {
		t.Fatalf("expected first enqueue to succeed, got %v", err)
	}
	if err := q.TryEnqueue(pipeConn()); err != queue.ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestFIFOOrdering(t *testing.T) {
	q := queue.New(4)
	conns := make([]net.Conn, 4)
	for i := range conns {
		conns[i] = pipeConn()
		if err := q.TryEnqueue(conns[i]); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := range conns {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if got != conns[i] {
			t.Fatalf("expected FIFO order at %d", i)
		}
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := queue.New(1)
	done := make(chan net.Conn, 1)

	go func() {
		conn, err := q.Dequeue()
		if err != nil {
			t.Error(err)
			return
		}
		done <- conn
	}()

	time.Sleep(20 * time.Millisecond)
	c := pipeConn()
	if err := q.TryEnqueue(c); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case got := <-done:
		if got != c {
			t.Fatalf("expected dequeued conn to match enqueued conn")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue")
	}
}

func TestShutdownWakesWaitersWithStopped(t *testing.T) {
	q := queue.New(1)
	errCh := make(chan error, 1)

	go func() {
		_, err := q.Dequeue()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case err := <-errCh:
		if err != queue.ErrStopped {
			t.Fatalf("expected ErrStopped, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown wake")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	q := queue.New(1)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Shutdown()
		}()
	}
	wg.Wait()
}

func TestQueuedConnectionDeliveredBeforeStoppedAfterShutdown(t *testing.T) {
	q := queue.New(2)
	c := pipeConn()
	if err := q.TryEnqueue(c); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	q.Shutdown()

	got, err := q.Dequeue()
	if err != nil {
		t.Fatalf("expected queued item to be delivered, got err %v", err)
	}
	if got != c {
		t.Fatalf("expected the queued connection")
	}

	if _, err := q.Dequeue(); err != queue.ErrStopped {
		t.Fatalf("expected ErrStopped after drain, got %v", err)
	}
}
