package fileserver_test

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/staticd/cache"
	"github.com/nabbar/staticd/fileserver"
	"github.com/nabbar/staticd/httpcodec"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("writefile: %v", err)
	}
	return p
}

// readAll drains conn until the writer side (signalled by done) has
// finished and no further bytes arrive within a short grace window. Since
// net.Pipe is synchronous, a completed WriteTo on the other end guarantees
// every written byte has already been matched to a Read by the time done
// closes.
func readAll(t *testing.T, conn net.Conn, done <-chan struct{}) string {
	t.Helper()
	buf := make([]byte, 8192)
	total := 0

	for {
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			select {
			case <-done:
				return string(buf[:total])
			default:
				continue
			}
		}
	}
}

func serveOnPipe(t *testing.T, s *fileserver.Server, path string, includeBody bool, rng *httpcodec.RangeSpec, keepAlive bool) (int, int64, string) {
	t.Helper()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	w := httpcodec.NewWriter(server)
	done := make(chan struct{})
	var status int
	var n int64
	go func() {
		status, n = s.Serve(w, path, includeBody, rng, keepAlive)
		close(done)
	}()

	out := readAll(t, client, done)
	return status, n, out
}

func TestServeFullFileCacheMiss(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.html", "<html>hi</html>")

	s := fileserver.New(cache.New(1<<20), nil)
	status, n, out := serveOnPipe(t, s, p, true, nil, true)

	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(out, "Content-Type: text/html") {
		t.Fatalf("expected html content-type, got %q", out)
	}
	if !strings.HasSuffix(out, "<html>hi</html>") {
		t.Fatalf("expected body in output, got %q", out)
	}
	if n != int64(len(out)) {
		t.Fatalf("byte count mismatch: %d vs %d", n, len(out))
	}

	// second read should now be a cache hit
	status2, _, out2 := serveOnPipe(t, s, p, true, nil, true)
	if status2 != 200 || !strings.HasSuffix(out2, "<html>hi</html>") {
		t.Fatalf("expected cache-hit 200 with same body, got %d %q", status2, out2)
	}
}

func TestServeHeadOmitsBody(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", "some content")

	s := fileserver.New(nil, nil)
	status, _, out := serveOnPipe(t, s, p, false, nil, true)

	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if strings.Contains(out, "some content") {
		t.Fatalf("expected HEAD response to omit body, got %q", out)
	}
}

func TestServeMissingFileReturns404(t *testing.T) {
	s := fileserver.New(nil, nil)
	status, _, out := serveOnPipe(t, s, "/no/such/file", true, nil, false)

	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if !strings.Contains(out, "404") {
		t.Fatalf("expected 404 body, got %q", out)
	}
}

func TestServeRangeFull(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.bin", "0123456789")

	s := fileserver.New(nil, nil)
	rng, ok := httpcodec.ParseRange("bytes=0-0")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	status, _, out := serveOnPipe(t, s, p, true, rng, true)

	if status != 206 {
		t.Fatalf("expected 206, got %d", status)
	}
	if !strings.Contains(out, "Content-Range: bytes 0-0/10") {
		t.Fatalf("expected content-range header, got %q", out)
	}
	if !strings.HasSuffix(out, "0") {
		t.Fatalf("expected single byte body '0', got %q", out)
	}
}

func TestServeRangeUnsatisfiableReturns416(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.bin", "0123456789")

	s := fileserver.New(nil, nil)
	rng, ok := httpcodec.ParseRange("bytes=2000-3000")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	status, _, out := serveOnPipe(t, s, p, true, rng, true)

	if status != 416 {
		t.Fatalf("expected 416, got %d", status)
	}
	if !strings.Contains(out, "Content-Range: bytes */10") {
		t.Fatalf("expected unsatisfied content-range, got %q", out)
	}
	if !strings.Contains(out, "<h1>") {
		t.Fatalf("expected an error body on the 416 response, got %q", out)
	}
}

func TestServeLargeFileBypassesCache(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", cache.MaxCacheableSize)
	p := writeFile(t, dir, "big.bin", big)

	c := cache.New(2 << 20)
	s := fileserver.New(c, nil)
	status, _, _ := serveOnPipe(t, s, p, false, nil, true)

	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if c.Len() != 0 {
		t.Fatalf("expected large file not cached, got %d entries", c.Len())
	}
}

func TestServeRangeNeverConsultsCache(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.bin", "0123456789")

	c := cache.New(1 << 20)
	s := fileserver.New(c, nil)

	rng, _ := httpcodec.ParseRange("bytes=0-4")
	serveOnPipe(t, s, p, true, rng, true)

	if c.Len() != 0 {
		t.Fatalf("expected range response to bypass cache insertion, got %d entries", c.Len())
	}
}
