package httpcodec_test

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/staticd/httpcodec"
)

func TestParseValidGetRequest(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nRange: bytes=0-99\r\n\r\n"
	req, err := httpcodec.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Method != "GET" || req.Path != "/index.html" || req.Version != "HTTP/1.1" {
		t.Fatalf("unexpected parse: %+v", req)
	}
	if req.Host != "example.com" {
		t.Fatalf("unexpected host: %q", req.Host)
	}
	if req.RangeSpec == nil || !req.RangeSpec.HasStart || !req.RangeSpec.HasEnd {
		t.Fatalf("expected parsed range, got %+v", req.RangeSpec)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := httpcodec.Parse([]byte("GET / HTTP/2.0\r\n\r\n"))
	if err != httpcodec.ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseRejectsMissingRequestLineTerminator(t *testing.T) {
	_, err := httpcodec.Parse([]byte("GET / HTTP/1.1"))
	if err != httpcodec.ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestParseIgnoresUnrecognizedHeaders(t *testing.T) {
	raw := "HEAD /a HTTP/1.0\r\nUser-Agent: test\r\nHost: h\r\n\r\n"
	req, err := httpcodec.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Host != "h" {
		t.Fatalf("expected host h, got %q", req.Host)
	}
}

func TestParseMalformedRangeYieldsNoRange(t *testing.T) {
	raw := "GET /a HTTP/1.1\r\nRange: garbage\r\n\r\n"
	req, err := httpcodec.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RangeSpec != nil {
		t.Fatalf("expected nil range for malformed header, got %+v", req.RangeSpec)
	}
}

func TestParseRangeSuffixForm(t *testing.T) {
	rs, ok := httpcodec.ParseRange("bytes=-100")
	if !ok {
		t.Fatalf("expected suffix range to parse")
	}
	start, end, ok := rs.Resolve(1000)
	if !ok {
		t.Fatalf("expected resolvable range")
	}
	if start != 900 || end != 999 {
		t.Fatalf("expected [900,999], got [%d,%d]", start, end)
	}
}

func TestParseRangeOpenEndedForm(t *testing.T) {
	rs, ok := httpcodec.ParseRange("bytes=500-")
	if !ok {
		t.Fatalf("expected open-ended range to parse")
	}
	start, end, ok := rs.Resolve(1000)
	if !ok || start != 500 || end != 999 {
		t.Fatalf("expected [500,999], got [%d,%d] ok=%v", start, end, ok)
	}
}

func TestResolveRejectsOutOfBoundsRange(t *testing.T) {
	rs, ok := httpcodec.ParseRange("bytes=2000-3000")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	if _, _, ok := rs.Resolve(1000); ok {
		t.Fatalf("expected out-of-bounds range to be unsatisfiable")
	}
}

func TestMimeTypeClassification(t *testing.T) {
	cases := map[string]string{
		"/a/index.html": "text/html",
		"/style.css":    "text/css",
		"/app.js":       "application/javascript",
		"/pic.png":      "image/png",
		"/pic.jpg":      "image/jpeg",
		"/pic.jpeg":     "image/jpeg",
		"/file.bin":     "application/octet-stream",
		"/noext":        "application/octet-stream",
	}
	for path, want := range cases {
		if got := httpcodec.MimeType(path); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestResponseWriteToProducesWellFormedHeaders(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	resp := httpcodec.NewResponse(200, "text/html", 5, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	resp.SetConnection(true)
	resp.Body = []byte("hello")

	w := httpcodec.NewWriter(server)
	done := make(chan struct{})
	var n int64
	var werr error
	go func() {
		n, werr = resp.WriteTo(w)
		close(done)
	}()

	buf := make([]byte, 512)
	total := 0
	client.SetReadDeadline(time.Now().Add(time.Second))
	for total < 5 && !strings.Contains(string(buf[:total]), "hello") {
		m, err := client.Read(buf[total:])
		if err != nil {
			break
		}
		total += m
	}
	<-done

	if werr != nil {
		t.Fatalf("unexpected write error: %v", werr)
	}
	out := string(buf[:total])
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5") {
		t.Fatalf("expected content-length header, got %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive") {
		t.Fatalf("expected keep-alive header, got %q", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("expected body to follow headers, got %q", out)
	}
	if n != int64(len(out)) {
		t.Fatalf("expected byte count %d to match written length, got %d", len(out), n)
	}
}

func TestReadRequestStopsAtHeaderTerminator(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	raw, err := httpcodec.ReadRequest(server)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(string(raw), "\r\n\r\n") {
		t.Fatalf("expected raw request to end at header terminator, got %q", raw)
	}
}
