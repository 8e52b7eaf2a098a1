package accesslog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/staticd/accesslog"
)

func TestLogOmitsRequestIDFromTheCombinedFormatLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")

	l, err := accesslog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	entry := accesslog.Entry{
		Method: "GET", Path: "/a", Version: "HTTP/1.1", Status: 200, Bytes: 42,
		Timestamp: ts, RequestID: "11111111-2222-3333-4444-555555555555",
	}
	if err := l.Log(entry); err != nil {
		t.Fatalf("log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	want := `- - - [04/Mar/2024:05:06:07 +0000] "GET /a HTTP/1.1" 200 42 "-" "-"` + "\n"
	if line != want {
		t.Fatalf("expected RequestID to be excluded from the fixed-format line:\ngot:  %q\nwant: %q", line, want)
	}
}

func TestLogWritesCombinedFormatLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")

	l, err := accesslog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := l.Log(accesslog.Entry{Method: "GET", Path: "/a", Version: "HTTP/1.1", Status: 200, Bytes: 42, Timestamp: ts}); err != nil {
		t.Fatalf("log: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	want := `- - - [04/Mar/2024:05:06:07 +0000] "GET /a HTTP/1.1" 200 42 "-" "-"` + "\n"
	if line != want {
		t.Fatalf("unexpected log line:\ngot:  %q\nwant: %q", line, want)
	}
}

func TestLogMissingFieldsRenderAsDash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")

	l, err := accesslog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if err := l.Log(accesslog.Entry{Status: 400, Bytes: 0, Timestamp: time.Now()}); err != nil {
		t.Fatalf("log: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"- - -" 400 0`) {
		t.Fatalf("expected dashes for missing method/path/version, got %q", data)
	}
}

func TestLogAppendsAcrossMultipleCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")

	l, err := accesslog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	for i := 0; i < 3; i++ {
		if err := l.Log(accesslog.Entry{Method: "GET", Path: "/x", Version: "HTTP/1.1", Status: 200, Bytes: 1, Timestamp: time.Now()}); err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), data)
	}
}

func TestRotationRenamesToOldAndUnlinksPreviousOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	oldPath := path + ".old"

	if err := os.WriteFile(oldPath, []byte("stale-previous-rotation\n"), 0o644); err != nil {
		t.Fatalf("seed old file: %v", err)
	}

	// Pre-fill the active log past the rotation threshold directly.
	if err := os.WriteFile(path, make([]byte, accesslog.MaxSize), 0o644); err != nil {
		t.Fatalf("seed active file: %v", err)
	}

	l, err := accesslog.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if err := l.Log(accesslog.Entry{Method: "GET", Path: "/after-rotate", Version: "HTTP/1.1", Status: 200, Bytes: 1, Timestamp: time.Now()}); err != nil {
		t.Fatalf("log: %v", err)
	}

	rotated, err := os.ReadFile(oldPath)
	if err != nil {
		t.Fatalf("expected rotated .old file: %v", err)
	}
	if strings.Contains(string(rotated), "stale-previous-rotation") {
		t.Fatalf("expected previous .old file to be unlinked before rename")
	}
	if len(rotated) != accesslog.MaxSize {
		t.Fatalf("expected rotated file to hold the pre-rotation contents, got %d bytes", len(rotated))
	}

	fresh, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fresh log: %v", err)
	}
	if !strings.Contains(string(fresh), "/after-rotate") {
		t.Fatalf("expected fresh log to contain the post-rotation entry, got %q", fresh)
	}
}
