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

// Package accesslog implements the approximate Combined Log Format
// append-only writer of spec §4.J: a single lock serializes writes, and
// the file is rotated to <path>.old once it reaches MaxSize bytes.
package accesslog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// MaxSize is the rotation threshold (10 MiB per spec §4.J).
const MaxSize = 10 * 1024 * 1024

// Logger is a serialized, size-rotated access log writer.
type Logger struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open creates or appends to the log file at path.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, f: f}, nil
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Entry is one completed request/response exchange to log. RequestID
// carries the session's structured-log correlation id (see session.Handler)
// for callers that want to cross-reference an access log line against the
// process log; per spec §4.J the Combined-Log-Format line itself has no
// slot for it, so formatLine never renders it.
type Entry struct {
	Method    string
	Path      string
	Version   string
	Status    int
	Bytes     int64
	Timestamp time.Time
	RequestID string
}

// Log appends e to the log file under the serializing lock, rotating
// first if the file has reached MaxSize. Missing fields are rendered "-"
// per spec §4.J; this server never populates remote host/ident/user, so
// those three leading fields are always "-".
func (l *Logger) Log(e Entry) error {
	line := formatLine(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeededLocked(); err != nil {
		return err
	}

	_, err := l.f.WriteString(line)
	return err
}

func formatLine(e Entry) string {
	method := dash(e.Method)
	path := dash(e.Path)
	version := dash(e.Version)
	ts := e.Timestamp.UTC().Format("02/Jan/2006:15:04:05 +0000")

	return fmt.Sprintf("- - - [%s] \"%s %s %s\" %d %d \"-\" \"-\"\n",
		ts, method, path, version, e.Status, e.Bytes)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (l *Logger) rotateIfNeededLocked() error {
	info, err := l.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < MaxSize {
		return nil
	}

	if err := l.f.Close(); err != nil {
		return err
	}

	oldPath := l.path + ".old"
	_ = os.Remove(oldPath)
	if err := os.Rename(l.path, oldPath); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.f = f
	return nil
}
