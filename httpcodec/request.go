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

// Package httpcodec implements the request-line/header subset and
// response formatting of spec §4.E: any method token is parsed (the
// session loop answers non-GET/HEAD with 501), Host and Range as the
// only recognized headers, a fixed 1024-byte read buffer, and a
// Combined-Log-Format-friendly response writer.
package httpcodec

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// BufferSize is the fixed-size read buffer the codec fills per spec §4.E.
// A request whose headers do not fit is rejected with 400.
const BufferSize = 1024

// ErrHeadersTooLarge is returned when CRLFCRLF never appears within
// BufferSize-1 bytes.
var ErrHeadersTooLarge = errors.New("httpcodec: request headers exceed buffer size")

// ErrMalformed is returned for any request line that does not parse as
// METHOD SP PATH SP VERSION with a supported VERSION token.
var ErrMalformed = errors.New("httpcodec: malformed request line")

// Request is the parsed subset of an HTTP/1.x request this server acts on.
type Request struct {
	Method  string
	Path    string
	Version string
	Host    string

	// RangeSpec is nil when no Range header was present or it was
	// malformed — malformed Range degrades to "no range" per spec §4.E.
	RangeSpec *RangeSpec
}

// KeepAlivePreferred reports the protocol-level default before any
// status-code override: true for HTTP/1.1, false for HTTP/1.0.
func (r *Request) KeepAlivePreferred() bool {
	return r.Version == "HTTP/1.1"
}

// ReadRequest fills a fixed BufferSize buffer from conn, stopping at the
// header terminator, buffer exhaustion, peer close, or the read deadline
// already configured on conn by the caller (spec §4.G: 5s idle timeout).
// It returns the raw bytes read (header bytes only; any body is ignored
// per spec §4.E) or an error if no terminator was found.
func ReadRequest(conn net.Conn) ([]byte, error) {
	buf := make([]byte, BufferSize)
	total := 0

	for total < BufferSize-1 {
		n, err := conn.Read(buf[total : BufferSize-1])
		if n > 0 {
			total += n
			if bytes.Contains(buf[:total], []byte("\r\n\r\n")) {
				return buf[:total], nil
			}
		}
		if err != nil {
			if total > 0 && bytes.Contains(buf[:total], []byte("\r\n\r\n")) {
				return buf[:total], nil
			}
			return nil, err
		}
		if n == 0 {
			return nil, io.EOF
		}
	}

	return nil, ErrHeadersTooLarge
}

// Parse tokenizes the request line and scans headers for Host and Range
// only, per spec §4.E. Method/path/version length bounds mirror the
// original fixed-size C buffers (15/511/15 bytes).
func Parse(raw []byte) (*Request, error) {
	text := string(raw)
	lineEnd := strings.Index(text, "\r\n")
	if lineEnd < 0 {
		return nil, ErrMalformed
	}

	requestLine := text[:lineEnd]
	fields := strings.Fields(requestLine)
	if len(fields) != 3 {
		return nil, ErrMalformed
	}

	method, path, version := fields[0], fields[1], fields[2]
	if len(method) > 15 || len(path) > 511 || len(version) > 15 {
		return nil, ErrMalformed
	}
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		return nil, ErrMalformed
	}

	req := &Request{Method: method, Path: path, Version: version}

	headerBlock := text[lineEnd+2:]
	if idx := strings.Index(headerBlock, "\r\n\r\n"); idx >= 0 {
		headerBlock = headerBlock[:idx]
	}

	for _, line := range strings.Split(headerBlock, "\r\n") {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])

		switch strings.ToLower(name) {
		case "host":
			req.Host = terminateAtCRLFSP(value)
		case "range":
			if rs, ok := ParseRange(value); ok {
				req.RangeSpec = rs
			}
		}
	}

	return req, nil
}

func terminateAtCRLFSP(v string) string {
	for i, r := range v {
		if r == '\r' || r == '\n' || r == ' ' {
			return v[:i]
		}
	}
	return v
}

// RangeSpec is one of the three Range grammars accepted by spec §4.E.
type RangeSpec struct {
	// HasStart/HasEnd indicate which of start/end were given explicitly.
	HasStart bool
	HasEnd   bool
	Start    int64
	End      int64
	// Suffix is set for the "bytes=-N" form; Start/End are unused then.
	IsSuffix bool
	Suffix   int64
}

// ParseRange parses a Range header value of the form bytes=<start>-<end>,
// bytes=<start>-, or bytes=-<suffix>. Any other shape is reported as not
// ok, which the caller treats as "no range".
func ParseRange(value string) (*RangeSpec, bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(value, prefix) {
		return nil, false
	}
	spec := strings.TrimPrefix(value, prefix)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return nil, false
	}

	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// bytes=-suffix
		if endStr == "" {
			return nil, false
		}
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix < 0 {
			return nil, false
		}
		return &RangeSpec{IsSuffix: true, Suffix: suffix}, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, false
	}

	if endStr == "" {
		return &RangeSpec{HasStart: true, Start: start}, true
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return nil, false
	}

	return &RangeSpec{HasStart: true, HasEnd: true, Start: start, End: end}, true
}

// Resolve computes the effective [start, end] window against a file of
// size S, per spec §4.F step 5. ok is false when the range is unsatisfiable
// (start > end, or end >= S), in which case the caller emits 416.
func (rs *RangeSpec) Resolve(size int64) (start, end int64, ok bool) {
	switch {
	case rs.IsSuffix:
		start = size - rs.Suffix
		if start < 0 {
			start = 0
		}
		end = size - 1
	case rs.HasEnd:
		start, end = rs.Start, rs.End
	default:
		start, end = rs.Start, size-1
	}

	if size <= 0 || start < 0 || end < 0 || start > end || end >= size {
		return 0, 0, false
	}
	return start, end, true
}

// Writer formats and sends responses on conn, tracking the byte count
// actually written so callers can feed stats.RequestServed.
type Writer struct {
	w io.Writer
}

// NewWriter wraps conn's write side in a buffered writer for response
// formatting.
func NewWriter(conn net.Conn) *Writer {
	return &Writer{w: bufio.NewWriter(conn)}
}

// httpDate formats t in the RFC-1123 GMT form mandated by spec §4.E.
func httpDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

// MimeType classifies path by extension only, per spec §4.E.
func MimeType(path string) string {
	ext := strings.ToLower(pathExt(path))
	switch ext {
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func pathExt(p string) string {
	for i := len(p) - 1; i >= 0 && p[i] != '/'; i-- {
		if p[i] == '.' {
			return p[i:]
		}
	}
	return ""
}
