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

package httpcodec

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ServerBanner is the literal Server header value, preserved verbatim
// from the original implementation's identity string.
const ServerBanner = "ConcurrentHTTP/1.0"

var statusText = map[int]string{
	200: "OK",
	206: "Partial Content",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	416: "Range Not Satisfiable",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// StatusText returns the reason phrase for status, or "Unknown" if not
// one of the nine codes this server emits.
func StatusText(status int) string {
	if t, ok := statusText[status]; ok {
		return t
	}
	return "Unknown"
}

// Response is a response under construction: status line plus an ordered
// set of headers, built up by the file responder / session loop and
// flushed in one call so the returned byte count (for stats) always
// matches what actually reached the socket.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// NewResponse starts a response with the mandatory headers spec §4.E
// requires on every reply: Server, Date, Content-Type, Content-Length.
// Connection is set separately by the caller once keep-alive policy (§4.G)
// is decided.
func NewResponse(status int, contentType string, contentLength int64, now time.Time) *Response {
	return &Response{
		Status: status,
		Headers: map[string]string{
			"Server":         ServerBanner,
			"Date":           httpDate(now),
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(contentLength, 10),
		},
	}
}

// SetConnection sets the Connection header to "keep-alive" or "close".
func (r *Response) SetConnection(keepAlive bool) {
	if keepAlive {
		r.Headers["Connection"] = "keep-alive"
	} else {
		r.Headers["Connection"] = "close"
	}
}

// SetHeader sets an additional header (Content-Range, Accept-Ranges).
func (r *Response) SetHeader(name, value string) {
	r.Headers[name] = value
}

// WriteTo formats the status line and headers and writes them followed by
// body (body is empty for HEAD responses) to w. It returns the exact byte
// count written, for stats.RequestServed accounting, per spec §4.F.6.
func (r *Response) WriteTo(w *Writer) (int64, error) {
	statusLine := fmt.Sprintf("HTTP/1.1 %d %s\r\n", r.Status, StatusText(r.Status))

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	head := statusLine
	for _, name := range names {
		head += fmt.Sprintf("%s: %s\r\n", name, r.Headers[name])
	}
	head += "\r\n"

	n, err := w.w.Write([]byte(head))
	total := int64(n)
	if err != nil {
		return total, err
	}

	if len(r.Body) > 0 {
		n, err = w.w.Write(r.Body)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	if bw, ok := w.w.(interface{ Flush() error }); ok {
		if err := bw.Flush(); err != nil {
			return total, err
		}
	}

	return total, nil
}
