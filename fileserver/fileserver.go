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

// Package fileserver implements the file responder of spec §4.F: cache
// lookup, full and partial (Range) transmission, and the 404/403/416/500
// error paths, each returning the exact byte count sent for stats
// accounting.
package fileserver

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nabbar/staticd/cache"
	"github.com/nabbar/staticd/httpcodec"
)

// ErrorBodyFunc supplies the HTML body for an error status. The default
// DefaultErrorBody renders a minimal <h1> fallback; callers may inject a
// richer lookup (e.g. reading ./www/404.html) the way the original
// send_error_page did.
type ErrorBodyFunc func(status int) []byte

// DefaultErrorBody mirrors send_error's inline fallback bodies.
func DefaultErrorBody(status int) []byte {
	return []byte("<h1>" + httpcodec.StatusText(status) + "</h1>")
}

// Server serves files from disk through an optional cache.
type Server struct {
	Cache     *cache.Cache
	ErrorBody ErrorBodyFunc
	Now       func() time.Time
}

// New creates a Server. A nil c disables caching; a nil errBody uses
// DefaultErrorBody.
func New(c *cache.Cache, errBody ErrorBodyFunc) *Server {
	if errBody == nil {
		errBody = DefaultErrorBody
	}
	return &Server{Cache: c, ErrorBody: errBody, Now: time.Now}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Serve implements spec §4.F steps 1-6: given an absolute path, whether to
// include a body (false for HEAD), and an optional Range, it writes the
// appropriate response to w and returns the HTTP status and the exact
// byte count sent.
func (s *Server) Serve(w *httpcodec.Writer, path string, includeBody bool, rng *httpcodec.RangeSpec, keepAlive bool) (status int, bytesSent int64) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsPermission(err) {
			return s.writeError(w, 403, keepAlive)
		}
		return s.writeError(w, 404, keepAlive)
	}
	if info.IsDir() {
		return s.writeError(w, 404, keepAlive)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return s.writeError(w, 403, keepAlive)
		}
		return s.writeError(w, 500, keepAlive)
	}
	defer f.Close()

	size := info.Size()

	if rng != nil {
		return s.serveRange(w, f, path, size, rng, includeBody, keepAlive)
	}
	return s.serveFull(w, f, path, size, includeBody, keepAlive)
}

func (s *Server) serveFull(w *httpcodec.Writer, f *os.File, path string, size int64, includeBody, keepAlive bool) (int, int64) {
	if s.Cache != nil && s.Cache.Enabled() && size < cache.MaxCacheableSize {
		if view, ok := s.Cache.Get(path); ok {
			defer view.Release()
			return s.writeFullBody(w, path, view.Bytes, includeBody, keepAlive)
		}
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return s.writeError(w, 500, keepAlive)
	}

	if s.Cache != nil && s.Cache.Enabled() && size < cache.MaxCacheableSize {
		s.Cache.Put(path, data)
	}

	return s.writeFullBody(w, path, data, includeBody, keepAlive)
}

func (s *Server) writeFullBody(w *httpcodec.Writer, path string, data []byte, includeBody, keepAlive bool) (int, int64) {
	resp := httpcodec.NewResponse(200, httpcodec.MimeType(path), int64(len(data)), s.now())
	resp.SetConnection(keepAlive)
	if includeBody {
		resp.Body = data
	}
	n, err := resp.WriteTo(w)
	if err != nil {
		return 200, n
	}
	return 200, n
}

func (s *Server) serveRange(w *httpcodec.Writer, f *os.File, path string, size int64, rng *httpcodec.RangeSpec, includeBody, keepAlive bool) (int, int64) {
	start, end, ok := rng.Resolve(size)
	if !ok {
		body := s.ErrorBody(416)
		resp := httpcodec.NewResponse(416, "text/html; charset=utf-8", int64(len(body)), s.now())
		resp.SetHeader("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		resp.SetConnection(keepAlive)
		if includeBody {
			resp.Body = body
		}
		n, _ := resp.WriteTo(w)
		return 416, n
	}

	length := end - start + 1
	data := make([]byte, length)
	if _, err := f.ReadAt(data, start); err != nil && err != io.EOF {
		return s.writeError(w, 500, keepAlive)
	}

	resp := httpcodec.NewResponse(206, httpcodec.MimeType(path), length, s.now())
	resp.SetHeader("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(size, 10))
	resp.SetHeader("Accept-Ranges", "bytes")
	resp.SetConnection(keepAlive)
	if includeBody {
		resp.Body = data
	}
	n, _ := resp.WriteTo(w)
	return 206, n
}

func (s *Server) writeError(w *httpcodec.Writer, status int, keepAlive bool) (int, int64) {
	body := s.ErrorBody(status)
	resp := httpcodec.NewResponse(status, "text/html; charset=utf-8", int64(len(body)), s.now())
	resp.Body = body
	resp.SetConnection(keepAlive)
	n, _ := resp.WriteTo(w)
	return status, n
}
