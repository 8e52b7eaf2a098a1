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

// Package apperror provides coded, traceable errors for operational failures:
// configuration loading, socket binding, and pool construction. Request-level
// failures (400/403/404/etc.) are plain HTTP responses, not apperror values.
package apperror

// CodeError classifies an operational failure the way an HTTP status code
// classifies a response, so startup failures can be matched by cause.
type CodeError uint16

const (
	UnknownError CodeError = iota
	ErrorConfigRead
	ErrorConfigParse
	ErrorConfigInvalid
	ErrorListenBind
	ErrorListenAccept
	ErrorPoolCreate
	ErrorCacheInit
	ErrorLogOpen
)

var messages = map[CodeError]string{
	UnknownError:       "unknown error",
	ErrorConfigRead:     "cannot read configuration file",
	ErrorConfigParse:    "cannot parse configuration file",
	ErrorConfigInvalid:  "configuration failed validation",
	ErrorListenBind:     "cannot bind listening socket",
	ErrorListenAccept:   "fatal error accepting connections",
	ErrorPoolCreate:     "cannot create worker pool",
	ErrorCacheInit:      "cannot initialize content cache",
	ErrorLogOpen:        "cannot open access log file",
}

func (c CodeError) String() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[UnknownError]
}
