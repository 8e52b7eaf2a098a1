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

package apperror

import (
	"fmt"
	"runtime"
)

// Error is a coded error carrying the call site where it was raised and an
// optional parent (wrapped) error.
type Error interface {
	error
	Code() CodeError
	IsCode(code CodeError) bool
	Unwrap() error
	File() string
	Line() int
}

type appError struct {
	code   CodeError
	parent error
	file   string
	line   int
}

// New creates an Error with the given code and optional parent, capturing
// the caller's file and line the way a stack-tracing error package would.
func New(code CodeError, parent error) Error {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}

	return &appError{
		code:   code,
		parent: parent,
		file:   file,
		line:   line,
	}
}

func (e *appError) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("%s: %s (at %s:%d)", e.code, e.parent.Error(), e.file, e.line)
	}
	return fmt.Sprintf("%s (at %s:%d)", e.code, e.file, e.line)
}

func (e *appError) Code() CodeError {
	return e.code
}

func (e *appError) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *appError) Unwrap() error {
	return e.parent
}

func (e *appError) File() string {
	return e.file
}

func (e *appError) Line() int {
	return e.line
}
