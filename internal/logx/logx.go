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

// Package logx is a thin leveled-logging wrapper around logrus for process
// diagnostics (startup, shutdown, recoverable errors). It is distinct from
// the fixed-format access logger in package accesslog.
package logx

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	std  *logrus.Logger
)

func std_() *logrus.Logger {
	once.Do(func() {
		std = logrus.New()
		std.SetOutput(os.Stderr)
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		std.SetLevel(logrus.InfoLevel)
	})
	return std
}

// SetLevel adjusts the minimum level emitted by the process logger.
func SetLevel(level logrus.Level) {
	std_().SetLevel(level)
}

func Infof(format string, args ...interface{}) {
	std_().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	std_().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	std_().Errorf(format, args...)
}

// WithField returns an entry for call sites that want request correlation
// (e.g. a session's request id) attached to every subsequent log line.
func WithField(key string, value interface{}) *logrus.Entry {
	return std_().WithField(key, value)
}
