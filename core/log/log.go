// log.go - Logging backend.
// Copyright (C) 2024  The SolConnect developers.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package log provides the process-wide logging backend, with
// per-component loggers hanging off a shared leveled writer.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/op/go-logging.v1"
)

const fmtString = "%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"

// Backend is a log backend shared by every component of a process.
type Backend struct {
	backend logging.LeveledBackend
}

// New initializes a logging backend, writing to the file f, or stdout
// when f is empty.  The level is one of the go-logging level names
// (DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL).  When disable is
// set, all output is discarded.
func New(f string, level string, disable bool) (*Backend, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	switch {
	case disable:
		w = io.Discard
	case f == "":
		w = os.Stdout
	default:
		w, err = os.OpenFile(f, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("log: failed to open log file: %v", err)
		}
	}

	base := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(base, logging.MustStringFormatter(fmtString))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")

	return &Backend{backend: leveled}, nil
}

// GetLogger returns a per-module Logger attached to the Backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// GetLogWriter returns an io.Writer that logs each write as one entry
// at the specified level, useful for capturing subprocess output.
func (b *Backend) GetLogWriter(module string, level string) io.Writer {
	lvl, err := ParseLevel(level)
	if err != nil {
		panic("log: GetLogWriter() called with invalid level: " + level)
	}
	return &logWriter{l: b.GetLogger(module), lvl: lvl}
}

// ParseLevel converts a level name to a logging.Level.
func ParseLevel(level string) (logging.Level, error) {
	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		return 0, fmt.Errorf("log: invalid level: '%v'", level)
	}
	return lvl, nil
}

type logWriter struct {
	l   *logging.Logger
	lvl logging.Level
}

func (w *logWriter) Write(p []byte) (int, error) {
	s := strings.TrimRight(string(p), "\n")
	switch w.lvl {
	case logging.DEBUG:
		w.l.Debug(s)
	case logging.INFO:
		w.l.Info(s)
	case logging.NOTICE:
		w.l.Notice(s)
	case logging.WARNING:
		w.l.Warning(s)
	case logging.ERROR:
		w.l.Error(s)
	default:
		w.l.Critical(s)
	}
	return len(p), nil
}
