// Copyright 2022 The mlockmon Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	stdlog "log"
	"os"
	"sync"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logging is the shared state of all loggers.
type logging struct {
	sync.RWMutex
	level   Level
	debug   map[string]bool
	out     *stdlog.Logger
	loggers map[string]*logger
}

var log = &logging{
	level:   LevelInfo,
	debug:   make(map[string]bool),
	out:     stdlog.New(os.Stderr, "", stdlog.LstdFlags),
	loggers: make(map[string]*logger),
}

// logger implements Logger for a single source.
type logger struct {
	source string
	prefix string
}

// NewLogger creates a logger instance for the given source.
func NewLogger(source string) Logger {
	log.Lock()
	defer log.Unlock()

	if l, ok := log.loggers[source]; ok {
		return l
	}
	l := &logger{
		source: source,
		prefix: fmt.Sprintf("[%s] ", source),
	}
	log.loggers[source] = l

	return l
}

// SetLevel sets the least severe message severity that gets emitted.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.level = level
}

// SetOutput redirects all loggers to the given standard logger.
func SetOutput(out *stdlog.Logger) {
	log.Lock()
	defer log.Unlock()
	log.out = out
}

func (l *logger) passthrough(level Level) bool {
	log.RLock()
	defer log.RUnlock()
	if level == LevelDebug {
		return log.level == LevelDebug || log.debug[l.source]
	}
	return log.level <= level
}

func (l *logger) emit(tag, format string, args ...interface{}) {
	log.RLock()
	out := log.out
	log.RUnlock()
	out.Printf(tag+": "+l.prefix+format, args...)
}

// Debug emits a debug message, if debugging is enabled for the source.
func (l *logger) Debug(format string, args ...interface{}) {
	if !l.passthrough(LevelDebug) {
		return
	}
	l.emit("D", format, args...)
}

// Info emits an informational message.
func (l *logger) Info(format string, args ...interface{}) {
	if !l.passthrough(LevelInfo) {
		return
	}
	l.emit("I", format, args...)
}

// Warn emits a warning message.
func (l *logger) Warn(format string, args ...interface{}) {
	if !l.passthrough(LevelWarn) {
		return
	}
	l.emit("W", format, args...)
}

// Error emits an error message.
func (l *logger) Error(format string, args ...interface{}) {
	if !l.passthrough(LevelError) {
		return
	}
	l.emit("E", format, args...)
}

// Fatal emits an error message and exits with status 1.
func (l *logger) Fatal(format string, args ...interface{}) {
	l.emit("E", format, args...)
	os.Exit(1)
}

// EnableDebug controls debug logging for the source.
func (l *logger) EnableDebug(enable bool) bool {
	log.Lock()
	defer log.Unlock()
	old := log.debug[l.source]
	log.debug[l.source] = enable
	return old
}

// DebugEnabled checks if debug logging is enabled for the source.
func (l *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()
	return log.debug[l.source]
}

// Source returns the source name of the logger.
func (l *logger) Source() string {
	return l.source
}

// Default logger/source.
var defLogger = NewLogger("default")

// Default gets the default logger.
func Default() Logger {
	return defLogger
}

// Info emits an info message with the default source.
func Info(format string, args ...interface{}) {
	defLogger.Info(format, args...)
}

// Warn emits a warning message with the default source.
func Warn(format string, args ...interface{}) {
	defLogger.Warn(format, args...)
}

// Error emits an error message with the default source.
func Error(format string, args ...interface{}) {
	defLogger.Error(format, args...)
}

// Fatal emits a fatal error message with the default source.
func Fatal(format string, args ...interface{}) {
	defLogger.Fatal(format, args...)
}

// Debug emits a debug message with the default source.
func Debug(format string, args ...interface{}) {
	defLogger.Debug(format, args...)
}
