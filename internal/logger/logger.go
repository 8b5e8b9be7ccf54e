// Copyright 2025 The vfscore Authors.
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

// Package logger provides the process-wide structured logger: a log/slog
// logger with a severity vocabulary of TRACE through ERROR, text or JSON
// output, and optional rotation when logging to a file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vfscore/vfscore/internal/cfg"
)

// LevelTrace sits below slog.LevelDebug; slog has no native notion of a
// trace severity.
const LevelTrace = slog.Level(-8)

// LevelOff sits above every level slog can emit, so nothing is logged.
const LevelOff = slog.Level(16)

type loggerFactory struct {
	// file is nil when logging to stderr.
	file         *lumberjack.Logger
	format       string
	level        string
	logRotateCfg cfg.LogRotationConfig
}

var (
	defaultLoggerFactory = &loggerFactory{format: "json", level: cfg.INFO}
	defaultLogger        = defaultLoggerFactory.newLogger(cfg.INFO)
)

// InitLogFile configures the default logger from the resolved logging
// config: destination file (with rotation) or stderr, format, and
// severity.
func InitLogFile(logConfig cfg.LogConfig) error {
	var file *lumberjack.Logger
	if logConfig.FilePath != "" {
		// Probe writability up front so a bad path fails at startup
		// rather than on the first log line.
		f, err := os.OpenFile(logConfig.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("creating log file %q: %w", logConfig.FilePath, err)
		}
		if err = f.Close(); err != nil {
			return err
		}
		file = &lumberjack.Logger{
			Filename:   logConfig.FilePath,
			MaxSize:    logConfig.Rotation.MaxFileSizeMb,
			MaxBackups: logConfig.Rotation.BackupFileCount,
			Compress:   logConfig.Rotation.Compress,
		}
	}

	defaultLoggerFactory = &loggerFactory{
		file:         file,
		format:       string(logConfig.Format),
		level:        string(logConfig.Severity),
		logRotateCfg: logConfig.Rotation,
	}
	defaultLogger = defaultLoggerFactory.newLogger(string(logConfig.Severity))
	return nil
}

// SetLogFormat rebuilds the default logger with the given format, keeping
// the current destination and severity.
func SetLogFormat(format string) {
	if format == defaultLoggerFactory.format {
		return
	}
	defaultLoggerFactory.format = format
	defaultLogger = defaultLoggerFactory.newLogger(defaultLoggerFactory.level)
}

// Tracef prints the message with TRACE severity.
func Tracef(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, v...))
}

// Debugf prints the message with DEBUG severity.
func Debugf(format string, v ...any) {
	defaultLogger.Debug(fmt.Sprintf(format, v...))
}

// Infof prints the message with INFO severity.
func Infof(format string, v ...any) {
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

// Warnf prints the message with WARNING severity.
func Warnf(format string, v ...any) {
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}

// Errorf prints the message with ERROR severity.
func Errorf(format string, v ...any) {
	defaultLogger.Error(fmt.Sprintf(format, v...))
}

func (f *loggerFactory) newLogger(level string) *slog.Logger {
	var programLevel = new(slog.LevelVar)
	logger := slog.New(f.createJsonOrTextHandler(f.writer(), programLevel, ""))
	setLoggingLevel(level, programLevel)
	return logger
}

func (f *loggerFactory) writer() io.Writer {
	if f.file != nil {
		return f.file
	}
	return os.Stderr
}

func (f *loggerFactory) createJsonOrTextHandler(writer io.Writer, levelVar *slog.LevelVar, prefix string) slog.Handler {
	options := &slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: replaceAttr(prefix),
	}
	if f.format == "text" {
		return slog.NewTextHandler(writer, options)
	}
	return slog.NewJSONHandler(writer, options)
}

// replaceAttr renames slog's vocabulary into the one every log consumer
// here expects: "level" becomes "severity" (with WARN spelled out and the
// custom trace level named), and "msg" becomes "message", optionally
// prefixed.
func replaceAttr(prefix string) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			a.Key = "severity"
			level := a.Value.Any().(slog.Level)
			switch {
			case level == LevelTrace:
				a.Value = slog.StringValue(cfg.TRACE)
			case level == slog.LevelWarn:
				a.Value = slog.StringValue(cfg.WARNING)
			}
		case slog.MessageKey:
			a.Key = "message"
			if prefix != "" {
				a.Value = slog.StringValue(prefix + a.Value.String())
			}
		}
		return a
	}
}

func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	switch strings.ToUpper(level) {
	case cfg.TRACE:
		programLevel.Set(LevelTrace)
	case cfg.DEBUG:
		programLevel.Set(slog.LevelDebug)
	case cfg.INFO:
		programLevel.Set(slog.LevelInfo)
	case cfg.WARNING:
		programLevel.Set(slog.LevelWarn)
	case cfg.ERROR:
		programLevel.Set(slog.LevelError)
	default:
		programLevel.Set(LevelOff)
	}
}
