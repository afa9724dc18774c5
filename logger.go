/*
File: logger.go
Version: 3.0.0
Description: Structured logging on log/slog for the CLI and the prediction service.
             Records are queued by the caller and written by a single background worker
             to every configured output (console, file; text or JSON).
             Printf-style wrappers keep the "[TAG] message" convention.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const logQueueSize = 8192

var (
	logLevel = new(slog.LevelVar) // INFO until InitLogger runs
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Background writer state, set by InitLogger and cleared by ShutdownLogger.
	logQueue   chan queuedRecord
	logStop    chan struct{}
	logWorker  sync.WaitGroup
	logFile    io.Closer
	logDropped atomic.Int64
)

// queuedRecord carries the outputs with the record so attributes added through
// WithAttrs survive the hand-off to the worker.
type queuedRecord struct {
	outs []slog.Handler
	rec  slog.Record
}

// InitLogger builds the configured outputs and switches the global logger to the
// queued writer.
func InitLogger(cfg LoggingConfig) error {
	outs, err := openLogOutputs(cfg)
	if err != nil {
		return err
	}
	logLevel.Set(parseLogLevel(cfg.Level))

	logQueue = make(chan queuedRecord, logQueueSize)
	logStop = make(chan struct{})
	logDropped.Store(0)

	logWorker.Add(1)
	go drainLogQueue(logQueue, logStop)

	logger = slog.New(&queueHandler{outs: outs, queue: logQueue})
	slog.SetDefault(logger)
	return nil
}

func openLogOutputs(cfg LoggingConfig) ([]slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: logLevel}
	newHandler := func(w io.Writer) slog.Handler {
		if strings.EqualFold(cfg.Format, "json") {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}

	var outs []slog.Handler
	for _, output := range cfg.Outputs {
		switch strings.ToLower(output) {
		case "console":
			outs = append(outs, newHandler(os.Stderr))
		case "file":
			if cfg.File.Path == "" {
				return nil, fmt.Errorf("file logging enabled but no path specified")
			}
			perm := os.FileMode(0644)
			if cfg.File.Permissions > 0 {
				perm = os.FileMode(cfg.File.Permissions)
			}
			if err := ensureDir(filepath.Dir(cfg.File.Path)); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
			f, err := os.OpenFile(cfg.File.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			logFile = f
			outs = append(outs, newHandler(f))
		default:
			return nil, fmt.Errorf("unknown log output %q", output)
		}
	}
	if len(outs) == 0 {
		outs = append(outs, newHandler(os.Stderr))
	}
	return outs, nil
}

func drainLogQueue(queue chan queuedRecord, stop chan struct{}) {
	defer logWorker.Done()
	write := func(q queuedRecord) {
		for _, h := range q.outs {
			_ = h.Handle(context.Background(), q.rec.Clone())
		}
	}
	for {
		select {
		case q := <-queue:
			write(q)
		case <-stop:
			for {
				select {
				case q := <-queue:
					write(q)
				default:
					return
				}
			}
		}
	}
}

// ShutdownLogger flushes queued records and closes the log file. Later calls to the
// Log* wrappers write straight to stderr.
func ShutdownLogger() {
	if logStop != nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
		close(logStop)
		logWorker.Wait()
		logStop, logQueue = nil, nil
		if n := logDropped.Load(); n > 0 {
			LogWarn("[LOG] %d records dropped while the queue was full", n)
		}
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// queueHandler hands records to the background worker. It never blocks: when the
// queue is full the record is counted as dropped.
type queueHandler struct {
	outs  []slog.Handler
	queue chan<- queuedRecord
}

func (h *queueHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= logLevel.Level()
}

func (h *queueHandler) Handle(_ context.Context, r slog.Record) error {
	select {
	case h.queue <- queuedRecord{outs: h.outs, rec: r}:
	default:
		logDropped.Add(1)
	}
	return nil
}

func (h *queueHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithAttrs(attrs) })
}

func (h *queueHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithGroup(name) })
}

func (h *queueHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	outs := make([]slog.Handler, len(h.outs))
	for i, o := range h.outs {
		outs[i] = fn(o)
	}
	return &queueHandler{outs: outs, queue: h.queue}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDebugEnabled guards debug lines that are costly to format.
func IsDebugEnabled() bool {
	return logLevel.Level() <= slog.LevelDebug
}

// logf records the caller of the Log* wrapper as the source.
func logf(level slog.Level, format string, v ...any) {
	if !logger.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, v...), pcs[0])
	_ = logger.Handler().Handle(context.Background(), r)
}

func LogDebug(format string, v ...any) { logf(slog.LevelDebug, format, v...) }
func LogInfo(format string, v ...any)  { logf(slog.LevelInfo, format, v...) }
func LogWarn(format string, v ...any)  { logf(slog.LevelWarn, format, v...) }
func LogError(format string, v ...any) { logf(slog.LevelError, format, v...) }
