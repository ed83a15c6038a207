package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// LogConfig controls how gorm's SQL trace is written to slog.
type LogConfig struct {
	// LogLevel is one of silent, error, warn, info.
	LogLevel                  string `yaml:"log_level" env-default:"warn"`
	SlowThresholdMs           int    `yaml:"slow_threshold_ms" env-default:"200"`
	IgnoreRecordNotFoundError bool   `yaml:"ignore_record_not_found_error" env-default:"true"`
}

func parseLogLevel(s string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// slogLogger implements gorm's logger.Interface on top of *slog.Logger.
type slogLogger struct {
	log                       *slog.Logger
	level                     gormlogger.LogLevel
	slowThreshold             time.Duration
	ignoreRecordNotFoundError bool
}

func newLogger(log *slog.Logger, cfg LogConfig) gormlogger.Interface {
	return &slogLogger{
		log:                       log.With(slog.String("component", "gorm")),
		level:                     parseLogLevel(cfg.LogLevel),
		slowThreshold:             time.Duration(cfg.SlowThresholdMs) * time.Millisecond,
		ignoreRecordNotFoundError: cfg.IgnoreRecordNotFoundError,
	}
}

func (l *slogLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, data...), slog.String("caller", utils.FileWithLineNum()))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, data...), slog.String("caller", utils.FileWithLineNum()))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, data...), slog.String("caller", utils.FileWithLineNum()))
	}
}

// Trace logs one executed statement: failures at error, slow queries at
// warn, everything else only at info.
func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error &&
		(!errors.Is(err, gormlogger.ErrRecordNotFound) || !l.ignoreRecordNotFoundError):
		sql, rows := fc()
		l.log.ErrorContext(ctx, "sql failed", traceAttrs(sql, rows, elapsed, slog.String("error", err.Error()))...)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.WarnContext(ctx, "slow sql", traceAttrs(sql, rows, elapsed, slog.Duration("threshold", l.slowThreshold))...)
	case l.level == gormlogger.Info:
		sql, rows := fc()
		l.log.InfoContext(ctx, "sql", traceAttrs(sql, rows, elapsed)...)
	}
}

func traceAttrs(sql string, rows int64, elapsed time.Duration, extra ...any) []any {
	attrs := []any{
		slog.String("sql", sql),
		slog.Duration("elapsed", elapsed),
		slog.String("caller", utils.FileWithLineNum()),
	}
	// gorm reports -1 when the row count is unknown
	if rows >= 0 {
		attrs = append(attrs, slog.Int64("rows", rows))
	}
	return append(attrs, extra...)
}
