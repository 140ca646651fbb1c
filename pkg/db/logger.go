package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger implements gormlogger.Interface with zap-backed structured logging.
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(log *zap.Logger) *GormLogger {
	return &GormLogger{
		log:           log,
		level:         gormlogger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copy := *l
	copy.level = level
	return &copy
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Info {
		return
	}
	l.log.Sugar().Infof(msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Warn {
		return
	}
	l.log.Sugar().Warnf(msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level < gormlogger.Error {
		return
	}
	l.log.Sugar().Errorf(msg, data...)
}

// Trace logs SQL statements; errors at error level, slow queries at warn.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("gorm.query",
			zap.String("sql", strings.TrimSpace(sql)),
			zap.Int64("rows_affected", rows),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("gorm.slow_query",
			zap.String("sql", strings.TrimSpace(sql)),
			zap.Int64("rows_affected", rows),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("gorm.query",
			zap.String("sql", strings.TrimSpace(sql)),
			zap.Int64("rows_affected", rows),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
