// Package db opens the relational store selected by DATABASE_URL.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"findash/internal/model"
)

// Open connects to the database named by url. Supported schemes are
// mysql://, postgres:// (or postgresql://) and sqlite://.
func Open(url string, log *logrus.Logger) (*gorm.DB, error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return nil, fmt.Errorf("database url %q has no scheme", url)
	}

	cfg := Config(log)
	switch strings.ToLower(scheme) {
	case "mysql":
		return NewMySQL(mysqlDSN(rest), cfg)
	case "postgres", "postgresql":
		return NewPostgres(url, cfg)
	case "sqlite", "sqlite3":
		return NewSQLite(rest, cfg)
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

// Config is the gorm configuration shared by every dialect: logrus-backed
// logging, translated constraint errors and UTC timestamps.
func Config(log *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the users and stock_prices tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.StockPrice{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogger forwards gorm's SQL logging to logrus.
type gormLogger struct {
	log           *logrus.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logrus.Logger) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	level := gormlogger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return &gormLogger{log: log, level: level, slowThreshold: 200 * time.Millisecond}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.WithContext(ctx).Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.WithContext(ctx).Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.WithContext(ctx).Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds(),
		}).Error("query failed")
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.WithContext(ctx).WithFields(logrus.Fields{
			"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds(),
		}).Warn("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.WithContext(ctx).WithFields(logrus.Fields{
			"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds(),
		}).Debug("query")
	}
}
