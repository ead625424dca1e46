package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	assert.Equal(t, defaultSlowThreshold, gormLog.slowThreshold)
	assert.True(t, gormLog.skipNotFound)
}

func TestGormLoggerWithOptions(t *testing.T) {
	gormLog, _ := newObservedGormLogger(
		gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithRecordNotFoundLogging(),
	)

	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.skipNotFound)
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	clone := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	cloned, ok := clone.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, cloned.level)
}

func TestGormLogger_Info(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info)

	gormLog.Info(context.Background(), "migrating %s", "services")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "migrating services")
}

func TestGormLogger_Info_Suppressed(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Silent)

	gormLog.Info(context.Background(), "should not appear")

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Warn(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn)

	gormLog.Warn(context.Background(), "pool near capacity: %d", 42)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Contains(t, logs[0].Message, "pool near capacity: 42")
}

func TestGormLogger_Error(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	gormLog.Error(context.Background(), "connection lost")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices", 0
	}, errors.New("connection reset"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql error", logs[0].Message)
}

func TestGormLogger_Trace_RecordNotFoundSkipped(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error)

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices WHERE id = ?", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_RecordNotFoundLogged(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Error, WithRecordNotFoundLogging())

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM invoices WHERE id = ?", 0
	}, gormlogger.ErrRecordNotFound)

	require.Len(t, recorded.All(), 1)
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	begin := time.Now().Add(-time.Second)
	gormLog.Trace(context.Background(), begin, func() (string, int64) {
		return "SELECT * FROM services", 10
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "slow sql", logs[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info)

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM services", 5
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "sql query", logs[0].Message)
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Silent)

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM services", 5
	}, nil)

	assert.Empty(t, recorded.All())
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
