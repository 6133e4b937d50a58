package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", ErrorType(nil))
	assert.Equal(t, ErrorTypeNotFound, ErrorType(core.NotFound(core.EntityUser, 1)))
	assert.Equal(t, ErrorTypeValidation, ErrorType(fmt.Errorf("wrap: %w", core.Invalid("amount", 0, "must be positive"))))
	assert.Equal(t, ErrorTypeConflict, ErrorType(core.Conflict(core.EntityCategory, "taken")))
	assert.Equal(t, ErrorTypeInternal, ErrorType(errors.New("disk full")))
}

func TestLoggerWritesComponentAsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentWorker, Output: &buf})

	l.Info("hello", FieldBudgetID, 7)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, ComponentWorker, rec[FieldComponent])
	assert.EqualValues(t, 7, rec[FieldBudgetID])
	assert.Equal(t, ComponentWorker, l.Component())
}

func TestContextCarriesLogger(t *testing.T) {
	l := New(Config{Output: &bytes.Buffer{}, Component: ComponentHTTP})
	got := FromContext(NewContext(context.Background(), l.With(FieldRequestID, "req-1")))
	require.NotNil(t, got)
	assert.Equal(t, ComponentHTTP, got.Component())

	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestLogBudgetOverLimit(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	sl.LogBudgetOverLimit(context.Background(), core.BudgetUsage{
		Budget: core.Budget{ID: 3, UserID: 1, CategoryID: 2, Limit: core.Cents(10000)},
		Spent:  core.Cents(10500),
	})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.EqualValues(t, 10500, rec[FieldSpentCents])
	assert.Equal(t, OpEvaluate, rec[FieldOperation])
}
