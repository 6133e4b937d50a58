package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: PostgresBackend, DatabaseURL: "postgres://x"}, cfg)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, GetBackendTypeStrings())
}

func newTestFactory() Factory {
	var buf bytes.Buffer
	return NewFactory(log.New(log.Config{Output: &buf}))
}

func exerciseStore(t *testing.T, res *Result) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, res.Ready(ctx))

	svc := services.NewCurrencyService(res.Store)
	created, err := svc.Create(ctx, core.Currency{Code: "usd", Name: "US Dollar", Symbol: "$"})
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Code)
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := newTestFactory().Create(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	defer res.Cleanup()
	exerciseStore(t, res)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "spendwise.db")
	res, err := newTestFactory().Create(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer res.Cleanup()
	exerciseStore(t, res)
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	_, err := newTestFactory().Create(context.Background(), Config{Type: PostgresBackend})
	require.Error(t, err)
}
