package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `SELECT 1 FROM expenses WHERE user_id = ? AND occurred_at >= ? AND occurred_at <= ?`
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t,
		`SELECT 1 FROM expenses WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at <= $3`,
		Postgres.rebind(q))
}

func TestMicrosRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	in := time.Date(2024, 1, 31, 21, 30, 0, 123456000, loc)

	out := fromMicros(toMicros(in))
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())
}
