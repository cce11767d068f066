package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeCodec_SmallEntriesStayPlain(t *testing.T) {
	codec, err := NewChangeCodec()
	require.NoError(t, err)
	defer codec.Close()

	entry := AuditEntry{Changes: json.RawMessage(`{"status":"done"}`)}
	codec.Pack(&entry, DefaultCompressThreshold)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.Nil(t, entry.ChangesCompressed)
	assert.JSONEq(t, `{"status":"done"}`, string(entry.Changes))
}

func TestChangeCodec_RoundTripLargeEntry(t *testing.T) {
	codec, err := NewChangeCodec()
	require.NoError(t, err)
	defer codec.Close()

	payload := []byte(`{"lines":"` + string(bytes.Repeat([]byte("notebook "), 2000)) + `"}`)
	entry := AuditEntry{Changes: payload}

	codec.Pack(&entry, DefaultCompressThreshold)
	require.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(payload))

	require.NoError(t, codec.Unpack(&entry))
	assert.Equal(t, payload, []byte(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestChangeCodec_UnpackCorrupt(t *testing.T) {
	codec, err := NewChangeCodec()
	require.NoError(t, err)
	defer codec.Close()

	entry := AuditEntry{CompressionAlgo: CompressionZstd, ChangesCompressed: []byte("not zstd")}
	assert.Error(t, codec.Unpack(&entry))
}

func TestDiff(t *testing.T) {
	changes := Diff(
		map[string]any{"status": "open", "warrantyDays": 90, "comment": "x"},
		map[string]any{"status": "done", "warrantyDays": 90, "technician": "ana"},
	)

	assert.Equal(t, map[string]any{
		"status":     map[string]any{"old": "open", "new": "done"},
		"comment":    map[string]any{"old": "x", "new": nil},
		"technician": map[string]any{"old": nil, "new": "ana"},
	}, changes)
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsSerializationFailure(fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSerializationFailure(assert.AnError))

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
}
