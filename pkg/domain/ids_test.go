package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/sr13dr31/belyispisok/pkg/domain-errors"
)

func TestParseWorkerID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseWorkerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseWorkerID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseWorkerID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts and round-trips a valid UUID", func(t *testing.T) {
		raw := uuid.New().String()
		workerID, err := ParseWorkerID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, workerID.String())
	})
}

func TestPublicID(t *testing.T) {
	valid := []string{"M-123456", "C-000001", "M-999999"}
	for _, s := range valid {
		got, err := ParsePublicID(s)
		require.NoError(t, err, s)
		assert.Equal(t, PublicID(s), got)
	}

	invalid := []string{
		"",
		"M123456",     // missing hyphen
		"X-123456",    // unknown prefix
		"M-12345",     // too short
		"M-1234567",   // too long
		"M-12a456",    // non-digit
		"m-123456",    // lower-case prefix
		"M-123456\x00",
	}
	for _, s := range invalid {
		_, err := ParsePublicID(s)
		require.Error(t, err, "%q", s)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "%q", s)
	}
}

func TestRandomPublicID(t *testing.T) {
	publicID, err := RandomPublicID(PublicPrefixWorker)
	require.NoError(t, err)

	parsed, err := ParsePublicID(string(publicID))
	require.NoError(t, err)
	assert.Equal(t, publicID, parsed, "generated ids satisfy the parse invariant")
}
