package engagement

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Omnipost/internal/core/platforms"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Run("keyset", func(t *testing.T) {
		original := platforms.KeysetCursor("QVQx", "QVQy")
		decoded, err := DecodeCursor(EncodeCursor(&original))
		require.NoError(t, err)
		assert.Equal(t, &original, decoded)
	})

	t.Run("offset", func(t *testing.T) {
		original := platforms.OffsetCursor(3, 25)
		decoded, err := DecodeCursor(EncodeCursor(&original))
		require.NoError(t, err)
		assert.Equal(t, &original, decoded)
	})

	t.Run("nil cursor is the empty string", func(t *testing.T) {
		assert.Empty(t, EncodeCursor(nil))
		decoded, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})
}

func TestDecodeCursor_Malformed(t *testing.T) {
	encode := func(plain string) string {
		return base64.URLEncoding.EncodeToString([]byte(plain))
	}

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"too few fields", encode("k|only-one")},
		{"unknown kind", encode("x|a|b")},
		{"offset page not a number", encode("o|three|25")},
		{"offset size not a number", encode("o|3|many")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.encoded)
			assert.ErrorIs(t, err, ErrMalformedCursor)
		})
	}
}

func TestDecodeCursor_KeysetValuesMayContainDigits(t *testing.T) {
	// Opaque platform cursors are passed through untouched
	original := platforms.KeysetCursor("", "100")
	decoded, err := DecodeCursor(EncodeCursor(&original))
	require.NoError(t, err)
	assert.Equal(t, platforms.PaginationKeyset, decoded.Kind)
	assert.Equal(t, "100", decoded.After)
}
