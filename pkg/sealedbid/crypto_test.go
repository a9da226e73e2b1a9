package sealedbid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSalt(t *testing.T) {
	first, err := GenerateSalt()
	require.NoError(t, err)
	second, err := GenerateSalt()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestHashBid_Deterministic(t *testing.T) {
	assert.Equal(t, HashBid("150", "salt"), HashBid("150", "salt"))
	assert.NotEqual(t, HashBid("150", "salt"), HashBid("151", "salt"))
	assert.NotEqual(t, HashBid("150", "salt"), HashBid("150", "other"))
}

func TestVerifyBid(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	hash := HashBid("150", salt)

	tests := []struct {
		name   string
		amount string
		salt   string
		want   bool
	}{
		{name: "matching reveal", amount: "150", salt: salt, want: true},
		{name: "wrong amount", amount: "200", salt: salt, want: false},
		{name: "wrong salt", amount: "150", salt: "forged", want: false},
		{name: "different canonical form", amount: "150.0", salt: salt, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyBid(tt.amount, tt.salt, hash))
		})
	}
}
