package publish

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "test test test test test test test test test test test junk"

func TestKeyFromMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mnemonic string
		index    uint32
		address  string
	}{
		{testMnemonic, 0, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		{testMnemonic, 1, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		{testMnemonic, 2, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"},
	}
	for _, tt := range tests {
		key, err := KeyFromMnemonic(tt.mnemonic, tt.index)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(tt.address), crypto.PubkeyToAddress(key.PublicKey))
	}
}

func TestKeyFromMnemonic_Whitespace(t *testing.T) {
	t.Parallel()

	key, err := KeyFromMnemonic("  test test test test test test\ttest test test test test junk\n", 0)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(key.PublicKey))
}

func TestKeyFromMnemonic_Invalid(t *testing.T) {
	t.Parallel()

	_, err := KeyFromMnemonic("test test test", 0)
	require.ErrorIs(t, err, ErrInvalidMnemonic)

	_, err = KeyFromMnemonic("test test test test test test test test test test test notaword", 0)
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}
