package solana

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletFileRoundTrip(t *testing.T) {
	w := NewWallet()
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, w.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('['), raw[0])

	loaded, err := WalletFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())
	assert.Equal(t, w.String(), loaded.String())
}

func TestWalletFromFileRejects(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "nope"},
		{name: "short", content: "[1,2,3]"},
		{name: "out of range", content: "[" + repeat("300,", 63) + "1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := WalletFromFile(path)
			assert.Error(t, err)
		})
	}

	_, err := WalletFromFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestWalletFromBase58(t *testing.T) {
	w := NewWallet()
	loaded, err := WalletFromBase58(w.PrivateKey().String())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())

	_, err = WalletFromBase58("not-a-key")
	assert.Error(t, err)
}

func TestWalletSign(t *testing.T) {
	w := NewWallet()
	msg := []byte("swap 100")

	sig, err := w.Sign(msg)
	require.NoError(t, err)
	assert.True(t, sig.Verify(w.PublicKey(), msg))
	assert.False(t, sig.Verify(NewWallet().PublicKey(), msg))
}
