package securefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.enc")
	password := []byte("correct horse")

	for _, plaintext := range [][]byte{
		[]byte(`[]`),
		[]byte(`{"hello":"world"}`),
		{},
	} {
		require.NoError(t, Seal(path, password, plaintext))
		got, err := Open(path, password)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.enc"), []byte("pw"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.False(t, errors.Is(err, ErrDecryptFailed))
}

func TestOpenWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.enc")
	require.NoError(t, Seal(path, []byte("right"), []byte("secret")))

	_, err := Open(path, []byte("wrong"))
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestTamperDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.enc")
	password := []byte("pw")
	require.NoError(t, Seal(path, password, []byte(`[{"above_nisab":true}]`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Flip one bit at every position; each must fail authentication.
	for i := range data {
		mutated := make([]byte, len(data))
		copy(mutated, data)
		mutated[i] ^= 0x01
		require.NoError(t, os.WriteFile(path, mutated, 0o600))

		_, err := Open(path, password)
		require.ErrorIs(t, err, ErrDecryptFailed, "byte %d", i)
	}
}

func TestTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.enc")
	require.NoError(t, os.WriteFile(path, []byte("ZKS1 short"), 0o600))

	_, err := Open(path, []byte("pw"))
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.enc")
	require.NoError(t, Seal(path, []byte("pw"), []byte("data")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaltVariesPerSeal(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.enc")
	b := filepath.Join(dir, "b.enc")
	require.NoError(t, Seal(a, []byte("pw"), []byte("same")))
	require.NoError(t, Seal(b, []byte("pw"), []byte("same")))

	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	require.NotEqual(t, da[4:20], db[4:20], "per-file salt must be random")
}
