package keys

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

func writeKeyFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keypair.json")
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path
}

// keyFileBytes encodes a seed and its derived public key in the wallet file
// format: a JSON array of 64 byte values.
func keyFileBytes(t *testing.T, seed []byte) []byte {
	t.Helper()
	private := ed25519.NewKeyFromSeed(seed)
	values := make([]int, len(private))
	for i, b := range private {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	return raw
}

func testSeed(start byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = start + byte(i)
	}
	return seed
}

func TestLoadKeypair(t *testing.T) {
	raw := keyFileBytes(t, testSeed(1))

	kp, err := Load(writeKeyFile(t, raw))
	require.NoError(t, err)
	assert.NotEmpty(t, kp.Address())

	// Loading the same file twice yields the same identity.
	again, err := Load(writeKeyFile(t, raw))
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), again.Address())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ledger.KindKeyLoad, ledger.KindOf(err))
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeKeyFile(t, []byte("not json")))
	require.Error(t, err)
	assert.Equal(t, ledger.KindKeyLoad, ledger.KindOf(err))
}

func TestLoadWrongLength(t *testing.T) {
	raw, err := json.Marshal([]int{1, 2, 3})
	require.NoError(t, err)

	_, err = Load(writeKeyFile(t, raw))
	require.Error(t, err)
	assert.Equal(t, ledger.KindKeyLoad, ledger.KindOf(err))
}

func TestLoadRejectsMismatchedPublicKey(t *testing.T) {
	// A corrupted file whose public half does not belong to the seed would
	// sign transactions that never verify under the reported address.
	var values []int
	require.NoError(t, json.Unmarshal(keyFileBytes(t, testSeed(1)), &values))
	values[63] ^= 0xff

	raw, err := json.Marshal(values)
	require.NoError(t, err)

	_, err = Load(writeKeyFile(t, raw))
	require.Error(t, err)
	assert.Equal(t, ledger.KindKeyLoad, ledger.KindOf(err))
}

func TestSignVerifiesUnderAddress(t *testing.T) {
	kp, err := Load(writeKeyFile(t, keyFileBytes(t, testSeed(100))))
	require.NoError(t, err)

	sig := kp.Sign([]byte("launch"))
	assert.Len(t, sig, ed25519.SignatureSize)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(kp.public), []byte("launch"), sig))
}
