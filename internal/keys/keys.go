package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr-tron/base58"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// KeyPair is the signing identity used to authorize every mutating ledger
// call. The secret material never leaves this package and is never logged.
type KeyPair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Address returns the base58-encoded public identifier of the key pair.
func (k *KeyPair) Address() ledger.Address {
	return ledger.Address(base58.Encode(k.public))
}

// Sign signs a message with the private key.
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// Load reads a wallet file containing a JSON array of 64 bytes (the 32-byte
// seed followed by the 32-byte public key) and returns the key pair. Loaded
// once per process; immutable thereafter.
func Load(path string) (*KeyPair, error) {
	const op = "keys.Load"

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ledger.E(ledger.KindKeyLoad, op, fmt.Errorf("reading %s: %w", path, err))
	}

	// The wallet format is a JSON array of byte values, not base64.
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, ledger.E(ledger.KindKeyLoad, op, fmt.Errorf("parsing %s: %w", path, err))
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, ledger.Errorf(ledger.KindKeyLoad, op,
			"key file %s holds %d bytes, want %d", path, len(values), ed25519.PrivateKeySize)
	}

	secret := make([]byte, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, ledger.Errorf(ledger.KindKeyLoad, op, "key file %s holds an out-of-range byte", path)
		}
		secret[i] = byte(v)
	}

	// The stored public half must match the seed, or signatures would never
	// verify under the reported address.
	private := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	public := private.Public().(ed25519.PublicKey)
	if !bytes.Equal(public, secret[ed25519.SeedSize:]) {
		return nil, ledger.Errorf(ledger.KindKeyLoad, op,
			"key file %s public key does not match its seed", path)
	}

	return &KeyPair{public: public, private: private}, nil
}
