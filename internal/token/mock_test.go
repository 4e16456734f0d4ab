package token

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SwineCoder101/spl-playground/internal/keys"
	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

// MockClient is a mock implementation of the ledger.Client interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Submit(ctx context.Context, intent ledger.Intent) (*ledger.Pending, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Pending), args.Error(1)
}

func (m *MockClient) Confirm(ctx context.Context, p *ledger.Pending, timeout time.Duration) (*ledger.Receipt, error) {
	args := m.Called(ctx, p, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

func (m *MockClient) GetAccount(ctx context.Context, addr ledger.Address) (*ledger.AccountInfo, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountInfo), args.Error(1)
}

func (m *MockClient) GetMarketState(ctx context.Context, market ledger.Address) (*ledger.MarketState, error) {
	args := m.Called(ctx, market)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.MarketState), args.Error(1)
}

func (m *MockClient) FindTransaction(ctx context.Context, q ledger.TxQuery) (*ledger.Receipt, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

// testWallet loads a throwaway signing identity from a temp key file.
func testWallet(t *testing.T) *keys.KeyPair {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	private := ed25519.NewKeyFromSeed(seed)
	values := make([]int, len(private))
	for i, b := range private {
		values[i] = int(b)
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keypair.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	wallet, err := keys.Load(path)
	require.NoError(t, err)
	return wallet
}

// testRetry keeps backoff waits negligible in tests.
func testRetry() ledger.RetryConfig {
	return ledger.RetryConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      100 * time.Millisecond,
	}
}
