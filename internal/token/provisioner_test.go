package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

func newTestProvisioner(client ledger.Client, t *testing.T) *Provisioner {
	return NewProvisioner(client, testWallet(t), testRetry(), time.Second, zap.NewNop())
}

func TestEnsureAccountCreatesWhenAbsent(t *testing.T) {
	client := new(MockClient)
	prov := newTestProvisioner(client, t)

	asset := &Asset{Mint: "mint-1", Decimals: 6, Authority: "authority-1"}
	owner := ledger.Address("owner-1")
	expected := ledger.HoldingAddress(owner, asset.Mint)

	client.On("GetAccount", mock.Anything, expected).Return(nil, nil)
	pending := &ledger.Pending{Signature: "sig-1"}
	client.On("Submit", mock.Anything, mock.AnythingOfType("ledger.CreateAccountIntent")).Return(pending, nil)
	client.On("Confirm", mock.Anything, pending, mock.Anything).
		Return(&ledger.Receipt{Signature: "sig-1"}, nil)

	account, err := prov.EnsureAccount(context.Background(), owner, asset)
	require.NoError(t, err)
	assert.Equal(t, expected, account.Address)
	assert.Equal(t, owner, account.Owner)
	assert.Equal(t, asset.Mint, account.Mint)

	client.AssertExpectations(t)
}

func TestEnsureAccountReturnsExistingWithoutSubmitting(t *testing.T) {
	client := new(MockClient)
	prov := newTestProvisioner(client, t)

	asset := &Asset{Mint: "mint-1", Decimals: 6, Authority: "authority-1"}
	owner := ledger.Address("owner-1")
	expected := ledger.HoldingAddress(owner, asset.Mint)

	client.On("GetAccount", mock.Anything, expected).
		Return(&ledger.AccountInfo{Address: expected, Owner: owner, Mint: asset.Mint}, nil)

	account, err := prov.EnsureAccount(context.Background(), owner, asset)
	require.NoError(t, err)
	assert.Equal(t, expected, account.Address)

	client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestEnsureAccountIsDeterministic(t *testing.T) {
	client := new(MockClient)
	prov := newTestProvisioner(client, t)

	asset := &Asset{Mint: "mint-1", Decimals: 6, Authority: "authority-1"}
	owner := ledger.Address("owner-1")

	client.On("GetAccount", mock.Anything, mock.Anything).
		Return(&ledger.AccountInfo{Address: ledger.HoldingAddress(owner, asset.Mint)}, nil)

	first, err := prov.EnsureAccount(context.Background(), owner, asset)
	require.NoError(t, err)
	second, err := prov.EnsureAccount(context.Background(), owner, asset)
	require.NoError(t, err)

	assert.Equal(t, first.Address, second.Address)
}

func TestEnsureAccountTreatsLostRaceAsSuccess(t *testing.T) {
	client := new(MockClient)
	prov := newTestProvisioner(client, t)

	asset := &Asset{Mint: "mint-1", Decimals: 6, Authority: "authority-1"}
	owner := ledger.Address("owner-1")
	expected := ledger.HoldingAddress(owner, asset.Mint)

	// Absent on first lookup, rejected on create, present afterwards.
	client.On("GetAccount", mock.Anything, expected).Return(nil, nil).Once()
	client.On("Submit", mock.Anything, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindRejected, "ledger.Submit", "account already exists"))
	client.On("GetAccount", mock.Anything, expected).
		Return(&ledger.AccountInfo{Address: expected, Owner: owner, Mint: asset.Mint}, nil)

	account, err := prov.EnsureAccount(context.Background(), owner, asset)
	require.NoError(t, err)
	assert.Equal(t, expected, account.Address)
}

func TestEnsureAccountRequiresOwnerAndAsset(t *testing.T) {
	client := new(MockClient)
	prov := newTestProvisioner(client, t)

	_, err := prov.EnsureAccount(context.Background(), "", &Asset{Mint: "mint-1"})
	require.Error(t, err)
	assert.Equal(t, ledger.KindInvalidParameter, ledger.KindOf(err))

	_, err = prov.EnsureAccount(context.Background(), "owner-1", nil)
	require.Error(t, err)
	assert.Equal(t, ledger.KindInvalidParameter, ledger.KindOf(err))
}
