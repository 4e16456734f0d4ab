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

func newTestIssuer(client ledger.Client, t *testing.T) *Issuer {
	return NewIssuer(client, testWallet(t), testRetry(), time.Second, zap.NewNop())
}

func TestIssuePreservesDecimals(t *testing.T) {
	client := new(MockClient)
	issuer := newTestIssuer(client, t)

	pending := &ledger.Pending{Signature: "sig-1", NewAddress: "mint-1"}
	client.On("Submit", mock.Anything, mock.AnythingOfType("ledger.CreateMintIntent")).Return(pending, nil)
	client.On("Confirm", mock.Anything, pending, mock.Anything).
		Return(&ledger.Receipt{Signature: "sig-1", Slot: 42}, nil)

	asset, err := issuer.Issue(context.Background(), 6, "authority-1")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), asset.Decimals)
	assert.Equal(t, ledger.Address("mint-1"), asset.Mint)
	assert.Equal(t, ledger.Address("authority-1"), asset.Authority)

	client.AssertExpectations(t)
}

func TestIssueRejectsOutOfRangeDecimals(t *testing.T) {
	client := new(MockClient)
	issuer := newTestIssuer(client, t)

	_, err := issuer.Issue(context.Background(), MaxDecimals+1, "authority-1")
	require.Error(t, err)
	assert.Equal(t, ledger.KindInvalidParameter, ledger.KindOf(err))

	// Validation failures must never reach the ledger.
	client.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestIssueNeverRetriesRejection(t *testing.T) {
	client := new(MockClient)
	issuer := newTestIssuer(client, t)

	client.On("Submit", mock.Anything, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindRejected, "ledger.Submit", "insufficient funds")).
		Once()

	_, err := issuer.Issue(context.Background(), 9, "authority-1")
	require.Error(t, err)
	assert.Equal(t, ledger.KindRejected, ledger.KindOf(err))

	// A second Submit would risk creating a second, distinct asset.
	client.AssertNumberOfCalls(t, "Submit", 1)
}

func TestIssueRetriesUnreachableSubmission(t *testing.T) {
	client := new(MockClient)
	issuer := newTestIssuer(client, t)

	pending := &ledger.Pending{Signature: "sig-2", NewAddress: "mint-2"}
	client.On("Submit", mock.Anything, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindUnreachable, "ledger.Submit", "connection refused")).
		Once()
	client.On("Submit", mock.Anything, mock.Anything).Return(pending, nil).Once()
	client.On("Confirm", mock.Anything, pending, mock.Anything).
		Return(&ledger.Receipt{Signature: "sig-2"}, nil)

	asset, err := issuer.Issue(context.Background(), 0, "authority-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Address("mint-2"), asset.Mint)

	client.AssertNumberOfCalls(t, "Submit", 2)
}

func TestIssueLostConfirmationReturnsPendingMint(t *testing.T) {
	client := new(MockClient)
	issuer := newTestIssuer(client, t)

	pending := &ledger.Pending{Signature: "sig-3", NewAddress: "mint-3"}
	client.On("Submit", mock.Anything, mock.Anything).Return(pending, nil)
	client.On("Confirm", mock.Anything, pending, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindUnreachable, "ledger.Confirm", "poll deadline exceeded"))

	asset, err := issuer.Issue(context.Background(), 6, "authority-1")
	require.Error(t, err)
	assert.Equal(t, ledger.KindAmbiguous, ledger.KindOf(err))

	// The ledger-assigned address must survive so the caller can reconcile
	// instead of reissuing a second, distinct asset.
	require.NotNil(t, asset)
	assert.Equal(t, ledger.Address("mint-3"), asset.Mint)

	client.AssertNumberOfCalls(t, "Submit", 1)
}
