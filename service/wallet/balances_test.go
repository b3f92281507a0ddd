package wallet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOwner(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func testTokenConfig(t *testing.T) TokenConfig {
	t.Helper()
	mint, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return TokenConfig{Mint: mint.PublicKey(), Symbol: "USDC", Decimals: 6}
}

func TestBalanceRefresh(t *testing.T) {
	owner := testOwner(t)
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			assert.True(t, address.Equals(owner.PublicKey()))
			return 2_000_000_000, nil
		},
		tokenBalanceFn: func(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
			return 1_000_000, nil
		},
	}

	store := NewStore(0)
	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), testTokenConfig(t), nil, testLogger())
	require.NoError(t, err)
	sync.interCallDelay = 0

	snap, err := sync.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), snap.Native)
	assert.Equal(t, uint64(1_000_000), snap.Token)
	assert.False(t, snap.TokenStale)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, snap, store.Balance())
}

func TestBalanceRefreshNativeFailureFailsWholeRefresh(t *testing.T) {
	owner := testOwner(t)
	tokenCalled := false
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			return 0, errors.New("rpc unavailable")
		},
		tokenBalanceFn: func(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
			tokenCalled = true
			return 1_000_000, nil
		},
	}

	store := NewStore(0)
	prior := BalanceSnapshot{Native: 7, Token: 7}
	store.SetBalance(prior)

	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), testTokenConfig(t), nil, testLogger())
	require.NoError(t, err)
	sync.interCallDelay = 0

	_, err = sync.Refresh(context.Background())
	var fetchErr *BalanceFetchError
	require.ErrorAs(t, err, &fetchErr)

	// Published state is untouched and the token query never runs.
	assert.Equal(t, prior, store.Balance())
	assert.False(t, tokenCalled)
}

func TestBalanceRefreshTokenFailureIsSoft(t *testing.T) {
	owner := testOwner(t)
	tokenErr := errors.New("account not found")
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			return 2_000_000_000, nil
		},
		tokenBalanceFn: func(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
			return 0, tokenErr
		},
	}

	store := NewStore(0)
	store.SetBalance(BalanceSnapshot{Native: 1, Token: 42})

	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), testTokenConfig(t), nil, testLogger())
	require.NoError(t, err)
	sync.interCallDelay = 0

	snap, err := sync.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000_000), snap.Native)
	assert.Equal(t, uint64(42), snap.Token, "last-known token value is kept")
	assert.True(t, snap.TokenStale)
	assert.Equal(t, snap, store.Balance())
}

func TestBalanceRefreshNoTokenConfigured(t *testing.T) {
	owner := testOwner(t)
	tokenCalled := false
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			return 5, nil
		},
		tokenBalanceFn: func(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
			tokenCalled = true
			return 0, nil
		},
	}

	store := NewStore(0)
	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), TokenConfig{}, nil, testLogger())
	require.NoError(t, err)

	snap, err := sync.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), snap.Native)
	assert.Zero(t, snap.Token)
	assert.False(t, tokenCalled)
}

func TestBalanceRefreshIdempotent(t *testing.T) {
	owner := testOwner(t)
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			return 123, nil
		},
	}

	store := NewStore(0)
	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), TokenConfig{}, nil, testLogger())
	require.NoError(t, err)

	first, err := sync.Refresh(context.Background())
	require.NoError(t, err)
	second, err := sync.Refresh(context.Background())
	require.NoError(t, err)

	first.FetchedAt = second.FetchedAt
	assert.Equal(t, first, second)
}

func TestBalanceRefreshInvalidAddress(t *testing.T) {
	_, err := NewBalanceSynchronizer(&mockChainReader{}, NewStore(0), "not-an-address", TokenConfig{}, nil, testLogger())
	require.ErrorIs(t, err, ErrInvalidAccount)
}

func TestBalanceRefreshStaleResultNotCommitted(t *testing.T) {
	owner := testOwner(t)

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	mock := &mockChainReader{
		nativeBalanceFn: func(ctx context.Context, address solana.PublicKey) (uint64, error) {
			if calls.Add(1) == 1 {
				close(firstEntered)
				<-release
				return 111, nil
			}
			return 222, nil
		},
	}

	store := NewStore(0)
	sync, err := NewBalanceSynchronizer(mock, store, owner.PublicKey().String(), TokenConfig{}, nil, testLogger())
	require.NoError(t, err)

	firstDone := make(chan BalanceSnapshot, 1)
	go func() {
		snap, err := sync.Refresh(context.Background())
		require.NoError(t, err)
		firstDone <- snap
	}()

	// Let the first refresh claim its generation, then complete a second one.
	<-firstEntered
	snap, err := sync.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(222), snap.Native)

	close(release)
	stale := <-firstDone

	// The stale result is returned to its caller but never published.
	assert.Equal(t, uint64(111), stale.Native)
	assert.Equal(t, uint64(222), store.Balance().Native)
}
