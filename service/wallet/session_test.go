package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	blockhashFn func(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	sendFn      func(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

func (m *mockSubmitter) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if m.blockhashFn != nil {
		return m.blockhashFn(ctx, commitment)
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{LastValidBlockHeight: 100},
	}, nil
}

func (m *mockSubmitter) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, tx, opts)
	}
	return solana.Signature{}, nil
}

func TestLocalSessionSignAndSend(t *testing.T) {
	key := testOwner(t)
	recipient := testOwner(t).PublicKey()

	var sent *solana.Transaction
	submitter := &mockSubmitter{
		sendFn: func(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
			sent = tx
			return sigN(5), nil
		},
	}

	session := NewLocalSession(key, submitter, testLogger())
	assert.True(t, session.Owner().Equals(key.PublicKey()))

	instruction := system.NewTransferInstruction(100, key.PublicKey(), recipient).Build()
	sig, err := session.SignAndSend(context.Background(), []solana.Instruction{instruction}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, sigN(5), sig)

	require.NotNil(t, sent)
	require.Len(t, sent.Signatures, 1)
	require.NoError(t, sent.VerifySignatures())
}

func TestLocalSessionSendFailureWrapsSubmitError(t *testing.T) {
	key := testOwner(t)
	submitter := &mockSubmitter{
		sendFn: func(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
			return solana.Signature{}, errors.New("connection reset")
		},
	}

	session := NewLocalSession(key, submitter, testLogger())
	instruction := system.NewTransferInstruction(100, key.PublicKey(), testOwner(t).PublicKey()).Build()

	_, err := session.SignAndSend(context.Background(), []solana.Instruction{instruction}, SendOptions{})
	require.ErrorIs(t, err, ErrSubmitFailed)
}

func TestLocalSessionBlockhashFailure(t *testing.T) {
	key := testOwner(t)
	submitter := &mockSubmitter{
		blockhashFn: func(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
			return nil, errors.New("rpc unavailable")
		},
	}

	session := NewLocalSession(key, submitter, testLogger())
	instruction := system.NewTransferInstruction(100, key.PublicKey(), testOwner(t).PublicKey()).Build()

	_, err := session.SignAndSend(context.Background(), []solana.Instruction{instruction}, SendOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSubmitFailed, "a pre-signing failure is unambiguous")
}
