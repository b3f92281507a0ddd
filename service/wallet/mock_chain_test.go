package wallet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

// mockChainReader implements chain.ChainReader for testing. Behavior is
// set per-test via function fields; unset fields return zero values.
type mockChainReader struct {
	nativeBalanceFn func(ctx context.Context, address solana.PublicKey) (uint64, error)
	tokenBalanceFn  func(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	signaturesFn    func(ctx context.Context, address solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error)
	transactionFn   func(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)
	statusFn        func(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error)
}

func (m *mockChainReader) GetNativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	if m.nativeBalanceFn != nil {
		return m.nativeBalanceFn(ctx, address)
	}
	return 0, nil
}

func (m *mockChainReader) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	if m.tokenBalanceFn != nil {
		return m.tokenBalanceFn(ctx, tokenAccount)
	}
	return 0, nil
}

func (m *mockChainReader) GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error) {
	if m.signaturesFn != nil {
		return m.signaturesFn(ctx, address, limit)
	}
	return nil, nil
}

func (m *mockChainReader) GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	if m.transactionFn != nil {
		return m.transactionFn(ctx, signature)
	}
	return nil, nil
}

func (m *mockChainReader) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, signature)
	}
	return nil, nil
}

// mockSession implements Session for testing.
type mockSession struct {
	owner  solana.PublicKey
	sendFn func(ctx context.Context, instructions []solana.Instruction, opts SendOptions) (solana.Signature, error)
}

func (m *mockSession) Owner() solana.PublicKey {
	return m.owner
}

func (m *mockSession) SignAndSend(ctx context.Context, instructions []solana.Instruction, opts SendOptions) (solana.Signature, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, instructions, opts)
	}
	return solana.Signature{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sigN builds a distinct, deterministic signature for test fixtures.
func sigN(n byte) solana.Signature {
	var sig solana.Signature
	sig[0] = n
	sig[63] = n
	return sig
}

// makeTransactionResult wraps a transaction in a GetTransaction RPC result.
// TransactionResultEnvelope has unexported fields, so we round-trip via JSON.
func makeTransactionResult(t *testing.T, tx *solana.Transaction) *rpc.GetTransactionResult {
	t.Helper()

	txJSON, err := json.Marshal(tx)
	require.NoError(t, err)

	var temp struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	temp.Transaction = txJSON

	envelopeJSON, err := json.Marshal(temp)
	require.NoError(t, err)

	var result rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal(envelopeJSON, &result))
	return &result
}
