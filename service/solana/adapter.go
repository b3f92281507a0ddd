package solana

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ChainReader is the narrow read-only interface the synchronizers consume.
// Keeping it small lets tests substitute a double without hitting real nodes,
// and isolates the rest of the code from the RPC client's actual shape.
type ChainReader interface {
	// GetNativeBalance returns the lamport balance of an account.
	GetNativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error)

	// GetTokenBalance returns the raw token amount held by a token account
	// (an associated token address, not the owner wallet).
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)

	// GetSignaturesForAddress returns up to limit recent signatures for an
	// account, newest first.
	GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error)

	// GetTransaction returns full transaction detail, or nil if the node does
	// not have the transaction.
	GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)

	// GetSignatureStatus returns the confirmation status for a signature, or
	// nil if the signature is unknown to the node.
	GetSignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error)
}

// realChainReader adapts the solana-go RPC client to ChainReader.
type realChainReader struct {
	client *rpc.Client
}

// NewChainReader creates a ChainReader backed by the solana-go RPC client.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewChainReader(rpcURL string) ChainReader {
	return &realChainReader{
		client: rpc.New(rpcURL),
	}
}

// NewRPCClient returns the raw solana-go client, for callers that need to
// submit transactions rather than read chain state.
func NewRPCClient(rpcURL string) *rpc.Client {
	return rpc.New(rpcURL)
}

func (r *realChainReader) GetNativeBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	out, err := r.client.GetBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

func (r *realChainReader) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	out, err := r.client.GetTokenAccountBalance(ctx, tokenAccount, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	if out.Value == nil {
		return 0, fmt.Errorf("token balance response missing value")
	}
	// The RPC returns the raw amount as a decimal string.
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}

func (r *realChainReader) GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error) {
	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	}
	return r.client.GetSignaturesForAddressWithOpts(ctx, address, opts)
}

func (r *realChainReader) GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}
	return r.client.GetTransaction(ctx, signature, opts)
}

func (r *realChainReader) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error) {
	out, err := r.client.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}
