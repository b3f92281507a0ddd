package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FeeMode selects who pays the transaction fee.
type FeeMode string

const (
	// FeeModeSponsored requests gasless execution: the session's fee payer
	// covers the transaction fee.
	FeeModeSponsored FeeMode = "sponsored"

	// FeeModeSelf pays the fee from the owner's own balance.
	FeeModeSelf FeeMode = "self"
)

// SendOptions carries per-submission options for a signing session.
type SendOptions struct {
	FeeMode          FeeMode
	ComputeUnitLimit uint32
}

// Session is the external signing authority. Implementations own credential
// handling (passkeys, hardware, local keys); this core only delegates.
//
// Contract: SignAndSend returns a transaction signature on success. A
// user-dismissed prompt must be reported with ErrUserCancelled. A failure
// after signing, where the transaction may have reached the chain, must be
// reported with an error wrapping ErrSubmitFailed.
type Session interface {
	Owner() solana.PublicKey
	SignAndSend(ctx context.Context, instructions []solana.Instruction, opts SendOptions) (solana.Signature, error)
}

// txSubmitter is the slice of the RPC client a LocalSession needs.
type txSubmitter interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// LocalSession signs with an in-process keypair and submits directly to the
// RPC endpoint. It is the CLI's development signer; it cannot sponsor fees,
// so SendOptions.FeeMode is ignored and the owner always pays.
type LocalSession struct {
	key    solana.PrivateKey
	rpc    txSubmitter
	logger *slog.Logger
}

// NewLocalSession creates a session around a private key. The *rpc.Client
// from solana-go satisfies txSubmitter directly.
func NewLocalSession(key solana.PrivateKey, submitter txSubmitter, logger *slog.Logger) *LocalSession {
	return &LocalSession{
		key:    key,
		rpc:    submitter,
		logger: logger,
	}
}

// Owner returns the keypair's public key.
func (s *LocalSession) Owner() solana.PublicKey {
	return s.key.PublicKey()
}

// SignAndSend builds a transaction from the instructions, signs it with the
// local key and submits it.
func (s *LocalSession) SignAndSend(ctx context.Context, instructions []solana.Instruction, opts SendOptions) (solana.Signature, error) {
	recent, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(s.key.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		// The transaction was already signed; the outcome is ambiguous.
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.logger.DebugContext(ctx, "transaction submitted",
		"signature", sig.String(),
		"fee_payer", s.key.PublicKey().String(),
	)

	return sig, nil
}
