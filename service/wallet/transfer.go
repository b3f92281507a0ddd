package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/solpocket/solpocket/service/metrics"
)

// validatedTransfer is a TransferRequest after all local checks passed.
type validatedTransfer struct {
	selector  TokenSelector
	recipient solana.PublicKey
	units     uint64
	symbol    string
	decimals  uint8
}

// Validate runs every local check and returns the parsed transfer, or a
// ValidationError with a distinct reason. All checks are cheap and run
// before any network access.
func (r TransferRequest) Validate(owner solana.PublicKey, balance BalanceSnapshot, tokenCfg TokenConfig, maxNative, maxToken uint64) (*validatedTransfer, *ValidationError) {
	if r.Recipient == "" {
		return nil, &ValidationError{Reason: ReasonEmptyRecipient}
	}
	recipient, err := solana.PublicKeyFromBase58(r.Recipient)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonMalformedAddress}
	}
	if recipient.Equals(owner) {
		return nil, &ValidationError{Reason: ReasonSelfTransfer}
	}

	v := &validatedTransfer{
		selector:  r.Token,
		recipient: recipient,
	}

	var available, sanityMax uint64
	switch r.Token {
	case SelectToken:
		if !tokenCfg.Enabled() {
			return nil, &ValidationError{Reason: ReasonTokenNotConfigured}
		}
		v.symbol = tokenCfg.Symbol
		v.decimals = tokenCfg.Decimals
		available = balance.Token
		sanityMax = maxToken
	default:
		v.symbol = NativeSymbol
		v.decimals = NativeDecimals
		available = balance.Native
		sanityMax = maxNative
	}

	units, verr := ParseAmount(r.Amount, v.decimals)
	if verr != nil {
		return nil, verr
	}
	if sanityMax > 0 && units > sanityMax {
		return nil, &ValidationError{Reason: ReasonAmountTooLarge}
	}
	if units > available {
		return nil, &ValidationError{Reason: ReasonInsufficientBalance}
	}
	v.units = units

	return v, nil
}

// Validity computes the three flags a form can display inline. The request
// is submittable only when all of them hold.
func (r TransferRequest) Validity(owner solana.PublicKey, balance BalanceSnapshot, tokenCfg TokenConfig, maxNative, maxToken uint64) TransferValidity {
	_, verr := r.Validate(owner, balance, tokenCfg, maxNative, maxToken)
	if verr == nil {
		return TransferValidity{AddressValid: true, AmountValid: true, SufficientBalance: true}
	}
	switch verr.Reason {
	case ReasonEmptyRecipient, ReasonMalformedAddress, ReasonSelfTransfer:
		return TransferValidity{}
	case ReasonInsufficientBalance:
		return TransferValidity{AddressValid: true, AmountValid: true}
	default:
		return TransferValidity{AddressValid: true}
	}
}

// TransferOrchestrator validates, constructs, submits, and records a single
// token transfer. Submission returns as soon as a signature is known; chain
// confirmation is resolved out-of-band by the next history refresh.
type TransferOrchestrator struct {
	session   Session
	store     *Store
	owner     solana.PublicKey
	token     TokenConfig
	senderATA solana.PublicKey
	maxNative uint64 // sanity cap in lamports, 0 disables
	maxToken  uint64 // sanity cap in token units, 0 disables
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu    sync.Mutex
	state TransferState
}

// NewTransferOrchestrator creates an orchestrator signing through the given
// session. The session's owner is the sending account.
func NewTransferOrchestrator(session Session, store *Store, tokenCfg TokenConfig, maxNative, maxToken uint64, m *metrics.Metrics, logger *slog.Logger) (*TransferOrchestrator, error) {
	owner := session.Owner()
	if owner.IsZero() {
		return nil, ErrInvalidAccount
	}

	o := &TransferOrchestrator{
		session:   session,
		store:     store,
		owner:     owner,
		token:     tokenCfg,
		maxNative: maxNative,
		maxToken:  maxToken,
		logger:    logger,
		metrics:   m,
		state:     StateIdle,
	}

	if tokenCfg.Enabled() {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, tokenCfg.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive sender token address: %w", err)
		}
		o.senderATA = ata
	}

	return o, nil
}

// Validity computes the validity flags for a request against the current
// balance snapshot, without submitting anything.
func (o *TransferOrchestrator) Validity(req TransferRequest) TransferValidity {
	return req.Validity(o.owner, o.store.Balance(), o.token, o.maxNative, o.maxToken)
}

// State returns the current attempt's state machine position.
func (o *TransferOrchestrator) State() TransferState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *TransferOrchestrator) setState(s TransferState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Submit runs one transfer attempt through the state machine:
// Validating -> BuildingInstruction -> AwaitingSignature -> Submitted.
//
// On success it prepends exactly one speculative pending record with the
// outgoing (negative) amount and returns the signature immediately; it does
// not block on chain confirmation. Failures are typed: ValidationError,
// InstructionBuildError, SigningError (cancellation distinguished), or
// SubmissionError.
func (o *TransferOrchestrator) Submit(ctx context.Context, req TransferRequest) (solana.Signature, error) {
	start := time.Now()

	o.setState(StateValidating)
	v, verr := req.Validate(o.owner, o.store.Balance(), o.token, o.maxNative, o.maxToken)
	if verr != nil {
		o.fail(ctx, "validation_error", verr, start)
		return solana.Signature{}, verr
	}

	o.setState(StateBuildingInstruction)
	instruction, err := o.buildInstruction(v)
	if err != nil {
		buildErr := &InstructionBuildError{Err: err}
		o.fail(ctx, "build_error", buildErr, start)
		return solana.Signature{}, buildErr
	}

	// The single suspension point that may block on user interaction
	// (e.g. a biometric prompt); cancellation here is user-driven.
	o.setState(StateAwaitingSignature)
	sig, err := o.session.SignAndSend(ctx, []solana.Instruction{instruction}, SendOptions{
		FeeMode: FeeModeSponsored,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserCancelled):
			signErr := &SigningError{Cancelled: true, Err: err}
			o.fail(ctx, "cancelled", signErr, start)
			return solana.Signature{}, signErr
		case errors.Is(err, ErrSubmitFailed):
			subErr := &SubmissionError{Err: err}
			o.fail(ctx, "submission_error", subErr, start)
			return solana.Signature{}, subErr
		default:
			signErr := &SigningError{Err: err}
			o.fail(ctx, "signing_error", signErr, start)
			return solana.Signature{}, signErr
		}
	}

	o.setState(StateSubmitted)

	// Record the outgoing transfer speculatively; the next history refresh
	// supersedes it once the real record is fetched.
	record := TransactionRecord{
		Signature:    sig.String(),
		Timestamp:    time.Now().UTC(),
		Amount:       -int64(v.units),
		Counterparty: v.recipient.String(),
		Token:        v.symbol,
		Status:       StatusPending,
		Description:  describeTransfer(-int64(v.units), v.recipient.String(), v.symbol, v.decimals),
	}
	o.store.Prepend(record)

	if o.metrics != nil {
		o.metrics.RecordTransfer("submitted", time.Since(start).Seconds())
	}

	o.logger.InfoContext(ctx, "transfer submitted",
		"signature", sig.String(),
		"recipient", v.recipient.String(),
		"amount", v.units,
		"token", v.symbol,
	)

	return sig, nil
}

// buildInstruction constructs the native or token transfer instruction.
func (o *TransferOrchestrator) buildInstruction(v *validatedTransfer) (solana.Instruction, error) {
	if v.selector != SelectToken {
		return system.NewTransferInstruction(
			v.units,
			o.owner,
			v.recipient,
		).Build(), nil
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(v.recipient, o.token.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive recipient token address: %w", err)
	}

	return token.NewTransferCheckedInstruction(
		v.units,
		o.token.Decimals,
		o.senderATA,
		o.token.Mint,
		recipientATA,
		o.owner,
		nil,
	).Build(), nil
}

func (o *TransferOrchestrator) fail(ctx context.Context, outcome string, err error, start time.Time) {
	o.setState(StateFailed)
	if o.metrics != nil {
		o.metrics.RecordTransfer(outcome, time.Since(start).Seconds())
	}
	o.logger.WarnContext(ctx, "transfer attempt failed",
		"outcome", outcome,
		"error", err,
	)
}
