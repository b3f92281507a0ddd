package wallet

import (
	"errors"
	"fmt"
)

// ErrInvalidAccount indicates a syntactically invalid account address,
// detected before any network call.
var ErrInvalidAccount = errors.New("invalid account address")

// ErrUserCancelled is returned by a Session when the user dismissed the
// signing prompt. Orchestrators must treat it as a distinct failure reason,
// not a generic signing error.
var ErrUserCancelled = errors.New("user cancelled signing")

// ErrSubmitFailed marks a network/RPC failure after signing. The transfer
// may or may not have reached the chain; callers should check history
// rather than retry blindly.
var ErrSubmitFailed = errors.New("transaction submission failed")

// ErrConfirmationTimeout indicates the bounded confirmation wait elapsed.
// The transaction is not necessarily lost; check a block explorer.
var ErrConfirmationTimeout = errors.New("timed out waiting for confirmation; check a block explorer")

// BalanceFetchError indicates the native balance query failed. The native
// balance is load-bearing and has no safe default, so the whole refresh
// fails with this error.
type BalanceFetchError struct {
	Err error
}

func (e *BalanceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch native balance: %v", e.Err)
}

func (e *BalanceFetchError) Unwrap() error { return e.Err }

// ValidationReason identifies which local check a transfer request failed.
type ValidationReason int

const (
	ReasonEmptyRecipient ValidationReason = iota
	ReasonMalformedAddress
	ReasonSelfTransfer
	ReasonAmountNotPositive
	ReasonPrecisionOverflow
	ReasonAmountTooLarge
	ReasonInsufficientBalance
	ReasonTokenNotConfigured
)

// ValidationError is a locally-detected transfer input problem. It is always
// recoverable by the user correcting input, and each reason carries a
// distinct user-facing message.
type ValidationError struct {
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmptyRecipient:
		return "recipient address is empty"
	case ReasonMalformedAddress:
		return "recipient is not a valid address"
	case ReasonSelfTransfer:
		return "cannot transfer to your own address"
	case ReasonAmountNotPositive:
		return "amount must be a positive number"
	case ReasonPrecisionOverflow:
		return "amount has more decimal places than the token supports"
	case ReasonAmountTooLarge:
		return "amount exceeds the maximum allowed per transfer"
	case ReasonInsufficientBalance:
		return "amount exceeds available balance"
	case ReasonTokenNotConfigured:
		return "no fungible token is configured for this wallet"
	default:
		return "invalid transfer request"
	}
}

// InstructionBuildError indicates account resolution or instruction
// construction failed. This is fatal to the attempt and not retried.
type InstructionBuildError struct {
	Err error
}

func (e *InstructionBuildError) Error() string {
	return fmt.Sprintf("failed to build transfer instruction: %v", e.Err)
}

func (e *InstructionBuildError) Unwrap() error { return e.Err }

// SigningError indicates the signing step failed. Cancelled distinguishes
// "you cancelled" from "something failed".
type SigningError struct {
	Cancelled bool
	Err       error
}

func (e *SigningError) Error() string {
	if e.Cancelled {
		return "signing cancelled by user"
	}
	return fmt.Sprintf("signing failed: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// SubmissionError indicates a failure after signing with an ambiguous
// chain-state outcome.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (transaction may still have reached the chain): %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
