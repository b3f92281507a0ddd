package wallet

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// NativeDecimals is the decimal precision of the native token (SOL).
const NativeDecimals = uint8(9)

// NativeSymbol is the display symbol for the native token.
const NativeSymbol = "SOL"

// TokenConfig describes the single fungible token the wallet tracks
// alongside the native balance. A zero Mint disables token handling.
type TokenConfig struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
}

// Enabled reports whether a fungible token is configured.
func (t TokenConfig) Enabled() bool {
	return !t.Mint.IsZero()
}

// BalanceSnapshot is a point-in-time view of the account's holdings.
// It is created empty at session start and replaced wholesale on every
// successful refresh, never partially mutated.
type BalanceSnapshot struct {
	// Native is the lamport balance.
	Native uint64 `json:"native"`

	// Token is the fungible token balance in its smallest unit.
	Token uint64 `json:"token"`

	// TokenStale is true when the last token query failed and Token carries
	// the last-known value instead of a fresh one.
	TokenStale bool `json:"token_stale"`

	// FetchedAt is when the snapshot was produced.
	FetchedAt time.Time `json:"fetched_at"`
}

// ConfirmationStatus is the chain confirmation state of a record.
type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "pending"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFailed    ConfirmationStatus = "failed"
)

// TransactionRecord is one resolved on-chain transaction relevant to the
// active account, shaped for display.
type TransactionRecord struct {
	// Signature uniquely identifies the transaction within the history list.
	Signature string `json:"signature"`

	// Timestamp is the block time, zero when not yet known.
	Timestamp time.Time `json:"timestamp"`

	// Amount is signed: negative for outgoing, positive for incoming,
	// in the smallest unit of its token.
	Amount int64 `json:"amount"`

	// Counterparty is the other side of the transfer, empty when unknown.
	Counterparty string `json:"counterparty,omitempty"`

	// Token is the display symbol ("SOL" or the configured token symbol).
	Token string `json:"token,omitempty"`

	Status ConfirmationStatus `json:"status"`

	// Description is a human-readable summary.
	Description string `json:"description"`
}

// TokenSelector picks which asset a transfer moves.
type TokenSelector string

const (
	SelectNative TokenSelector = "native"
	SelectToken  TokenSelector = "token"
)

// TransferRequest is the ephemeral value object describing a user's
// in-flight transfer intent. Recipient and Amount stay raw strings until
// validated; the request is discarded on submission or cancellation.
type TransferRequest struct {
	Token     TokenSelector `json:"token"`
	Recipient string        `json:"recipient"`
	Amount    string        `json:"amount"`
}

// TransferValidity holds the computed validity flags for a request.
// A request is submittable only when all three hold simultaneously.
type TransferValidity struct {
	AddressValid      bool `json:"address_valid"`
	AmountValid       bool `json:"amount_valid"`
	SufficientBalance bool `json:"sufficient_balance"`
}

// Submittable reports whether every validity flag holds.
func (v TransferValidity) Submittable() bool {
	return v.AddressValid && v.AmountValid && v.SufficientBalance
}

// TransferState is the orchestrator's per-attempt state machine position.
type TransferState string

const (
	StateIdle                TransferState = "idle"
	StateValidating          TransferState = "validating"
	StateBuildingInstruction TransferState = "building_instruction"
	StateAwaitingSignature   TransferState = "awaiting_signature"
	StateSubmitted           TransferState = "submitted"
	StateFailed              TransferState = "failed"
)
