package solana

import (
	"github.com/gagliardetto/solana-go"
)

// TransferKind distinguishes native SOL transfers from SPL token transfers.
type TransferKind int

const (
	KindNative TransferKind = iota
	KindToken
)

// Transfer is one transfer instruction extracted from a transaction.
// For native transfers, Source and Destination are wallet addresses.
// For token transfers, Source and Destination are token accounts; Authority
// is the owner that signed, when the instruction encoding carries it.
type Transfer struct {
	Kind        TransferKind
	Amount      uint64
	Source      solana.PublicKey
	Destination solana.PublicKey
	Authority   *solana.PublicKey // nil for native transfers and for legacy Transfer encodings
	Mint        *solana.PublicKey // nil for native transfers and when the mint is not in the accounts
}
