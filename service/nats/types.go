package nats

import (
	"time"

	"github.com/solpocket/solpocket/service/wallet"
)

// BalanceEvent is published to "wallet.{address}.balance" whenever the
// balance snapshot is replaced.
type BalanceEvent struct {
	WalletAddress string `json:"wallet_address"`

	Native     uint64 `json:"native"`
	Token      uint64 `json:"token"`
	TokenStale bool   `json:"token_stale"`

	FetchedAt   time.Time `json:"fetched_at"`
	PublishedAt time.Time `json:"published_at"`
}

// HistoryEvent is published to "wallet.{address}.txns" whenever the
// transaction list is replaced. It carries the full list, mirroring the
// wholesale replacement the store performs.
type HistoryEvent struct {
	WalletAddress string `json:"wallet_address"`

	Records []wallet.TransactionRecord `json:"records"`

	PublishedAt time.Time `json:"published_at"`
}

// FromBalanceSnapshot converts a snapshot to a BalanceEvent for publishing.
func FromBalanceSnapshot(address string, snap wallet.BalanceSnapshot) *BalanceEvent {
	return &BalanceEvent{
		WalletAddress: address,
		Native:        snap.Native,
		Token:         snap.Token,
		TokenStale:    snap.TokenStale,
		FetchedAt:     snap.FetchedAt,
		PublishedAt:   time.Now().UTC(),
	}
}

// FromHistory converts a record list to a HistoryEvent for publishing.
func FromHistory(address string, records []wallet.TransactionRecord) *HistoryEvent {
	return &HistoryEvent{
		WalletAddress: address,
		Records:       records,
		PublishedAt:   time.Now().UTC(),
	}
}
