package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/solpocket/solpocket/service/metrics"
	chain "github.com/solpocket/solpocket/service/solana"
)

const (
	// MaxHistoryLimit is the hard ceiling on signatures fetched per refresh.
	MaxHistoryLimit = 100

	// DefaultHistoryBatchSize bounds peak RPC concurrency while resolving
	// signature details.
	DefaultHistoryBatchSize = 5

	// defaultBatchPause is the pause between detail-fetch batches.
	defaultBatchPause = 500 * time.Millisecond
)

// HistorySynchronizer maintains an ordered, capped, best-effort list of
// recent transactions for the active account.
type HistorySynchronizer struct {
	chain          chain.ChainReader
	store          *Store
	owner          solana.PublicKey
	ownerTokenAcct solana.PublicKey
	token          TokenConfig
	limit          int
	batchSize      int
	pace           *rate.Limiter
	gen            atomic.Uint64
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewHistorySynchronizer creates a synchronizer for the given account
// address. The limit is clamped to MaxHistoryLimit; non-positive limit and
// batch size fall back to defaults.
func NewHistorySynchronizer(reader chain.ChainReader, store *Store, address string, token TokenConfig, limit, batchSize int, m *metrics.Metrics, logger *slog.Logger) (*HistorySynchronizer, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, address)
	}

	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if batchSize <= 0 {
		batchSize = DefaultHistoryBatchSize
	}

	s := &HistorySynchronizer{
		chain:     reader,
		store:     store,
		owner:     owner,
		token:     token,
		limit:     limit,
		batchSize: batchSize,
		pace:      rate.NewLimiter(rate.Every(defaultBatchPause), 1),
		logger:    logger,
		metrics:   m,
	}

	if token.Enabled() {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, token.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token address: %w", err)
		}
		s.ownerTokenAcct = ata
	}

	return s, nil
}

// Refresh fetches recent signatures and resolves them to records in
// fixed-size batches, then wholesale-replaces the published list.
//
// History is supplementary, not critical-path: a failed signature fetch is
// logged and yields an empty result without touching the published list. A
// single signature's failure never aborts its batch or the refresh; it is
// downgraded to a pending placeholder record.
//
// Like the balance synchronizer, overlapping refreshes are gated by a
// generation token so a stale in-flight result cannot overwrite a newer one.
func (s *HistorySynchronizer) Refresh(ctx context.Context) ([]TransactionRecord, error) {
	gen := s.gen.Add(1)

	start := time.Now()
	signatures, err := s.chain.GetSignaturesForAddress(ctx, s.owner, s.limit)
	s.recordRPC("GetSignaturesForAddress", err, start)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch signatures, keeping previous history",
			"account", s.owner.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.RecordHistoryRefresh("error", 0)
		}
		return []TransactionRecord{}, nil
	}

	if len(signatures) == 0 {
		if s.gen.Load() == gen {
			s.store.ReplaceHistory(nil)
		}
		if s.metrics != nil {
			s.metrics.RecordHistoryRefresh("success", 0)
		}
		return []TransactionRecord{}, nil
	}

	// Resolve details in fixed-size batches, concurrently within a batch and
	// paced between batches. Results land at their original index so the
	// published list keeps the newest-first signature order.
	records := make([]TransactionRecord, len(signatures))
	for batchStart := 0; batchStart < len(signatures); batchStart += s.batchSize {
		if err := s.pace.Wait(ctx); err != nil {
			return nil, err
		}

		batchEnd := min(batchStart+s.batchSize, len(signatures))
		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				records[i] = s.resolve(ctx, signatures[i])
			}(i)
		}
		wg.Wait()
	}

	if s.gen.Load() != gen {
		s.logger.DebugContext(ctx, "discarding stale history refresh result",
			"account", s.owner.String(),
		)
		return records, nil
	}

	s.store.ReplaceHistory(records)

	if s.metrics != nil {
		s.metrics.RecordHistoryRefresh("success", len(signatures))
	}

	s.logger.DebugContext(ctx, "history refreshed",
		"account", s.owner.String(),
		"count", len(records),
	)

	return records, nil
}

// resolve turns one signature into a display record. Every failure mode is
// contained: detail-fetch or parse problems produce a placeholder record
// instead of an error.
func (s *HistorySynchronizer) resolve(ctx context.Context, sig *rpc.TransactionSignature) TransactionRecord {
	record := TransactionRecord{
		Signature:   sig.Signature.String(),
		Status:      statusFromSignature(sig),
		Description: "Transaction",
	}
	if sig.BlockTime != nil {
		record.Timestamp = sig.BlockTime.Time()
	}

	start := time.Now()
	result, err := s.chain.GetTransaction(ctx, sig.Signature)
	s.recordRPC("GetTransaction", err, start)

	var tx *solana.Transaction
	if err == nil {
		tx, err = chain.DecodeTransaction(result)
	}

	if err != nil || tx == nil {
		// Detail not available (pruned, still propagating, or undecodable).
		// Fall back to a direct status check before concluding the
		// transaction is unresolved, then emit a placeholder.
		s.logger.WarnContext(ctx, "failed to resolve transaction detail, using placeholder",
			"signature", record.Signature,
			"error", err,
		)
		if status, ok := s.checkStatus(ctx, sig.Signature); ok {
			record.Status = status
		} else {
			record.Status = StatusPending
		}
		if s.metrics != nil {
			s.metrics.RecordRecordResolved("placeholder")
		}
		return record
	}

	if record.Status == StatusFailed {
		record.Description = "Failed transaction"
		if s.metrics != nil {
			s.metrics.RecordRecordResolved("failed")
		}
		return record
	}

	// First matching transfer instruction determines the record; later
	// transfers in the same transaction are ignored.
	for _, transfer := range chain.ExtractTransfers(tx) {
		amount, counterparty, symbol, ok := s.matchTransfer(transfer)
		if !ok {
			continue
		}
		record.Amount = amount
		record.Counterparty = counterparty
		record.Token = symbol
		record.Description = describeTransfer(amount, counterparty, symbol, tokenDecimals(symbol, s.token))
		if s.metrics != nil {
			s.metrics.RecordRecordResolved("parsed")
		}
		return record
	}

	if s.metrics != nil {
		s.metrics.RecordRecordResolved("no_transfer")
	}
	return record
}

// matchTransfer decides whether a transfer involves the active account and,
// if so, computes the direction-qualified amount and counterparty. Positive
// means the account is the destination, negative means it is the source.
func (s *HistorySynchronizer) matchTransfer(t chain.Transfer) (int64, string, string, bool) {
	switch t.Kind {
	case chain.KindNative:
		if t.Destination.Equals(s.owner) {
			return int64(t.Amount), t.Source.String(), NativeSymbol, true
		}
		if t.Source.Equals(s.owner) {
			return -int64(t.Amount), t.Destination.String(), NativeSymbol, true
		}

	case chain.KindToken:
		if !s.token.Enabled() {
			return 0, "", "", false
		}
		// When the instruction names a mint, it must be the tracked one.
		if t.Mint != nil && !t.Mint.Equals(s.token.Mint) {
			return 0, "", "", false
		}
		if t.Destination.Equals(s.ownerTokenAcct) || t.Destination.Equals(s.owner) {
			counterparty := t.Source.String()
			if t.Authority != nil {
				counterparty = t.Authority.String()
			}
			return int64(t.Amount), counterparty, s.token.Symbol, true
		}
		if t.Source.Equals(s.ownerTokenAcct) || (t.Authority != nil && t.Authority.Equals(s.owner)) {
			return -int64(t.Amount), t.Destination.String(), s.token.Symbol, true
		}
	}

	return 0, "", "", false
}

// checkStatus queries confirmation status directly, the secondary check used
// when the detail fetch fails on slow networks.
func (s *HistorySynchronizer) checkStatus(ctx context.Context, sig solana.Signature) (ConfirmationStatus, bool) {
	start := time.Now()
	status, err := s.chain.GetSignatureStatus(ctx, sig)
	s.recordRPC("GetSignatureStatus", err, start)
	if err != nil || status == nil {
		return StatusPending, false
	}
	if status.Err != nil {
		return StatusFailed, true
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return StatusConfirmed, true
	default:
		return StatusPending, true
	}
}

func (s *HistorySynchronizer) recordRPC(method string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}

// statusFromSignature maps signature metadata to a confirmation status.
func statusFromSignature(sig *rpc.TransactionSignature) ConfirmationStatus {
	if sig.Err != nil {
		return StatusFailed
	}
	switch sig.ConfirmationStatus {
	case rpc.ConfirmationStatusProcessed:
		return StatusPending
	default:
		// getSignaturesForAddress only lists signatures at or above the
		// request commitment, so an absent status still means confirmed.
		return StatusConfirmed
	}
}

// describeTransfer renders a human-readable summary line.
func describeTransfer(amount int64, counterparty, symbol string, decimals uint8) string {
	if amount < 0 {
		return fmt.Sprintf("Sent %s %s to %s", FormatAmount(-amount, decimals), symbol, shortenAddress(counterparty))
	}
	return fmt.Sprintf("Received %s %s from %s", FormatAmount(amount, decimals), symbol, shortenAddress(counterparty))
}

func tokenDecimals(symbol string, token TokenConfig) uint8 {
	if symbol == NativeSymbol {
		return NativeDecimals
	}
	return token.Decimals
}

// shortenAddress abbreviates an address for display.
func shortenAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return fmt.Sprintf("%s...%s", address[:4], address[len(address)-4:])
}
