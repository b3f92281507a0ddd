package wallet

import (
	"sync"
)

// UpdateKind identifies which piece of shared state changed.
type UpdateKind int

const (
	UpdateBalance UpdateKind = iota
	UpdateHistory
)

// DefaultMaxHistory caps the in-memory transaction list.
const DefaultMaxHistory = 50

// Store owns the wallet's shared mutable state: the balance snapshot and the
// transaction record list. Both are updated only via full-value replacement,
// so readers always see a complete, self-consistent snapshot.
type Store struct {
	mu         sync.RWMutex
	balance    BalanceSnapshot
	history    []TransactionRecord
	maxHistory int
	subs       []chan UpdateKind
}

// NewStore creates a Store with the given history cap. A non-positive cap
// falls back to DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{maxHistory: maxHistory}
}

// Balance returns the current snapshot.
func (s *Store) Balance() BalanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// History returns a copy of the current record list, newest first.
func (s *Store) History() []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransactionRecord, len(s.history))
	copy(out, s.history)
	return out
}

// SetBalance replaces the balance snapshot wholesale and notifies subscribers.
func (s *Store) SetBalance(b BalanceSnapshot) {
	s.mu.Lock()
	s.balance = b
	s.mu.Unlock()
	s.notify(UpdateBalance)
}

// ReplaceHistory replaces the record list wholesale, preserving the given
// order, dropping duplicate signatures (first occurrence wins) and applying
// the cap. Ordering is never re-sorted after insertion.
func (s *Store) ReplaceHistory(records []TransactionRecord) {
	seen := make(map[string]struct{}, len(records))
	deduped := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Signature]; ok {
			continue
		}
		seen[r.Signature] = struct{}{}
		deduped = append(deduped, r)
		if len(deduped) == s.maxHistory {
			break
		}
	}

	s.mu.Lock()
	s.history = deduped
	s.mu.Unlock()
	s.notify(UpdateHistory)
}

// Prepend inserts a single record at the head of the list, typically a
// speculative pending record for a just-submitted transfer. It returns false
// without modifying the list when the signature is already present.
func (s *Store) Prepend(record TransactionRecord) bool {
	s.mu.Lock()
	for _, r := range s.history {
		if r.Signature == record.Signature {
			s.mu.Unlock()
			return false
		}
	}
	s.history = append([]TransactionRecord{record}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
	s.mu.Unlock()
	s.notify(UpdateHistory)
	return true
}

// Subscribe returns a channel that receives a notification whenever the
// balance or history is replaced. Notifications are best-effort: if the
// subscriber is not keeping up, updates are dropped rather than blocking
// the synchronizers.
func (s *Store) Subscribe() <-chan UpdateKind {
	ch := make(chan UpdateKind, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(kind UpdateKind) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- kind:
		default:
		}
	}
}
