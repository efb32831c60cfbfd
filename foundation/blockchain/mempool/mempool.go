// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/mempool/selector"
)

// DefaultCapacity is the number of pending transactions held before the
// oldest ones are evicted.
const DefaultCapacity = 10_000

// entry is a pending transaction with its local arrival information.
type entry struct {
	tx      database.BlockTx
	arrival time.Time
	seq     uint64
}

// Mempool represents a cache of pending transactions keyed by the
// transaction hash.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]entry
	seq      uint64
	chainID  uint16
	capacity int
	selectFn selector.Func
	now      func() time.Time
}

// New constructs a new mempool using the default select strategy.
func New(chainID uint16) (*Mempool, error) {
	return NewWithStrategy(chainID, selector.StrategyArrival, DefaultCapacity)
}

// NewWithStrategy constructs a new mempool with specified select strategy
// and capacity. A capacity of zero or less means no bound.
func NewWithStrategy(chainID uint16, strategy string, capacity int) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]entry),
		chainID:  chainID,
		capacity: capacity,
		selectFn: selectFn,
		now:      time.Now,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether the transaction is pending.
func (mp *Mempool) Contains(hash string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[hash]
	return exists
}

// Add validates the signature of the transaction and adds it to the pool.
// The balance of the sender is not checked here since it depends on the
// chain, it's checked when a batch is selected for a block.
func (mp *Mempool) Add(tx database.SignedTx) error {
	hash := tx.Hash()

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[hash]; exists {
		return fmt.Errorf("%w: %s", database.ErrDuplicateTransaction, hash)
	}

	if err := tx.Validate(mp.chainID); err != nil {
		return err
	}

	mp.insert(hash, database.NewBlockTx(tx))

	return nil
}

// Remove drops the specified transactions from the pool. It returns the
// number of transactions that were removed.
func (mp *Mempool) Remove(hashes ...string) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, hash := range hashes {
		if _, exists := mp.pool[hash]; exists {
			delete(mp.pool, hash)
			removed++
		}
	}

	return removed
}

// Prune drops every transaction whose nonce has already been consumed by
// the specified account state. It returns the number of transactions that
// were dropped.
func (mp *Mempool) Prune(accounts selector.AccountReader) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var pruned int
	for hash, e := range mp.pool {
		if e.tx.Nonce < accounts.Query(e.tx.FromID).Nonce {
			delete(mp.pool, hash)
			pruned++
		}
	}

	return pruned
}

// Restore puts transactions back into the pool. These come from blocks that
// are no longer part of the canonical chain and were validated when the
// block was accepted. Rewards are never restored.
func (mp *Mempool) Restore(txs []database.BlockTx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var restored int
	for _, tx := range txs {
		if tx.IsReward() {
			continue
		}

		hash := tx.SignedTx.Hash()
		if _, exists := mp.pool[hash]; exists {
			continue
		}

		mp.insert(hash, tx)
		restored++
	}

	return restored
}

// Expire drops every transaction that arrived before the specified time. It
// returns the number of transactions that were dropped.
func (mp *Mempool) Expire(before time.Time) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var expired int
	for hash, e := range mp.pool {
		if e.arrival.Before(before) {
			delete(mp.pool, hash)
			expired++
		}
	}

	return expired
}

// Copy returns the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.BlockTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.ordered()
}

// SelectBatch uses the configured select strategy to return the next set
// of transactions for a block built on the specified account state.
func (mp *Mempool) SelectBatch(howMany int, accounts selector.AccountReader) []database.BlockTx {
	mp.mu.RLock()
	pending := mp.ordered()
	mp.mu.RUnlock()

	if howMany < 0 {
		howMany = len(pending)
	}

	return mp.selectFn(pending, howMany, accounts)
}

// =============================================================================

// insert adds the transaction evicting the oldest transaction when the pool
// is at capacity. The caller must hold the write lock.
func (mp *Mempool) insert(hash string, tx database.BlockTx) {
	if mp.capacity > 0 && len(mp.pool) >= mp.capacity {
		var oldest string
		var oldestSeq uint64
		for h, e := range mp.pool {
			if oldest == "" || e.seq < oldestSeq {
				oldest, oldestSeq = h, e.seq
			}
		}
		delete(mp.pool, oldest)
	}

	mp.seq++
	mp.pool[hash] = entry{
		tx:      tx,
		arrival: mp.now(),
		seq:     mp.seq,
	}
}

// ordered returns the transactions in arrival order. The caller must hold
// a lock.
func (mp *Mempool) ordered() []database.BlockTx {
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	txs := make([]database.BlockTx, len(entries))
	for i, e := range entries {
		txs[i] = e.tx
	}

	return txs
}
