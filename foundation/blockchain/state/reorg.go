package state

import (
	"fmt"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// reorganize makes the branch ending at newTip the canonical chain. The
// canonical accounts are rolled back to the common ancestor and the new
// branch is applied forward. Transactions only found in the old branch go
// back to the mempool. Any failure halts the chain since the canonical
// state can no longer be trusted. The caller must hold the write lock.
func (s *State) reorganize(newTip *node, persist bool) error {
	oldTip := s.tip()

	s.evHandler("state: reorganize: started: old[%d:%s]: new[%d:%s]", oldTip.height(), oldTip.hash, newTip.height(), newTip.hash)
	defer s.evHandler("state: reorganize: completed")

	// Walk the new branch back to the common ancestor.
	var branch []*node
	fork := newTip
	for !fork.canonical {
		branch = append(branch, fork)
		fork = s.nodes[fork.parent]
	}
	branch = reverse(branch)

	detached := s.canonical[fork.height()+1:]

	// Undo the old branch in reverse order.
	for _, n := range reverse(detached) {
		s.db.Rollback(n.journal)
		n.journal = nil
		n.canonical = false
	}

	// Apply the new branch in forward order.
	canonical := append([]*node(nil), s.canonical[:fork.height()+1]...)
	for _, n := range branch {
		journal, err := s.db.ApplyBlock(n.block, s.applyArgs())
		if err != nil {
			return s.halt(fmt.Errorf("applying block %d[%s]: %w", n.height(), n.hash, err))
		}

		n.journal = journal
		n.canonical = true
		canonical = append(canonical, n)
	}
	s.canonical = canonical

	// Record the new canonical path in storage.
	if persist {
		for _, n := range branch {
			if err := s.db.Write(n.block); err != nil {
				return s.halt(fmt.Errorf("writing block %d[%s]: %w", n.height(), n.hash, err))
			}
		}

		if err := s.db.Truncate(newTip.height()); err != nil {
			return s.halt(fmt.Errorf("truncating storage at %d: %w", newTip.height(), err))
		}
	}

	// Transactions in the new branch are mined. Those only in the old branch
	// are pending again.
	included := make(map[string]bool)
	for _, n := range branch {
		for _, hash := range txHashes(n.block) {
			included[hash] = true
		}
	}

	var restore []database.BlockTx
	for _, n := range detached {
		for _, tx := range n.block.Transactions() {
			if !included[tx.SignedTx.Hash()] {
				restore = append(restore, tx)
			}
		}
	}

	restored := s.mempool.Restore(restore)
	for _, n := range branch {
		s.mempool.Remove(txHashes(n.block)...)
	}
	pruned := s.mempool.Prune(s.db)

	s.evHandler("state: reorganize: detached[%d]: attached[%d]: restored[%d]: pruned[%d]", len(detached), len(branch), restored, pruned)

	for _, n := range branch {
		s.blockEvent(n.block)
	}

	return nil
}

// halt stops the chain from accepting any more blocks.
func (s *State) halt(err error) error {
	s.halted = fmt.Errorf("%w: %s", ErrChainHalted, err)
	s.evHandler("state: halt: ERROR: %s", s.halted)

	return s.halted
}
