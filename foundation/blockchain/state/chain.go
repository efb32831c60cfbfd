package state

import (
	"fmt"
	"math/big"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// Status describes where an accepted block ended up in the fork tree.
type Status string

// Set of statuses for a proposed block.
const (
	StatusRejected  Status = "rejected"
	StatusOrphan    Status = "orphan"
	StatusSidechain Status = "sidechain"
	StatusCanonical Status = "canonical"
	StatusReorg     Status = "reorg"
)

// node is an entry in the arena of known blocks. Blocks refer to their
// parent by hash.
type node struct {
	block     database.Block
	hash      string
	parent    string
	work      *big.Int         // Cumulative work from genesis to this block.
	journal   database.Journal // Undo information while canonical.
	canonical bool
}

// height returns the block number of the node.
func (n *node) height() uint64 {
	return n.block.Header.Number
}

// heavier reports whether the branch ending at n wins the fork choice
// against the branch ending at other. Equal work goes to the smaller hash.
func (n *node) heavier(other *node) bool {
	switch n.work.Cmp(other.work) {
	case 1:
		return true
	case -1:
		return false
	}

	return n.hash < other.hash
}

// =============================================================================

// tip returns the canonical tip. The caller must hold a lock.
func (s *State) tip() *node {
	return s.canonical[len(s.canonical)-1]
}

// addBlock runs the block through validation and attaches it to the fork
// tree. The caller must hold the write lock. Blocks are written to storage
// only when persist is true.
func (s *State) addBlock(block database.Block, persist bool) (Status, error) {
	if s.halted != nil {
		return StatusRejected, s.halted
	}

	hash := block.Hash()

	if _, exists := s.nodes[hash]; exists {
		return StatusRejected, fmt.Errorf("%w: %s", database.ErrDuplicateBlock, hash)
	}

	// An orphan holds its hash until the parent arrives, so the body is
	// checked before the block is kept.
	if err := block.ValidateBody(s.genesis.TransPerBlock); err != nil {
		return StatusRejected, err
	}

	parent, exists := s.nodes[block.Header.PrevBlockHash]
	if !exists {
		if s.orphans.contains(hash) {
			return StatusRejected, fmt.Errorf("%w: %s", database.ErrDuplicateBlock, hash)
		}

		s.orphans.add(hash, block)
		s.evHandler("state: addBlock: orphan: blk[%d]: hash[%s]: missing parent[%s]", block.Header.Number, hash, block.Header.PrevBlockHash)
		return StatusOrphan, fmt.Errorf("%w: %s", database.ErrUnknownParent, block.Header.PrevBlockHash)
	}

	// Checks that only need the parent.
	err := block.ValidateBlock(parent.block, database.ValidateArgs{
		ChainID:       s.genesis.ChainID,
		TransPerBlock: s.genesis.TransPerBlock,
		Difficulty:    s.difficultyAfter(parent),
		EvHandler:     s.evHandler,
	})
	if err != nil {
		return StatusRejected, err
	}

	nd := node{
		block:  block,
		hash:   hash,
		parent: parent.hash,
		work:   new(big.Int).Add(parent.work, database.Work(block.Header.Difficulty)),
	}

	// Extending the canonical tip updates the canonical accounts in place.
	if parent == s.tip() {
		journal, err := s.db.ApplyBlock(block, s.applyArgs())
		if err != nil {
			return StatusRejected, err
		}

		if persist {
			if err := s.db.Write(block); err != nil {
				s.db.Rollback(journal)
				return StatusRejected, err
			}
		}

		nd.journal = journal
		nd.canonical = true
		s.nodes[hash] = &nd
		s.canonical = append(s.canonical, &nd)

		s.evHandler("state: addBlock: canonical: blk[%d]: hash[%s]", block.Header.Number, hash)

		s.mempool.Remove(txHashes(block)...)
		s.mempool.Prune(s.db)
		s.blockEvent(block)

		return StatusCanonical, nil
	}

	// The block extends another branch. Replay the block against the state
	// at its parent without touching the canonical accounts.
	accounts, err := s.accountsAt(parent)
	if err != nil {
		return StatusRejected, err
	}

	if _, err := accounts.ApplyBlock(block, s.applyArgs()); err != nil {
		return StatusRejected, err
	}

	s.nodes[hash] = &nd
	s.evHandler("state: addBlock: sidechain: blk[%d]: hash[%s]", block.Header.Number, hash)

	if !nd.heavier(s.tip()) {
		return StatusSidechain, nil
	}

	if err := s.reorganize(&nd, persist); err != nil {
		return StatusRejected, err
	}

	return StatusReorg, nil
}

// processOrphans retries the orphans that were waiting on the specified
// block. Their children are retried as they are accepted.
func (s *State) processOrphans(hash string) {
	queue := []string{hash}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, orphan := range s.orphans.children(parent) {
			status, err := s.addBlock(orphan, true)
			if err != nil {
				s.evHandler("state: processOrphans: blk[%d]: rejected: %s", orphan.Header.Number, err)
				continue
			}

			s.evHandler("state: processOrphans: blk[%d]: %s", orphan.Header.Number, status)
			queue = append(queue, orphan.Hash())
		}
	}
}

// accountsAt computes the account state after the specified block by
// rolling the canonical accounts back to the fork point and replaying the
// branch. The caller must hold a lock.
func (s *State) accountsAt(n *node) (database.Accounts, error) {
	var branch []*node
	fork := n
	for !fork.canonical {
		branch = append(branch, fork)
		fork = s.nodes[fork.parent]
	}

	accounts := s.db.CopyAccounts()
	for _, c := range reverse(s.canonical[fork.height()+1:]) {
		accounts.Rollback(c.journal)
	}

	for _, b := range reverse(branch) {
		if _, err := accounts.ApplyBlock(b.block, s.applyArgs()); err != nil {
			return nil, fmt.Errorf("replaying sidechain block %d: %w", b.height(), err)
		}
	}

	return accounts, nil
}

// applyArgs returns the consensus values for applying a block.
func (s *State) applyArgs() database.ApplyArgs {
	return database.ApplyArgs{
		ChainID:      s.genesis.ChainID,
		MiningReward: s.genesis.MiningReward,
	}
}

// ancestor walks back from the node to the block at the specified height.
func (s *State) ancestor(n *node, height uint64) *node {
	if n.canonical && height < uint64(len(s.canonical)) {
		return s.canonical[height]
	}

	for n.height() > height {
		n = s.nodes[n.parent]
	}

	return n
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	s.evHandler(`viewer: block: {"hash":%q,"number":%d,"prev_hash":%q,"difficulty":%d,"trans":%d}`,
		block.Hash(), block.Header.Number, block.Header.PrevBlockHash, block.Header.Difficulty, len(block.Transactions()))
}

// =============================================================================

// txHashes returns the hashes of the transactions in the block.
func txHashes(block database.Block) []string {
	trans := block.Transactions()

	hashes := make([]string, len(trans))
	for i, tx := range trans {
		hashes[i] = tx.SignedTx.Hash()
	}

	return hashes
}

// reverse returns a copy of the nodes in reverse order.
func reverse(nodes []*node) []*node {
	out := make([]*node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}

	return out
}
