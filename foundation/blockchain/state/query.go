package state

import (
	"errors"
	"fmt"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/peer"
)

// ErrUnknownBlock is returned when a block hash is not part of the fork tree.
var ErrUnknownBlock = errors.New("unknown block")

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// maxBlocksSince is the most blocks returned for a single sync request.
const maxBlocksSince = 500

// =============================================================================

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// GenesisBlock returns the root block of the chain.
func (s *State) GenesisBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.canonical[0].block
}

// CanonicalTip returns a copy the current latest block.
func (s *State) CanonicalTip() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tip().block
}

// CanonicalWork returns the cumulative work of the canonical chain.
func (s *State) CanonicalWork() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tip().work.String()
}

// MinesEmptyBlocks reports whether the node mines blocks that only carry
// the reward.
func (s *State) MinesEmptyBlocks() bool {
	return s.mineEmpty
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.BlockTx {
	return s.mempool.Copy()
}

// RetrieveAccounts returns a copy of the canonical accounts. The lock keeps
// an append or reorg in progress from being observed half way.
func (s *State) RetrieveAccounts() database.Accounts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.CopyAccounts()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// AddKnownPeer provides the ability to add a new peer.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer provides the ability to remove a peer.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}

// =============================================================================

// QueryAccount returns a copy of the account from the canonical state.
func (s *State) QueryAccount(accountID database.AccountID) database.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Query(accountID)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryOrphanCount returns the number of blocks waiting for their parent.
func (s *State) QueryOrphanCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orphans.count()
}

// QueryBlock returns the block with the specified hash from any branch and
// whether it is part of the canonical chain.
func (s *State) QueryBlock(hash string) (database.Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.nodes[hash]
	if !exists {
		return database.Block{}, false, fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
	}

	return n.block, n.canonical, nil
}

// QueryBlocksByNumber returns the set of canonical blocks based on block
// numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.tip().height()
	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to && i <= latest; i++ {
		out = append(out, s.canonical[i].block)
	}

	return out
}

// BlocksSince returns the canonical blocks a node with the specified tip is
// missing. When the hash is on a branch that is no longer canonical the
// blocks start after the point where that branch left the canonical chain.
func (s *State) BlocksSince(hash string) ([]database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.nodes[hash]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
	}

	for !n.canonical {
		n = s.nodes[n.parent]
	}

	var out []database.Block
	for _, c := range s.canonical[n.height()+1:] {
		if len(out) == maxBlocksSince {
			break
		}
		out = append(out, c.block)
	}

	return out, nil
}

// QueryBlocksByAccount returns the set of canonical blocks with a
// transaction for the account. If the account is empty, all blocks are
// returned.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.Block
	for _, n := range s.canonical[1:] {
		for _, tx := range n.block.Transactions() {
			if accountID == "" || tx.FromID == accountID || tx.ToID == accountID {
				out = append(out, n.block)
				break
			}
		}
	}

	return out
}
