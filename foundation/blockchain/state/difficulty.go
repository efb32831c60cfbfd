package state

import (
	"fmt"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// DifficultyForNextBlock returns the difficulty a block built on top of the
// specified block must carry.
func (s *State) DifficultyForNextBlock(hash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.nodes[hash]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
	}

	return s.difficultyAfter(n), nil
}

// difficultyAfter computes the difficulty for the child of the specified
// block. The difficulty only changes every retarget interval, the window
// runs from the oldest block of the interval to the parent. The genesis
// block is never part of the window since its timestamp is fixed. The
// caller must hold a lock.
func (s *State) difficultyAfter(parent *node) uint64 {
	next := parent.height() + 1
	interval := s.genesis.RetargetInterval

	if interval == 0 || next%interval != 0 {
		return parent.block.Header.Difficulty
	}

	var start uint64 = 1
	if next > interval {
		start = next - interval
	}

	first := s.ancestor(parent, start)

	return database.NextDifficulty(database.RetargetArgs{
		Difficulty: parent.block.Header.Difficulty,
		First:      first.block.Header,
		Last:       parent.block.Header,
		BlockTime:  s.genesis.BlockTime,
	})
}
