package state

import (
	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// maxOrphans is the number of blocks with an unknown parent held for retry.
const maxOrphans = 256

// orphanPool holds blocks whose parent has not been seen yet. When the pool
// is full the oldest block is dropped.
type orphanPool struct {
	max    int
	blocks map[string]database.Block
	order  []string
}

func newOrphanPool(max int) *orphanPool {
	return &orphanPool{
		max:    max,
		blocks: make(map[string]database.Block),
	}
}

// add stores the block.
func (op *orphanPool) add(hash string, block database.Block) {
	if _, exists := op.blocks[hash]; exists {
		return
	}

	if len(op.order) >= op.max {
		delete(op.blocks, op.order[0])
		op.order = op.order[1:]
	}

	op.blocks[hash] = block
	op.order = append(op.order, hash)
}

// contains reports whether the block is held.
func (op *orphanPool) contains(hash string) bool {
	_, exists := op.blocks[hash]
	return exists
}

// children removes and returns the blocks waiting on the specified parent
// in the order they arrived.
func (op *orphanPool) children(parent string) []database.Block {
	var found []database.Block
	order := op.order[:0]

	for _, hash := range op.order {
		block := op.blocks[hash]
		if block.Header.PrevBlockHash != parent {
			order = append(order, hash)
			continue
		}

		found = append(found, block)
		delete(op.blocks, hash)
	}
	op.order = order

	return found
}

// count returns the number of held blocks.
func (op *orphanPool) count() int {
	return len(op.order)
}
