package state

import (
	"context"
	"errors"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The block holds the reward and whatever
// transactions from the mempool can be applied to the canonical tip. A
// reward only block is mined when the node is configured to mine empty
// blocks.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: select transactions")

	// Pick the transactions the accounts at the tip can pay for while the
	// tip can't move underneath the selection.
	s.mu.RLock()
	tip := s.tip()
	difficulty := s.difficultyAfter(tip)
	halted := s.halted
	var trans []database.BlockTx
	if halted == nil {
		trans = s.mempool.SelectBatch(int(s.genesis.TransPerBlock), s.db)
	}
	s.mu.RUnlock()

	if halted != nil {
		return database.Block{}, halted
	}

	if len(trans) == 0 && !s.mineEmpty {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: difficulty[%d]: trans[%d]", difficulty, len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		ChainID:       s.genesis.ChainID,
		BeneficiaryID: s.beneficiaryID,
		MiningReward:  s.genesis.MiningReward,
		Difficulty:    difficulty,
		PrevBlock:     tip.block,
		Trans:         trans,
		EvHandler:     s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// Validate the block and then update the blockchain database.
	if _, err := s.acceptBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) (Status, error) {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Transactions()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	s.mu.RLock()
	before := s.tip()
	s.mu.RUnlock()

	status, err := s.acceptBlock(block)
	if err != nil {
		return status, err
	}

	// If the tip moved, any mining operation in flight is building on a
	// stale parent. The G executing the mining operation will not return
	// until done is called, then mining starts again on the new tip.
	if s.CanonicalTip().Hash() != before.hash {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
			done()
			s.Worker.SignalStartMining()
		}()
	}

	return status, nil
}

// =============================================================================

// acceptBlock adds the block to the fork tree and retries any orphans the
// block was the missing parent for.
func (s *State) acceptBlock(block database.Block) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.addBlock(block, true)
	if err != nil {
		return status, err
	}

	s.processOrphans(block.Hash())

	return status, nil
}
