package state

import (
	"time"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion.
// The transaction is shared with the known peers.
func (s *State) UpsertWalletTransaction(signedTx database.SignedTx) error {
	if err := s.mempool.Add(signedTx); err != nil {
		return err
	}

	s.Worker.SignalShareTx(database.NewBlockTx(signedTx))
	s.Worker.SignalStartMining()

	return nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion.
func (s *State) UpsertNodeTransaction(tx database.BlockTx) error {
	if err := s.mempool.Add(tx.SignedTx); err != nil {
		return err
	}

	s.Worker.SignalStartMining()

	return nil
}

// ExpireMempool drops the pending transactions that have been waiting
// longer than maxAge. It returns the number of transactions dropped.
func (s *State) ExpireMempool(maxAge time.Duration) int {
	return s.mempool.Expire(time.Now().Add(-maxAge))
}
