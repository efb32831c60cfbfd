package database

import (
	"fmt"
)

// journalEntry is the value an account held before a change.
type journalEntry struct {
	account Account
	existed bool
}

// Journal records the prior values of every account a block changed so the
// block can be undone during a reorganization.
type Journal []journalEntry

// ApplyArgs are the consensus values used when applying a block.
type ApplyArgs struct {
	ChainID      uint16
	MiningReward uint64
}

// ApplyBlock replays the transactions of the block against the accounts. On
// success the accounts reflect the block and the returned journal can undo
// it. On failure the accounts are left as they were.
func (a Accounts) ApplyBlock(block Block, args ApplyArgs) (Journal, error) {
	var journal Journal
	var rewardErr error
	var rewards int

	fail := func(err error) (Journal, error) {
		a.Rollback(journal)
		return nil, err
	}

	for i, tx := range block.Transactions() {
		if tx.IsReward() {
			rewards++
			if rewardErr == nil {
				rewardErr = checkReward(block, i, rewards, tx.SignedTx, args)
			}

			journal = a.record(journal, tx.ToID)
			to := a.Query(tx.ToID)
			to.Balance += tx.Value
			a[tx.ToID] = to

			continue
		}

		var err error
		if journal, err = a.applyTransaction(journal, tx.SignedTx); err != nil {
			return fail(fmt.Errorf("tx[%s]: %w", tx.SignedTx.Hash(), err))
		}
	}

	if rewardErr != nil {
		return fail(rewardErr)
	}

	return journal, nil
}

// Rollback undoes the changes recorded in the journal.
func (a Accounts) Rollback(journal Journal) {
	for i := len(journal) - 1; i >= 0; i-- {
		entry := journal[i]
		if !entry.existed {
			delete(a, entry.account.AccountID)
			continue
		}

		a[entry.account.AccountID] = entry.account
	}
}

// =============================================================================

// applyTransaction performs the accounting for a transfer and records the
// prior account values in the journal.
func (a Accounts) applyTransaction(journal Journal, tx SignedTx) (Journal, error) {
	from := a.Query(tx.FromID)

	if tx.Nonce != from.Nonce {
		return journal, fmt.Errorf("%w: account %s, expected nonce %d, provided %d", ErrInvalidNonce, tx.FromID, from.Nonce, tx.Nonce)
	}

	if from.Balance < tx.Value {
		return journal, fmt.Errorf("%w: account %s, balance %d, needed %d", ErrInsufficientBalance, tx.FromID, from.Balance, tx.Value)
	}

	journal = a.record(journal, tx.FromID)
	from.Balance -= tx.Value
	from.Nonce++
	a[tx.FromID] = from

	journal = a.record(journal, tx.ToID)
	to := a.Query(tx.ToID)
	to.Balance += tx.Value
	a[tx.ToID] = to

	return journal, nil
}

// record adds the current value of the account to the journal.
func (a Accounts) record(journal Journal, accountID AccountID) Journal {
	account, exists := a[accountID]
	if !exists {
		account = newAccount(accountID, 0)
	}

	return append(journal, journalEntry{account: account, existed: exists})
}

// checkReward validates the reward transaction found at the specified
// position in the block.
func checkReward(block Block, pos int, count int, tx SignedTx, args ApplyArgs) error {
	switch {
	case count > 1:
		return fmt.Errorf("%w: more than one reward transaction", ErrBadReward)
	case pos != 0:
		return fmt.Errorf("%w: reward transaction must be first, found at %d", ErrBadReward, pos)
	case tx.Value != args.MiningReward:
		return fmt.Errorf("%w: reward of %d, exp %d", ErrBadReward, tx.Value, args.MiningReward)
	case tx.V != nil || tx.R != nil || tx.S != nil:
		return fmt.Errorf("%w: reward transaction carries a signature", ErrBadReward)
	case tx.ChainID != args.ChainID:
		return fmt.Errorf("%w: reward for chain %d, exp %d", ErrBadReward, tx.ChainID, args.ChainID)
	case tx.Nonce != block.Header.Number:
		return fmt.Errorf("%w: reward nonce %d, exp block number %d", ErrBadReward, tx.Nonce, block.Header.Number)
	case !tx.ToID.IsCanonical():
		return fmt.Errorf("%w: reward beneficiary %q is not a canonical account", ErrBadReward, tx.ToID)
	}

	return nil
}
