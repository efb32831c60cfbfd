// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyArrival    = "arrival"
	StrategyRoundRobin = "roundrobin"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyArrival:    arrivalSelect,
	StrategyRoundRobin: roundRobinSelect,
}

// AccountReader provides the account state transactions are checked against.
type AccountReader interface {
	Query(accountID database.AccountID) database.Account
}

// Func defines a function that takes the pending transactions in arrival
// order and selects howMany of them that can be applied one after the other
// to the specified account state. All selector functions MUST respect nonce
// ordering and never select transactions an account can't pay for.
type Func func(pending []database.BlockTx, howMany int, accounts AccountReader) []database.BlockTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// batch simulates the account state as transactions are chosen so a single
// account can't spend the same value twice within one block.
type batch struct {
	accounts  AccountReader
	simulated map[database.AccountID]database.Account
	chosen    []database.BlockTx
}

func newBatch(accounts AccountReader, howMany int) *batch {
	return &batch{
		accounts:  accounts,
		simulated: make(map[database.AccountID]database.Account),
		chosen:    make([]database.BlockTx, 0, howMany),
	}
}

// query returns the simulated state of the account.
func (b *batch) query(accountID database.AccountID) database.Account {
	if account, exists := b.simulated[accountID]; exists {
		return account
	}

	return b.accounts.Query(accountID)
}

// try adds the transaction to the batch if the sender can pay for it with
// the expected nonce.
func (b *batch) try(tx database.BlockTx) bool {
	from := b.query(tx.FromID)
	if tx.Nonce != from.Nonce || tx.Value > from.Balance {
		return false
	}

	from.Balance -= tx.Value
	from.Nonce++
	b.simulated[tx.FromID] = from

	to := b.query(tx.ToID)
	to.Balance += tx.Value
	b.simulated[tx.ToID] = to

	b.chosen = append(b.chosen, tx)

	return true
}

// =============================================================================

// byNonce provides sorting support by the transaction nonce value.
type byNonce []database.BlockTx

// Len returns the number of transactions in the list.
func (bn byNonce) Len() int {
	return len(bn)
}

// Less helps to sort the list by nonce in ascending order to keep the
// transactions in the right order of processing.
func (bn byNonce) Less(i, j int) bool {
	return bn[i].Nonce < bn[j].Nonce
}

// Swap moves transactions in the order of the nonce value.
func (bn byNonce) Swap(i, j int) {
	bn[i], bn[j] = bn[j], bn[i]
}
