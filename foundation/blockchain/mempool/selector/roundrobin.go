package selector

import (
	"sort"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// roundRobinSelect gives every account a fair share of the block. Accounts
// take turns in the order their first transaction arrived, one transaction
// per turn in nonce order.
var roundRobinSelect = func(pending []database.BlockTx, howMany int, accounts AccountReader) []database.BlockTx {

	/*
		Bill: {Nonce: 1, To: "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"},
			  {Nonce: 0, To: "0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9"},
		Pavl: {Nonce: 0, To: "0xa988b1866EaBF72B4c53b592c97aAD8e4b9bDCC0"},
	*/

	// Group the transactions by account keeping the order the accounts
	// were first seen.
	var order []database.AccountID
	m := make(map[database.AccountID][]database.BlockTx)
	for _, tx := range pending {
		if _, exists := m[tx.FromID]; !exists {
			order = append(order, tx.FromID)
		}
		m[tx.FromID] = append(m[tx.FromID], tx)
	}

	// Sort the transactions per account by nonce.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Stable(byNonce(m[key]))
		}
	}

	/*
		0: Bill: {Nonce: 0, To: "0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9"},
		0: Pavl: {Nonce: 0, To: "0xa988b1866EaBF72B4c53b592c97aAD8e4b9bDCC0"},
		1: Bill: {Nonce: 1, To: "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"},
	*/

	// Each turn an account offers the lowest nonce it has left. A
	// transaction that can't be applied yet stays at the front of the line
	// since the account may be paid later in the block.
	b := newBatch(accounts, howMany)
	for len(b.chosen) < howMany {
		var progress bool
		for _, accountID := range order {
			if len(b.chosen) == howMany {
				break
			}

			list := m[accountID]
			for len(list) > 0 {
				tx := list[0]

				if b.try(tx) {
					list = list[1:]
					progress = true
					break
				}

				// A stale nonce can never be applied.
				if tx.Nonce < b.query(accountID).Nonce {
					list = list[1:]
					continue
				}

				break
			}
			m[accountID] = list
		}

		if !progress {
			break
		}
	}

	return b.chosen
}
