package selector

import (
	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// arrivalSelect walks the transactions in the order they arrived and takes
// every one that can be applied. A transaction skipped because its nonce
// wasn't reached yet gets another chance on the next pass, passes continue
// until nothing more fits.
var arrivalSelect = func(pending []database.BlockTx, howMany int, accounts AccountReader) []database.BlockTx {
	b := newBatch(accounts, howMany)
	taken := make([]bool, len(pending))

	for progress := true; progress && len(b.chosen) < howMany; {
		progress = false

		for i, tx := range pending {
			if len(b.chosen) == howMany {
				break
			}

			if taken[i] || !b.try(tx) {
				continue
			}

			taken[i] = true
			progress = true
		}
	}

	return b.chosen
}
