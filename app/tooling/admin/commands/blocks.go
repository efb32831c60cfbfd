package commands

import (
	"fmt"
	"io"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
)

// Blocks writes the canonical blocks and their transactions. An account
// narrows the output to the blocks that touch it.
func Blocks(w io.Writer, account string, st *state.State) error {
	var accountID database.AccountID
	if account != "" {
		var err error
		if accountID, err = database.ToAccountID(account); err != nil {
			return err
		}
	}

	for _, block := range st.QueryBlocksByAccount(accountID) {
		fmt.Fprintf(w, "Block: %d  Hash: %s  Prev: %s  Difficulty: %d  Nonce: %d\n",
			block.Header.Number, block.Hash(), block.Header.PrevBlockHash, block.Header.Difficulty, block.Header.Nonce)

		for _, tx := range block.Transactions() {
			fmt.Fprintf(w, "    %s  To: %s  Value: %d\n", tx.SignedTx, tx.ToID, tx.Value)
		}
	}

	return nil
}
