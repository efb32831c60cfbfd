// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
)

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

// Balances writes the canonical balances. An account narrows the output to
// that one account.
func Balances(w io.Writer, account string, st *state.State) error {
	tip := st.CanonicalTip()
	fmt.Fprintf(w, "Tip: %d  Hash: %s  Work: %s\n\n", tip.Header.Number, tip.Hash(), st.CanonicalWork())

	accounts := st.RetrieveAccounts().Sorted()

	if account != "" {
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return err
		}
		accounts = []database.Account{st.QueryAccount(accountID)}
	}

	for _, act := range accounts {
		fmt.Fprintf(w, "Account: %s  Balance: %d  Nonce: %d\n", act.AccountID, act.Balance, act.Nonce)
	}

	return nil
}
