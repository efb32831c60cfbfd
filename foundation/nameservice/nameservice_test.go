package nameservice_test

import (
	"testing"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Lookup(t *testing.T) {
	t.Log("Given the need to name the accounts in the accounts folder.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen loading the zblock accounts.", testID)
		{
			ns, err := nameservice.New("../../zblock/accounts")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the accounts: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the accounts.", success, testID)

			const kennedy = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
			if name := ns.Lookup(kennedy); name != "kennedy" {
				t.Fatalf("\t%s\tTest %d:\tShould find the name kennedy, got %q.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould find the name kennedy.", success, testID)

			const unknown = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
			if name := ns.Lookup(unknown); name != string(unknown) {
				t.Fatalf("\t%s\tTest %d:\tShould return the account for an unknown name, got %q.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould return the account for an unknown name.", success, testID)

			if len(ns.Copy()) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould hold two accounts, got %d.", failed, testID, len(ns.Copy()))
			}
		}
	}
}
