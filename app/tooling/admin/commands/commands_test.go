package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/zimcoin/ledger/app/tooling/admin/commands"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const beneficiary = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"

func Test_Commands(t *testing.T) {
	t.Log("Given the need to inspect the stored chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain holds two blocks.", testID)
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create storage: %v", failed, testID, err)
			}

			gen := genesis.Default()
			gen.Difficulty = 4

			st, err := state.New(state.Config{
				BeneficiaryID:   beneficiary,
				Storage:         strg,
				Genesis:         gen,
				MineEmptyBlocks: true,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create the state: %v", failed, testID, err)
			}

			for i := 0; i < 2; i++ {
				if _, err := st.MineNewBlock(context.Background()); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %v", failed, testID, err)
				}
			}

			var bals bytes.Buffer
			if err := commands.Balances(&bals, beneficiary, st); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould list the balances: %v", failed, testID, err)
			}
			if !strings.Contains(bals.String(), "Balance: 100  Nonce: 0") {
				t.Fatalf("\t%s\tTest %d:\tShould show both rewards:\n%s", failed, testID, bals.String())
			}
			t.Logf("\t%s\tTest %d:\tShould show both rewards.", success, testID)

			var blocks bytes.Buffer
			if err := commands.Blocks(&blocks, "", st); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould list the blocks: %v", failed, testID, err)
			}
			if n := strings.Count(blocks.String(), "Block: "); n != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould list 2 blocks, got %d:\n%s", failed, testID, n, blocks.String())
			}
			t.Logf("\t%s\tTest %d:\tShould list 2 blocks.", success, testID)
		}
	}
}
