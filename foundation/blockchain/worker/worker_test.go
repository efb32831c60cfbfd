package worker_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/memory"
	"github.com/zimcoin/ledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Mining(t *testing.T) {
	t.Log("Given the need to mine blocks in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a node mines empty blocks.", testID)
		{
			pk, err := crypto.HexToECDSA("8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the private key: %v", failed, testID, err)
			}
			beneficiary := database.PublicKeyToAccountID(pk.PublicKey)

			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create storage: %v", failed, testID, err)
			}

			gen := genesis.Default()
			gen.Difficulty = 4

			st, err := state.New(state.Config{
				BeneficiaryID:   beneficiary,
				Host:            "localhost:9080",
				Storage:         strg,
				Genesis:         gen,
				MineEmptyBlocks: true,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create the state: %v", failed, testID, err)
			}

			worker.Run(st, worker.Config{})

			deadline := time.Now().Add(10 * time.Second)
			for st.CanonicalTip().Header.Number < 3 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould shutdown cleanly: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould shutdown cleanly.", success, testID)

			tip := st.CanonicalTip().Header.Number
			if tip < 3 {
				t.Fatalf("\t%s\tTest %d:\tShould have mined at least 3 blocks, got %d.", failed, testID, tip)
			}
			t.Logf("\t%s\tTest %d:\tShould have mined at least 3 blocks.", success, testID)

			if got := st.QueryAccount(beneficiary).Balance; got != tip*gen.MiningReward {
				t.Fatalf("\t%s\tTest %d:\tShould hold the rewards for every block, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold the rewards for every block.", success, testID)
		}
	}
}

func Test_CancelOnNewTip(t *testing.T) {
	t.Log("Given the need to stop mining on a stale tip.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer block moves the tip while mining.", testID)
		{
			gen := genesis.Default()
			gen.Difficulty = 4

			newState := func(beneficiary database.AccountID, ev state.EventHandler) *state.State {
				strg, err := memory.New()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to create storage: %v", failed, testID, err)
				}

				st, err := state.New(state.Config{
					BeneficiaryID:   beneficiary,
					Host:            "localhost:9080",
					Storage:         strg,
					Genesis:         gen,
					MineEmptyBlocks: true,
					EvHandler:       ev,
				})
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to create the state: %v", failed, testID, err)
				}

				return st
			}

			pk, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			peer := newState(database.PublicKeyToAccountID(pk.PublicKey), nil)

			peerBlock, err := peer.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine the peer block: %v", failed, testID, err)
			}

			// The first proof of work waits until the peer block has been
			// processed and the cancel request has reached the miner.
			mining := make(chan struct{})
			cancelled := make(chan struct{})
			release := make(chan struct{})
			var miningOnce, cancelOnce, releaseOnce sync.Once
			defer releaseOnce.Do(func() { close(release) })

			ev := func(v string, args ...any) {
				switch {
				case strings.Contains(v, "MineNewBlock: MINING: perform POW"):
					miningOnce.Do(func() {
						close(mining)
						<-release
					})
				case strings.Contains(v, "runMiningOperation: MINING: CANCEL: requested"):
					cancelOnce.Do(func() { close(cancelled) })
				}
			}

			pk, err = crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			beneficiary := database.PublicKeyToAccountID(pk.PublicKey)
			st := newState(beneficiary, ev)

			worker.Run(st, worker.Config{EvHandler: ev})

			wait := func(ch chan struct{}, what string) {
				select {
				case <-ch:
					t.Logf("\t%s\tTest %d:\tShould %s.", success, testID, what)
				case <-time.After(10 * time.Second):
					t.Fatalf("\t%s\tTest %d:\tShould %s.", failed, testID, what)
				}
			}

			wait(mining, "start mining on genesis")

			if _, err := st.ProcessProposedBlock(peerBlock); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the peer block: %v", failed, testID, err)
			}

			wait(cancelled, "cancel the mining operation")
			releaseOnce.Do(func() { close(release) })

			deadline := time.Now().Add(10 * time.Second)
			for st.CanonicalTip().Header.Number < 2 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould shutdown cleanly: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould shutdown cleanly.", success, testID)

			blocks := st.QueryBlocksByNumber(1, 2)
			if len(blocks) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have mined on top of the peer block, got %d blocks.", failed, testID, len(blocks))
			}

			if blocks[0].Hash() != peerBlock.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould keep the peer block as block 1.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the peer block as block 1.", success, testID)

			if blocks[1].Header.PrevBlockHash != peerBlock.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould restart mining on the new tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould restart mining on the new tip.", success, testID)

			if got := st.QueryAccount(beneficiary).Balance; got == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould hold the reward for the restarted block.", failed, testID)
			}
		}
	}
}
