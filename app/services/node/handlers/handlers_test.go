package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zimcoin/ledger/app/services/node/handlers"
	"github.com/zimcoin/ledger/business/web/errs"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/peer"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/memory"
	"github.com/zimcoin/ledger/foundation/events"
	"github.com/zimcoin/ledger/foundation/nameservice"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyKennedy = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyMiner   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	accountTo  = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
)

func Test_Sync(t *testing.T) {
	t.Log("Given the need to sync nodes over the private api.")
	{
		nodeA := newState(t)
		for i := 0; i < 3; i++ {
			mine(t, nodeA)
		}

		server := httptest.NewServer(handlers.PrivateMux(handlers.MuxConfig{
			Shutdown: make(chan os.Signal, 1),
			Log:      zap.NewNop().Sugar(),
			State:    nodeA,
		}))
		defer server.Close()

		pr := peer.New(strings.TrimPrefix(server.URL, "http://"))

		testID := 0
		t.Logf("\tTest %d:\tWhen a node on a lighter branch syncs.", testID)
		{
			nodeB := newState(t)
			mine(t, nodeB)

			status, err := nodeB.NetRequestPeerStatus(pr)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould get the peer status: %v", failed, testID, err)
			}
			if status.LatestBlockNumber != 3 || status.CumulativeWork != nodeA.CanonicalWork() {
				t.Fatalf("\t%s\tTest %d:\tShould report the tip and work: %+v", failed, testID, status)
			}
			t.Logf("\t%s\tTest %d:\tShould report the tip and work.", success, testID)

			if err := nodeB.NetRequestPeerBlocks(pr); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould sync the blocks: %v", failed, testID, err)
			}

			if nodeB.CanonicalTip().Hash() != nodeA.CanonicalTip().Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould move to the heavier chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould move to the heavier chain.", success, testID)

			testID++
			t.Logf("\tTest %d:\tWhen the synced node mines and shares.", testID)
			{
				nodeB.AddKnownPeer(pr)

				block := mine(t, nodeB)
				if err := nodeB.NetSendBlockToPeers(block); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould propose the block: %v", failed, testID, err)
				}

				if nodeA.CanonicalTip().Hash() != block.Hash() {
					t.Fatalf("\t%s\tTest %d:\tShould extend the peer's chain.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould extend the peer's chain.", success, testID)

				tx := transfer(t, 0, 10)
				nodeB.NetSendTxToPeers(database.NewBlockTx(tx))

				pool, err := nodeB.NetRequestPeerMempool(pr)
				if err != nil || len(pool) != 1 || pool[0].SignedTx.Hash() != tx.Hash() {
					t.Fatalf("\t%s\tTest %d:\tShould share the transaction: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould share the transaction.", success, testID)
			}
		}

		testID++
		t.Logf("\tTest %d:\tWhen asking for an unknown block.", testID)
		{
			resp, err := http.Get(pr.URL("block/since/%s", "0x1111111111111111111111111111111111111111111111111111111111111111"))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to make the request: %v", failed, testID, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 404, got %d.", failed, testID, resp.StatusCode)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 404.", success, testID)
		}
	}
}

func Test_Public(t *testing.T) {
	t.Log("Given the need to serve wallets over the public api.")
	{
		st := newState(t)

		ns, err := nameservice.New("../../../../zblock/accounts")
		if err != nil {
			t.Fatalf("Should be able to load the name service: %v", err)
		}

		mux := handlers.PublicMux(handlers.MuxConfig{
			Shutdown: make(chan os.Signal, 1),
			Log:      zap.NewNop().Sugar(),
			State:    st,
			NS:       ns,
			Evts:     events.New(),
		})

		testID := 0
		t.Logf("\tTest %d:\tWhen submitting a signed transaction.", testID)
		{
			data, err := json.Marshal(transfer(t, 0, 10))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to marshal the transaction: %v", failed, testID, err)
			}

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(string(data))))

			if w.Code != http.StatusOK || st.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)

			w = httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(string(data))))

			if w.Code != http.StatusConflict {
				t.Fatalf("\t%s\tTest %d:\tShould reject the duplicate with a 409, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the duplicate with a 409.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting a transaction to a lower case account.", testID)
		{
			body := strings.Replace(mustJSON(t, transfer(t, 1, 10)), string(accountTo), strings.ToLower(string(accountTo)), 1)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(body)))

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the error response: %v", failed, testID, err)
			}

			if _, exists := resp.Fields["to"]; w.Code != http.StatusBadRequest || !exists {
				t.Fatalf("\t%s\tTest %d:\tShould flag the to field: %d: %+v", failed, testID, w.Code, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould flag the to field.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen listing the accounts.", testID)
		{
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/accounts/list", nil))

			var resp struct {
				Uncommitted int `json:"uncommitted"`
				Accounts    []struct {
					Name    string `json:"name"`
					Balance uint64 `json:"balance"`
				} `json:"accounts"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould decode the response: %v", failed, testID, err)
			}

			if len(resp.Accounts) != 1 || resp.Accounts[0].Name != "kennedy" || resp.Accounts[0].Balance != 1000 || resp.Uncommitted != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould list the genesis account by name: %+v", failed, testID, resp)
			}
			t.Logf("\t%s\tTest %d:\tShould list the genesis account by name.", success, testID)
		}
	}
}

// =============================================================================

func newState(t *testing.T) *state.State {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to create storage: %v", err)
	}

	pk, err := crypto.HexToECDSA(keyMiner)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	st, err := state.New(state.Config{
		BeneficiaryID:   database.PublicKeyToAccountID(pk.PublicKey),
		Host:            "localhost:9080",
		Storage:         strg,
		Genesis:         testGenesis(t),
		MineEmptyBlocks: true,
	})
	if err != nil {
		t.Fatalf("Should be able to create the state: %v", err)
	}

	return st
}

func testGenesis(t *testing.T) genesis.Genesis {
	pk, err := crypto.HexToECDSA(keyKennedy)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	gen := genesis.Default()
	gen.Difficulty = 4
	gen.Balances = map[string]uint64{
		string(database.PublicKeyToAccountID(pk.PublicKey)): 1000,
	}

	return gen
}

func mine(t *testing.T, st *state.State) database.Block {
	block, err := st.MineNewBlock(context.Background())
	if err != nil {
		t.Fatalf("Should be able to mine a block: %v", err)
	}

	return block
}

func transfer(t *testing.T, nonce uint64, value uint64) database.SignedTx {
	pk, err := crypto.HexToECDSA(keyKennedy)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	tx, err := database.NewTx(testGenesis(t).ChainID, nonce, database.PublicKeyToAccountID(pk.PublicKey), accountTo, value)
	if err != nil {
		t.Fatalf("Should be able to construct the transaction: %v", err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	return signedTx
}

func mustJSON(t *testing.T, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Should be able to marshal: %v", err)
	}

	return string(data)
}
