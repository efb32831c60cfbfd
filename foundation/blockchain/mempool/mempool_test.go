package mempool_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/mempool"
	"github.com/zimcoin/ledger/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	keyKennedy = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyBill    = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	to         = database.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

func sign(t *testing.T, hexKey string, nonce uint64, value uint64) database.SignedTx {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	tx := database.Tx{
		ChainID: 1,
		Nonce:   nonce,
		FromID:  database.PublicKeyToAccountID(pk.PublicKey),
		ToID:    to,
		Value:   value,
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	return signedTx
}

func accountOf(t *testing.T, hexKey string) database.AccountID {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	return database.PublicKeyToAccountID(pk.PublicKey)
}

// =============================================================================

func TestCRUD(t *testing.T) {
	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen adding transactions.", testID)
		{
			mp, err := mempool.New(1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create mempool: %v", failed, testID, err)
			}

			tx := sign(t, keyKennedy, 0, 10)
			if err := mp.Add(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to add a transaction.", success, testID)

			if err := mp.Add(tx); !errors.Is(err, database.ErrDuplicateTransaction) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a duplicate transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a duplicate transaction.", success, testID)

			bad := sign(t, keyKennedy, 1, 10)
			bad.Value = 1_000_000
			if err := mp.Add(bad); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a bad signature: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a bad signature.", success, testID)

			reward := database.NewRewardTx(1, 1, to, 50)
			if err := mp.Add(reward); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a reward transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a reward transaction.", success, testID)

			if mp.Count() != 1 || !mp.Contains(tx.Hash()) {
				t.Fatalf("\t%s\tTest %d:\tShould have a single transaction, got %d.", failed, testID, mp.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould have a single transaction.", success, testID)

			if n := mp.Remove(tx.Hash(), "0x00"); n != 1 || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to remove the transaction, removed %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to remove the transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain consumes a nonce.", testID)
		{
			mp, err := mempool.New(1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create mempool: %v", failed, testID, err)
			}

			stale := sign(t, keyKennedy, 0, 10)
			fresh := sign(t, keyKennedy, 1, 10)
			other := sign(t, keyBill, 0, 10)
			for _, tx := range []database.SignedTx{stale, fresh, other} {
				if err := mp.Add(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
				}
			}

			kennedy := accountOf(t, keyKennedy)
			accounts := database.Accounts{
				kennedy: {AccountID: kennedy, Nonce: 1, Balance: 100},
			}

			if n := mp.Prune(accounts); n != 1 || mp.Contains(stale.Hash()) || !mp.Contains(fresh.Hash()) || !mp.Contains(other.Hash()) {
				t.Fatalf("\t%s\tTest %d:\tShould prune only the stale nonce, pruned %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould prune only the stale nonce.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen restoring and expiring transactions.", testID)
		{
			mp, err := mempool.New(1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create mempool: %v", failed, testID, err)
			}

			txs := []database.BlockTx{
				database.NewBlockTx(database.NewRewardTx(1, 2, to, 50)),
				database.NewBlockTx(sign(t, keyKennedy, 0, 10)),
				database.NewBlockTx(sign(t, keyKennedy, 1, 10)),
			}

			if n := mp.Restore(txs); n != 2 || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould restore only the transfers, restored %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould restore only the transfers.", success, testID)

			if n := mp.Restore(txs); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not restore a transaction twice, restored %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould not restore a transaction twice.", success, testID)

			if n := mp.Expire(time.Now().Add(-time.Hour)); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not expire new transactions, expired %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould not expire new transactions.", success, testID)

			if n := mp.Expire(time.Now().Add(time.Hour)); n != 2 || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould expire old transactions, expired %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould expire old transactions.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the pool is at capacity.", testID)
		{
			mp, err := mempool.NewWithStrategy(1, selector.StrategyArrival, 2)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to create mempool: %v", failed, testID, err)
			}

			tx0 := sign(t, keyKennedy, 0, 10)
			tx1 := sign(t, keyKennedy, 1, 10)
			tx2 := sign(t, keyKennedy, 2, 10)
			for _, tx := range []database.SignedTx{tx0, tx1, tx2} {
				if err := mp.Add(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
				}
			}

			if mp.Count() != 2 || mp.Contains(tx0.Hash()) {
				t.Fatalf("\t%s\tTest %d:\tShould evict the oldest transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould evict the oldest transaction.", success, testID)

			copied := mp.Copy()
			if len(copied) != 2 || copied[0].Nonce != 1 || copied[1].Nonce != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould copy in arrival order: %v", failed, testID, copied)
			}
			t.Logf("\t%s\tTest %d:\tShould copy in arrival order.", success, testID)
		}
	}
}

func TestSelectBatch(t *testing.T) {
	kennedy := accountOf(t, keyKennedy)
	bill := accountOf(t, keyBill)

	type table struct {
		name     string
		strategy string
		balances database.Accounts
		txs      func(t *testing.T) []database.SignedTx
		howMany  int
		exp      []string
	}

	tt := []table{
		{
			name:     "double-spend-in-batch",
			strategy: selector.StrategyArrival,
			balances: database.Accounts{kennedy: {AccountID: kennedy, Balance: 100}},
			txs: func(t *testing.T) []database.SignedTx {
				return []database.SignedTx{sign(t, keyKennedy, 0, 60), sign(t, keyKennedy, 1, 60)}
			},
			howMany: 10,
			exp:     []string{"k0"},
		},
		{
			name:     "out-of-order-nonce",
			strategy: selector.StrategyArrival,
			balances: database.Accounts{kennedy: {AccountID: kennedy, Balance: 100}},
			txs: func(t *testing.T) []database.SignedTx {
				return []database.SignedTx{sign(t, keyKennedy, 1, 10), sign(t, keyKennedy, 0, 10), sign(t, keyKennedy, 3, 10)}
			},
			howMany: 10,
			exp:     []string{"k0", "k1"},
		},
		{
			name:     "max-count",
			strategy: selector.StrategyArrival,
			balances: database.Accounts{kennedy: {AccountID: kennedy, Balance: 100}, bill: {AccountID: bill, Balance: 100}},
			txs: func(t *testing.T) []database.SignedTx {
				return []database.SignedTx{sign(t, keyKennedy, 0, 10), sign(t, keyKennedy, 1, 10), sign(t, keyBill, 0, 10)}
			},
			howMany: 2,
			exp:     []string{"k0", "k1"},
		},
		{
			name:     "round-robin",
			strategy: selector.StrategyRoundRobin,
			balances: database.Accounts{kennedy: {AccountID: kennedy, Balance: 100}, bill: {AccountID: bill, Balance: 100}},
			txs: func(t *testing.T) []database.SignedTx {
				return []database.SignedTx{sign(t, keyKennedy, 0, 10), sign(t, keyKennedy, 1, 10), sign(t, keyBill, 0, 10)}
			},
			howMany: 2,
			exp:     []string{"k0", "b0"},
		},
		{
			name:     "round-robin-balance",
			strategy: selector.StrategyRoundRobin,
			balances: database.Accounts{kennedy: {AccountID: kennedy, Balance: 100}, bill: {AccountID: bill, Balance: 5}},
			txs: func(t *testing.T) []database.SignedTx {
				return []database.SignedTx{sign(t, keyBill, 0, 10), sign(t, keyKennedy, 0, 10), sign(t, keyKennedy, 1, 10)}
			},
			howMany: 10,
			exp:     []string{"k0", "k1"},
		},
	}

	label := func(tx database.BlockTx) string {
		p := "k"
		if tx.FromID == bill {
			p = "b"
		}
		return p + string(rune('0'+tx.Nonce))
	}

	t.Log("Given the need to select a batch of transactions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					mp, err := mempool.NewWithStrategy(1, tst.strategy, 0)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to create mempool: %v", failed, testID, err)
					}

					for _, tx := range tst.txs(t) {
						if err := mp.Add(tx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add a transaction: %v", failed, testID, err)
						}
					}

					batch := mp.SelectBatch(tst.howMany, tst.balances)

					var got []string
					for _, tx := range batch {
						got = append(got, label(tx))
					}

					if len(got) != len(tst.exp) {
						t.Fatalf("\t%s\tTest %d:\tShould select %v, got %v.", failed, testID, tst.exp, got)
					}
					for i := range got {
						if got[i] != tst.exp[i] {
							t.Fatalf("\t%s\tTest %d:\tShould select %v, got %v.", failed, testID, tst.exp, got)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould select %v.", success, testID, tst.exp)

					if mp.Count() != len(tst.txs(t)) {
						t.Fatalf("\t%s\tTest %d:\tShould not remove selected transactions.", failed, testID)
					}
				}
			}

			t.Run(tst.name, f)
		}
	}
}
