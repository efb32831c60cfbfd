package leveldb_test

import (
	"errors"
	"testing"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/leveldb"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Serializer(t *testing.T) {
	t.Log("Given the need to store and read back blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen writing a chain of blocks.", testID)
		{
			strg, err := leveldb.New(t.TempDir())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}
			defer strg.Close()

			for num := uint64(1); num <= 5; num++ {
				if err := strg.Write(blockData(num, 0)); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write block %d: %v", failed, testID, num, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write blocks.", success, testID)

			if got := count(t, strg); got != 5 {
				t.Fatalf("\t%s\tTest %d:\tShould iterate over 5 blocks, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould iterate over 5 blocks.", success, testID)

			if err := strg.Write(blockData(3, 99)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to replace block 3: %v", failed, testID, err)
			}

			got, err := strg.GetBlock(3)
			if err != nil || got.Header.Nonce != 99 {
				t.Fatalf("\t%s\tTest %d:\tShould read back the replaced block: %v %+v", failed, testID, err, got.Header)
			}
			t.Logf("\t%s\tTest %d:\tShould read back the replaced block.", success, testID)

			if err := strg.Truncate(3); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate: %v", failed, testID, err)
			}

			if got := count(t, strg); got != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould iterate over 3 blocks after truncate, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould iterate over 3 blocks after truncate.", success, testID)

			if _, err := strg.GetBlock(4); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould not find a truncated block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not find a truncated block.", success, testID)

			if err := strg.Reset(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reset: %v", failed, testID, err)
			}

			if got := count(t, strg); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have no blocks after reset, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould have no blocks after reset.", success, testID)
		}
	}
}

// =============================================================================

func blockData(num uint64, nonce uint64) database.BlockData {
	return database.BlockData{
		Header: database.BlockHeader{
			Number: num,
			Nonce:  nonce,
		},
	}
}

func count(t *testing.T, strg database.Serializer) int {
	var n int

	iter := strg.ForEach()
	for _, err := iter.Next(); !iter.Done(); _, err = iter.Next() {
		if err != nil {
			t.Fatalf("Should be able to iterate: %v", err)
		}
		n++
	}

	return n
}
