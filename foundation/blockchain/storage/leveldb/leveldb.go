// Package leveldb implements the ability to read and write blocks to a
// LevelDB key/value store keyed by block number.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
)

// blockPrefix is the key prefix for every stored block.
var blockPrefix = []byte("blk:")

// LevelDB represents the serialization implementation for reading and
// storing blocks in LevelDB. This implements the database.Serializer
// interface.
type LevelDB struct {
	db *leveldb.DB
}

// New opens or creates the LevelDB database at the specified path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database files.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Write stores the block under its number replacing any prior value.
func (l *LevelDB) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return l.db.Put(blockKey(blockData.Header.Number), data, nil)
}

// GetBlock locates and returns the specified block by number.
func (l *LevelDB) GetBlock(num uint64) (database.BlockData, error) {
	data, err := l.db.Get(blockKey(num), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, fmt.Errorf("%w: %d", database.ErrNotFound, num)
		}
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelDBIterator{storage: l}
}

// Truncate deletes every block with a number greater than the specified
// number in a single batch.
func (l *LevelDB) Truncate(num uint64) error {
	rng := util.BytesPrefix(blockPrefix)
	if num < ^uint64(0) {
		rng.Start = blockKey(num + 1)
	}

	iter := l.db.NewIterator(rng, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}

	if err := iter.Error(); err != nil {
		return err
	}

	return l.db.Write(batch, nil)
}

// Reset will clear out every stored block.
func (l *LevelDB) Reset() error {
	return l.Truncate(0)
}

// blockKey builds the key for a block number. Big endian keeps the keys in
// block order.
func blockKey(num uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], num)

	return key
}

// =============================================================================

// levelDBIterator represents the iteration implementation for walking
// through and reading blocks. This implements the database Iterator
// interface.
type levelDBIterator struct {
	storage *LevelDB // Access to the leveldb storage API.
	current uint64   // Current block number being iterated over.
	eoc     bool     // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the database.
func (li *levelDBIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	li.current++
	blockData, err := li.storage.GetBlock(li.current)
	if errors.Is(err, database.ErrNotFound) {
		li.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (li *levelDBIterator) Done() bool {
	return li.eoc
}
