// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory database of account
// information for the canonical chain.
package database

import (
	"errors"
	"sync"

	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
)

// ErrNotFound is returned by a serializer when a block number is not stored.
var ErrNotFound = errors.New("block not found")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Truncate(num uint64) error
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the stored blocks converting them into blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages data related to accounts who have transacted on the
// canonical chain and the storage of the canonical blocks.
type Database struct {
	mu sync.RWMutex

	genesis  genesis.Genesis
	accounts Accounts

	serializer Serializer
}

// New constructs a new database and applies account genesis information.
// The blocks in storage are not applied here, the chain replays them so
// they are validated first.
func New(gen genesis.Genesis, serializer Serializer) (*Database, error) {
	accounts, err := GenesisAccounts(gen)
	if err != nil {
		return nil, err
	}

	db := Database{
		genesis:    gen,
		accounts:   accounts,
		serializer: serializer,
	}

	return &db, nil
}

// GenesisAccounts returns the account state before any block is mined.
func GenesisAccounts(gen genesis.Genesis) (Accounts, error) {
	accounts := make(Accounts)
	for accountStr, balance := range gen.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return nil, err
		}

		accounts[accountID] = newAccount(accountID, balance)
	}

	return accounts, nil
}

// Close closes the open blocks database.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	if err := db.serializer.Reset(); err != nil {
		return err
	}

	accounts, err := GenesisAccounts(db.genesis)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.accounts = accounts

	return nil
}

// Query returns the account for the specified id.
func (db *Database) Query(accountID AccountID) Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts.Query(accountID)
}

// CopyAccounts makes a copy of the current accounts in the database.
func (db *Database) CopyAccounts() Accounts {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts.Clone()
}

// ApplyBlock applies the block to the canonical accounts and returns the
// journal that undoes it.
func (db *Database) ApplyBlock(block Block, args ApplyArgs) (Journal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.accounts.ApplyBlock(block, args)
}

// Rollback undoes a block previously applied to the canonical accounts.
func (db *Database) Rollback(journal Journal) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.accounts.Rollback(journal)
}

// Write adds a new block to storage, replacing any block with the same
// number.
func (db *Database) Write(block Block) error {
	return db.serializer.Write(NewBlockData(block))
}

// Truncate removes every stored block with a number greater than the
// specified number.
func (db *Database) Truncate(num uint64) error {
	return db.serializer.Truncate(num)
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.serializer.ForEach()}
}

// GetBlock searches the blockchain in storage to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.serializer.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}
