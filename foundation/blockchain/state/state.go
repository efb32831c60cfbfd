// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/mempool"
	"github.com/zimcoin/ledger/foundation/blockchain/mempool/selector"
	"github.com/zimcoin/ledger/foundation/blockchain/peer"
)

// ErrChainHalted is returned for every block proposed after the chain failed
// to reorganize. The canonical state can't be trusted from that point.
var ErrChainHalted = errors.New("chain halted")

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(blockTx database.BlockTx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	BeneficiaryID   database.AccountID
	Host            string
	Storage         database.Serializer
	Genesis         genesis.Genesis
	SelectStrategy  string
	MempoolCapacity int
	MineEmptyBlocks bool
	KnownPeers      *peer.PeerSet
	EvHandler       EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	beneficiaryID database.AccountID
	host          string
	mineEmpty     bool
	evHandler     EventHandler

	knownPeers *peer.PeerSet
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database

	nodes     map[string]*node
	canonical []*node
	orphans   *orphanPool
	halted    error

	Worker Worker
}

// New constructs a new blockchain for data management. The blocks found in
// storage are validated and applied on top of the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	if cfg.SelectStrategy == "" {
		cfg.SelectStrategy = selector.StrategyArrival
	}

	if cfg.KnownPeers == nil {
		cfg.KnownPeers = peer.NewPeerSet()
	}

	// Access the storage for the blockchain.
	db, err := database.New(cfg.Genesis, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified select strategy.
	mp, err := mempool.NewWithStrategy(cfg.Genesis.ChainID, cfg.SelectStrategy, cfg.MempoolCapacity)
	if err != nil {
		return nil, err
	}

	// The genesis block is the root of every branch and is never validated.
	genesisBlock := database.GenesisBlock(cfg.Genesis)
	root := &node{
		block:     genesisBlock,
		hash:      genesisBlock.Hash(),
		work:      new(big.Int),
		canonical: true,
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		host:          cfg.Host,
		mineEmpty:     cfg.MineEmptyBlocks,
		evHandler:     ev,

		knownPeers: cfg.KnownPeers,
		genesis:    cfg.Genesis,
		mempool:    mp,
		db:         db,

		nodes:     map[string]*node{root.hash: root},
		canonical: []*node{root},
		orphans:   newOrphanPool(maxOrphans),

		Worker: nopWorker{},
	}

	// Replay the blocks from storage. Every block has to extend the chain
	// that came before it.
	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		status, err := state.addBlock(block, false)
		if err != nil {
			return nil, fmt.Errorf("loading block %d: %w", block.Header.Number, err)
		}

		if status != StatusCanonical {
			return nil, fmt.Errorf("loading block %d: stored block is not canonical: %s", block.Header.Number, status)
		}
	}

	ev("state: New: loaded: tip[%d]: hash[%s]", state.tip().block.Header.Number, state.tip().hash)

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	// Make sure the database is properly closed.
	return s.db.Close()
}

// Halted returns the error that halted the chain or nil.
func (s *State) Halted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.halted
}

// =============================================================================

// nopWorker is used until a worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()                          {}
func (nopWorker) Sync()                              {}
func (nopWorker) SignalStartMining()                 {}
func (nopWorker) SignalCancelMining() (done func()) { return func() {} }
func (nopWorker) SignalShareTx(database.BlockTx)    {}
