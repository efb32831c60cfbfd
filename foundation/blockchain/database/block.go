package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/merkle"
	"github.com/zimcoin/ledger/foundation/blockchain/signature"
)

// powCancelCheck is the number of nonce attempts between checks for
// cancellation of a mining operation.
const powCancelCheck = 1 << 12

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Bitcoin: Time the block was mined.
	Difficulty    uint64 `json:"difficulty"`      // Ethereum: Expected number of hashes needed to solve the block.
	Nonce         uint64 `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
	TransRoot     string `json:"trans_root"`      // Bitcoin/Ethereum: Represents the merkle tree root hash for the transactions in this block.
}

// headerEncoding is the canonical encoding of a block header.
type headerEncoding struct {
	Number        uint64
	PrevBlockHash []byte
	TimeStamp     uint64
	Difficulty    uint64
	Nonce         uint64
	TransRoot     []byte
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[BlockTx]
}

// GenesisBlock constructs the root block of the chain from the genesis
// configuration. It is never validated and its hash is the root of all
// chains.
func GenesisBlock(gen genesis.Genesis) Block {
	tree, _ := merkle.NewTree[BlockTx](nil)

	return Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(gen.Date.UTC().Unix()),
			Difficulty:    gen.Difficulty,
			Nonce:         0,
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {

	// CORE NOTE: Hashing the block header and not the whole block so the blockchain
	// can be cryptographically checked by only needing block headers and not full
	// blocks with the transaction data. The transactions are bound to the header
	// through the merkle root.

	enc := headerEncoding{
		Number:        b.Header.Number,
		PrevBlockHash: common.HexToHash(b.Header.PrevBlockHash).Bytes(),
		TimeStamp:     b.Header.TimeStamp,
		Difficulty:    b.Header.Difficulty,
		Nonce:         b.Header.Nonce,
		TransRoot:     common.HexToHash(b.Header.TransRoot).Bytes(),
	}

	return signature.Hash(enc)
}

// Transactions returns the transactions in the order they were mined.
func (b Block) Transactions() []BlockTx {
	if b.Trans == nil {
		return nil
	}

	return b.Trans.Values()
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	ChainID       uint16
	BeneficiaryID AccountID
	MiningReward  uint64
	Difficulty    uint64
	PrevBlock     Block
	Trans         []BlockTx
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The reward transaction for the
// beneficiary is placed in front of the provided transactions.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if !args.BeneficiaryID.IsCanonical() {
		return Block{}, fmt.Errorf("%w: beneficiary %q is not a canonical account", ErrMalformedInput, args.BeneficiaryID)
	}

	if args.Difficulty == 0 {
		return Block{}, errors.New("difficulty must be greater than zero")
	}

	number := args.PrevBlock.Header.Number + 1

	trans := make([]BlockTx, 0, len(args.Trans)+1)
	trans = append(trans, NewBlockTx(NewRewardTx(args.ChainID, number, args.BeneficiaryID, args.MiningReward)))
	trans = append(trans, args.Trans...)

	// Construct a merkle tree from the transaction for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	// A block can never be older than its parent.
	timeStamp := uint64(time.Now().UTC().Unix())
	if parentTS := args.PrevBlock.Header.TimeStamp; timeStamp < parentTS {
		timeStamp = parentTS
	}

	// Construct the block to be mined.
	nb := Block{
		Header: BlockHeader{
			Number:        number,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     timeStamp,
			Difficulty:    args.Difficulty,
			Nonce:         0, // Will be identified by the POW algorithm.
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}

	// Peform the proof of work mining operation.
	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, b.Header.Difficulty)
	defer ev("database: PerformPOW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans.Values() {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	target := Target(b.Header.Difficulty)

	// Loop until we solve the puzzle or the caller tells us to stop.
	var attempts uint64
	for {
		attempts++
		if attempts%powCancelCheck == 0 {
			if ctx.Err() != nil {
				ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", attempts)
				return ctx.Err()
			}
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if hashSolved(target, hash) {
			ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)
			return nil
		}

		// Every nonce for this timestamp failed, move the clock forward
		// and start the search again.
		if b.Header.Nonce == math.MaxUint64 {
			b.Header.TimeStamp++
			b.Header.Nonce = 0
			continue
		}

		b.Header.Nonce++
	}
}

// =============================================================================

// ValidateArgs are the consensus values a block is checked against.
type ValidateArgs struct {
	ChainID       uint16
	TransPerBlock uint16
	Difficulty    uint64
	EvHandler     func(v string, args ...any)
}

// ValidateBlock takes a block and validates it against its parent, the
// expected difficulty for its slot, its merkle root and the signatures of
// its transactions. The account level checks are performed when the block
// is applied to the state at its parent.
func (b Block) ValidateBlock(parent Block, args ValidateArgs) error {
	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block is linked to the parent", b.Header.Number)

	nextNumber := parent.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrBrokenHashChain, b.Header.Number, nextNumber)
	}

	if parentHash := parent.Hash(); b.Header.PrevBlockHash != parentHash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrBrokenHashChain, b.Header.PrevBlockHash, parentHash)
	}

	if b.Header.TimeStamp < parent.Header.TimeStamp {
		parentTime := time.Unix(int64(parent.Header.TimeStamp), 0).UTC()
		blockTime := time.Unix(int64(b.Header.TimeStamp), 0).UTC()
		return fmt.Errorf("%w: block timestamp is before parent block, parent %s, block %s", ErrMalformedInput, parentTime, blockTime)
	}

	if err := b.checkTransCount(args.TransPerBlock); err != nil {
		return err
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	if b.Header.Difficulty != args.Difficulty {
		return fmt.Errorf("%w: wrong difficulty for this block, got %d, exp %d", ErrInsufficientWork, b.Header.Difficulty, args.Difficulty)
	}

	hash := b.Hash()
	if !HashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s does not meet difficulty %d", ErrInsufficientWork, hash, b.Header.Difficulty)
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	if err := b.checkTransRoot(); err != nil {
		return err
	}

	ev("database: ValidateBlock: validate: blk[%d]: check: transactions are signed", b.Header.Number)

	for _, tx := range b.Transactions() {
		if tx.IsReward() {
			continue
		}

		if err := tx.Validate(args.ChainID); err != nil {
			return fmt.Errorf("tx[%s]: %w", tx.SignedTx.Hash(), err)
		}
	}

	return nil
}

// ValidateBody performs the checks that don't need the parent block: the
// number of transactions, the merkle root and that no transaction is
// repeated.
func (b Block) ValidateBody(transPerBlock uint16) error {
	if err := b.checkTransCount(transPerBlock); err != nil {
		return err
	}

	return b.checkTransRoot()
}

// checkTransCount makes sure the block doesn't carry more than the allowed
// number of transactions on top of the reward.
func (b Block) checkTransCount(transPerBlock uint16) error {
	trans := b.Transactions()
	if transPerBlock > 0 && len(trans) > int(transPerBlock)+1 {
		return fmt.Errorf("%w: too many transactions, got %d, max %d", ErrMalformedInput, len(trans)-1, transPerBlock)
	}

	return nil
}

// checkTransRoot makes sure the transactions produce the merkle root in the
// header.
func (b Block) checkTransRoot() error {
	if b.Trans == nil {
		return fmt.Errorf("%w: block has no transaction tree", ErrMalformedInput)
	}

	// A tree with an odd number of leaves pairs the last leaf with itself,
	// so repeating the last transaction doesn't change the root.
	if err := uniqueTrans(b.Transactions()); err != nil {
		return err
	}

	if err := b.Trans.Verify(); err != nil {
		return fmt.Errorf("%w: %s", ErrBadMerkleRoot, err)
	}

	if b.Header.TransRoot != b.Trans.RootHex() {
		return fmt.Errorf("%w: merkle root does not match transactions, got %s, exp %s", ErrBadMerkleRoot, b.Trans.RootHex(), b.Header.TransRoot)
	}

	return nil
}

// uniqueTrans returns an error when a transaction appears more than once.
func uniqueTrans(trans []BlockTx) error {
	seen := make(map[string]struct{}, len(trans))
	for _, tx := range trans {
		hash := tx.SignedTx.Hash()
		if _, exists := seen[hash]; exists {
			return fmt.Errorf("%w: transaction %s appears more than once", ErrMalformedInput, hash)
		}
		seen[hash] = struct{}{}
	}

	return nil
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Transactions(),
	}

	return blockData
}

// ToBlock converts a storage block into a database block. Hashes are put in
// their canonical form. The merkle tree is rebuilt from the transactions so
// it can be checked against the root in the header.
func ToBlock(blockData BlockData) (Block, error) {
	header := blockData.Header

	for _, h := range []string{header.PrevBlockHash, header.TransRoot} {
		if !isHash(h) {
			return Block{}, fmt.Errorf("%w: %q is not a hash", ErrMalformedInput, h)
		}
	}
	header.PrevBlockHash = common.HexToHash(header.PrevBlockHash).Hex()
	header.TransRoot = common.HexToHash(header.TransRoot).Hex()

	if err := uniqueTrans(blockData.Trans); err != nil {
		return Block{}, err
	}

	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}

	block := Block{
		Header: header,
		Trans:  tree,
	}

	return block, nil
}

// isHash reports whether the string is a 0x prefixed 32 byte hex value.
func isHash(h string) bool {
	b, err := hexutil.Decode(h)
	return err == nil && len(b) == common.HashLength
}
