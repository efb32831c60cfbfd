package database

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// two256 is 2^256, one more than the largest hash value.
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)

	// maxTarget is the largest hash value, the target for a difficulty of 1.
	maxTarget = new(big.Int).Sub(two256, big.NewInt(1))
)

// Target returns the value a block hash must not exceed for the specified
// difficulty. The target is floor((2^256-1) / difficulty).
func Target(difficulty uint64) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}

	return new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
}

// Work returns the expected number of hashes required to find a block for
// the specified difficulty. Work is 2^256 / (target+1).
func Work(difficulty uint64) *big.Int {
	target := Target(difficulty)
	return new(big.Int).Div(two256, target.Add(target, big.NewInt(1)))
}

// HashSolved checks the hash is numerically at or below the target for
// the specified difficulty.
func HashSolved(difficulty uint64, hash string) bool {
	return hashSolved(Target(difficulty), hash)
}

// hashSolved compares the hash against an already computed target.
func hashSolved(target *big.Int, hash string) bool {
	h, err := hexutil.Decode(hash)
	if err != nil || len(h) != 32 {
		return false
	}

	return new(big.Int).SetBytes(h).Cmp(target) <= 0
}

// =============================================================================

// RetargetArgs describes the window of blocks used to compute a new
// difficulty.
type RetargetArgs struct {
	Difficulty uint64      // Difficulty of the tip of the window.
	First      BlockHeader // Oldest block in the window.
	Last       BlockHeader // Tip of the window.
	BlockTime  uint64      // Target number of seconds between blocks.
}

// NextDifficulty computes the difficulty that keeps the average time between
// blocks at the target block time. The new difficulty is
// old * expected / actual, clamped to a factor of four in either direction
// and never less than one. Integer math only, every node must produce the
// same answer.
func NextDifficulty(args RetargetArgs) uint64 {
	old := args.Difficulty
	if old == 0 {
		old = 1
	}

	if args.Last.Number <= args.First.Number || args.BlockTime == 0 {
		return old
	}

	intervals := args.Last.Number - args.First.Number
	expected := new(big.Int).Mul(new(big.Int).SetUint64(intervals), new(big.Int).SetUint64(args.BlockTime))

	var actual uint64 = 1
	if args.Last.TimeStamp > args.First.TimeStamp {
		actual = args.Last.TimeStamp - args.First.TimeStamp
	}

	next := new(big.Int).SetUint64(old)
	next.Mul(next, expected)
	next.Div(next, new(big.Int).SetUint64(actual))

	lower := new(big.Int).SetUint64(old / 4)
	upper := new(big.Int).Mul(new(big.Int).SetUint64(old), big.NewInt(4))

	switch {
	case next.Cmp(lower) < 0:
		next = lower
	case next.Cmp(upper) > 0:
		next = upper
	}

	if !next.IsUint64() {
		return math.MaxUint64
	}

	if d := next.Uint64(); d > 0 {
		return d
	}

	return 1
}
