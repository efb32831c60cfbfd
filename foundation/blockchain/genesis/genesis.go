// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Genesis represents the genesis file. These values are the consensus
// parameters of the chain and must be identical on every node.
type Genesis struct {
	Date             time.Time         `json:"date"`              // Fixed timestamp of the genesis block.
	ChainID          uint16            `json:"chain_id"`          // The chain id represents an unique id for this running instance.
	TransPerBlock    uint16            `json:"trans_per_block"`   // The maximum number of transactions that can be in a block.
	Difficulty       uint64            `json:"difficulty"`        // Starting difficulty, the expected number of hashes to solve a block.
	RetargetInterval uint64            `json:"retarget_interval"` // Number of blocks between difficulty adjustments.
	BlockTime        uint64            `json:"block_time"`        // Target number of seconds between blocks.
	MiningReward     uint64            `json:"mining_reward"`     // Reward for mining a block.
	Balances         map[string]uint64 `json:"balances"`
}

// Default returns the genesis values used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:          1,
		TransPerBlock:    25,
		Difficulty:       1000,
		RetargetInterval: 10,
		BlockTime:        120,
		MiningReward:     50,
		Balances:         map[string]uint64{},
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Values missing from the file
// take their defaults.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the consensus parameters are usable.
func (g Genesis) Validate() error {
	switch {
	case g.Difficulty == 0:
		return errors.New("genesis difficulty must be greater than zero")
	case g.RetargetInterval < 2:
		return errors.New("genesis retarget interval must be at least two blocks")
	case g.BlockTime == 0:
		return errors.New("genesis block time must be greater than zero")
	case g.TransPerBlock == 0:
		return errors.New("genesis transactions per block must be greater than zero")
	}

	return nil
}
