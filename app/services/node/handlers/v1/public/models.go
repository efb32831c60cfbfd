package public

import (
	"math/big"

	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/nameservice"
)

// submitTx is the payload a wallet sends to move value.
type submitTx struct {
	ChainID uint16   `json:"chain_id" validate:"required"`
	Nonce   uint64   `json:"nonce"`
	FromID  string   `json:"from" validate:"required,accountid"`
	ToID    string   `json:"to" validate:"required,accountid"`
	Value   uint64   `json:"value" validate:"required"`
	V       *big.Int `json:"v" validate:"required"`
	R       *big.Int `json:"r" validate:"required"`
	S       *big.Int `json:"s" validate:"required"`
}

func (st submitTx) toSignedTx() database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			ChainID: st.ChainID,
			Nonce:   st.Nonce,
			FromID:  database.AccountID(st.FromID),
			ToID:    database.AccountID(st.ToID),
			Value:   st.Value,
		},
		V: st.V,
		R: st.R,
		S: st.S,
	}
}

// =============================================================================

type tx struct {
	Hash        string             `json:"hash"`
	FromAccount database.AccountID `json:"from,omitempty"`
	FromName    string             `json:"from_name,omitempty"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	ChainID     uint16             `json:"chain_id"`
	Nonce       uint64             `json:"nonce"`
	Value       uint64             `json:"value"`
	Reward      bool               `json:"reward,omitempty"`
	Sig         string             `json:"sig,omitempty"`
}

func toTx(ns *nameservice.NameService, blockTx database.BlockTx) tx {
	t := tx{
		Hash:    blockTx.SignedTx.Hash(),
		To:      blockTx.ToID,
		ToName:  ns.Lookup(blockTx.ToID),
		ChainID: blockTx.ChainID,
		Nonce:   blockTx.Nonce,
		Value:   blockTx.Value,
		Reward:  blockTx.IsReward(),
	}

	if !t.Reward {
		t.FromAccount = blockTx.FromID
		t.FromName = ns.Lookup(blockTx.FromID)
		t.Sig = blockTx.SignatureString()
	}

	return t
}

type block struct {
	Hash          string `json:"hash"`
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Difficulty    uint64 `json:"difficulty"`
	Nonce         uint64 `json:"nonce"`
	TransRoot     string `json:"trans_root"`
	Transactions  []tx   `json:"txs"`
}

func toBlock(ns *nameservice.NameService, blk database.Block) block {
	trans := blk.Transactions()

	txs := make([]tx, len(trans))
	for i, tran := range trans {
		txs[i] = toTx(ns, tran)
	}

	return block{
		Hash:          blk.Hash(),
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Difficulty:    blk.Header.Difficulty,
		Nonce:         blk.Header.Nonce,
		TransRoot:     blk.Header.TransRoot,
		Transactions:  txs,
	}
}

type info struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance uint64             `json:"balance"`
	Nonce   uint64             `json:"nonce"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []info `json:"accounts"`
}
