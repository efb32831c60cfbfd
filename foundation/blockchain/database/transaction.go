package database

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zimcoin/ledger/foundation/blockchain/signature"
)

// Tx is the transactional information between two parties.
type Tx struct {
	ChainID uint16    `json:"chain_id"` // Ethereum: The chain id that is listed in the genesis file.
	Nonce   uint64    `json:"nonce"`    // Ethereum: Sequence number of the transaction for the sender.
	FromID  AccountID `json:"from"`     // Ethereum: Account sending the transaction. Empty for a reward.
	ToID    AccountID `json:"to"`       // Ethereum: Account receiving the benefit of the transaction.
	Value   uint64    `json:"value"`    // Ethereum: Monetary value received from this transaction.
}

// NewTx constructs a new transaction.
func NewTx(chainID uint16, nonce uint64, fromID AccountID, toID AccountID, value uint64) (Tx, error) {
	if !fromID.IsAccountID() {
		return Tx{}, fmt.Errorf("%w: from account is not properly formatted", ErrMalformedInput)
	}

	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("%w: to account is not properly formatted", ErrMalformedInput)
	}

	if value == 0 {
		return Tx{}, fmt.Errorf("%w: transfer value must be greater than zero", ErrInvalidAmount)
	}

	tx := Tx{
		ChainID: chainID,
		Nonce:   nonce,
		FromID:  fromID,
		ToID:    toID,
		Value:   value,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if tx.Value == 0 {
		return SignedTx{}, fmt.Errorf("%w: transfer value must be greater than zero", ErrInvalidAmount)
	}

	if !tx.ToID.IsAccountID() {
		return SignedTx{}, fmt.Errorf("%w: to account is not properly formatted", ErrMalformedInput)
	}

	// The key must belong to the account claiming to send the value.
	if PublicKeyToAccountID(privateKey.PublicKey) != tx.FromID {
		return SignedTx{}, fmt.Errorf("%w: signing key does not match from account %s", ErrInvalidSignature, tx.FromID)
	}

	// Sign the canonical encoding of the transaction with the private key.
	v, r, s, err := signature.Sign(tx.payload(), privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// payload returns the canonical value that is signed.
func (tx Tx) payload() txPayload {
	return txPayload{
		ChainID: tx.ChainID,
		Nonce:   tx.Nonce,
		From:    tx.FromID.bytes(),
		To:      tx.ToID.bytes(),
		Value:   tx.Value,
	}
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Ethereum: Recovery identifier, either 29 or 30 with zimID.
	R *big.Int `json:"r"` // Ethereum: First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Ethereum: Second coordinate of the ECDSA signature.
}

// NewRewardTx constructs the transaction that pays the mining reward to the
// beneficiary of a block. It has no sender and no signature. The nonce holds
// the block number so every reward has its own identity.
func NewRewardTx(chainID uint16, blockNumber uint64, beneficiaryID AccountID, reward uint64) SignedTx {
	return SignedTx{
		Tx: Tx{
			ChainID: chainID,
			Nonce:   blockNumber,
			ToID:    beneficiaryID,
			Value:   reward,
		},
	}
}

// IsReward reports whether this is a protocol minted reward transaction.
func (tx SignedTx) IsReward() bool {
	return tx.FromID == ""
}

// Validate verifies the transaction is well formed for the specified chain
// and carries a signature from the account it claims to come from.
func (tx SignedTx) Validate(chainID uint16) error {
	if tx.IsReward() {
		return fmt.Errorf("%w: reward transactions are not signed", ErrInvalidSignature)
	}

	if tx.ChainID != chainID {
		return fmt.Errorf("%w: wrong chain id, got %d, exp %d", ErrMalformedInput, tx.ChainID, chainID)
	}

	if !tx.FromID.IsCanonical() {
		return fmt.Errorf("%w: from account %q is not a canonical account", ErrMalformedInput, tx.FromID)
	}

	if !tx.ToID.IsCanonical() {
		return fmt.Errorf("%w: to account %q is not a canonical account", ErrMalformedInput, tx.ToID)
	}

	if tx.FromID == tx.ToID {
		return fmt.Errorf("%w: sending money to yourself, from %s, to %s", ErrMalformedInput, tx.FromID, tx.ToID)
	}

	if tx.Value == 0 {
		return fmt.Errorf("%w: transfer value must be greater than zero", ErrInvalidAmount)
	}

	return tx.VerifySignature()
}

// VerifySignature recomputes the canonical encoding and checks the signature
// was produced by the private key of the from account.
func (tx SignedTx) VerifySignature() error {
	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	fromID, err := tx.FromAccount()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if fromID != tx.FromID {
		return fmt.Errorf("%w: signed by %s, claims %s", ErrInvalidSignature, fromID, tx.FromID)
	}

	return nil
}

// FromAccount extracts the account id that signed the transaction.
func (tx SignedTx) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(tx.payload(), tx.V, tx.R, tx.S)
	return AccountID(address), err
}

// Hash returns the identity of the transaction. It's the hash of the
// canonical encoding including the signature.
func (tx SignedTx) Hash() string {
	return signature.Hash(tx.encoding())
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	if tx.IsReward() {
		return ""
	}

	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	if tx.IsReward() {
		return fmt.Sprintf("reward:%s:%d", tx.ToID, tx.Nonce)
	}

	return fmt.Sprintf("%s:%d", tx.FromID, tx.Nonce)
}

// encoding returns the canonical value that identifies the transaction.
func (tx SignedTx) encoding() txEncoding {
	p := tx.payload()

	return txEncoding{
		ChainID: p.ChainID,
		Nonce:   p.Nonce,
		From:    p.From,
		To:      p.To,
		Value:   p.Value,
		V:       orZero(tx.V),
		R:       orZero(tx.R),
		S:       orZero(tx.S),
	}
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block.
type BlockTx struct {
	SignedTx
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{
		SignedTx: signedTx,
	}
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	return hexutil.Decode(tx.SignedTx.Hash())
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two block transactions.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	return tx.SignedTx.Hash() == otherTx.SignedTx.Hash()
}

// =============================================================================

// txPayload is the canonical encoding of the signed portion of a transaction.
type txPayload struct {
	ChainID uint16
	Nonce   uint64
	From    []byte
	To      []byte
	Value   uint64
}

// txEncoding is the canonical encoding of a signed transaction.
type txEncoding struct {
	ChainID uint16
	Nonce   uint64
	From    []byte
	To      []byte
	Value   uint64
	V       *big.Int
	R       *big.Int
	S       *big.Int
}

// orZero replaces a missing signature value with zero.
func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
