package database

import (
	"crypto/ecdsa"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account represents information stored in the database for an individual
// account. Nonce is the next nonce the account is expected to use.
type Account struct {
	AccountID AccountID `json:"account"`
	Nonce     uint64    `json:"nonce"`
	Balance   uint64    `json:"balance"`
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, balance uint64) Account {
	return Account{
		AccountID: accountID,
		Balance:   balance,
	}
}

// =============================================================================

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the blockchain. The canonical form is the
// EIP-55 checksummed hex address.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is formatted correctly. The result is in canonical form.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return AccountID(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	return common.IsHexAddress(string(a))
}

// IsCanonical reports whether the account id is a valid account written in
// its canonical form.
func (a AccountID) IsCanonical() bool {
	return a.IsAccountID() && common.HexToAddress(string(a)).Hex() == string(a)
}

// bytes returns the 20 byte address for the canonical encoding. An empty
// account id encodes as no bytes.
func (a AccountID) bytes() []byte {
	if a == "" {
		return []byte{}
	}

	return common.HexToAddress(string(a)).Bytes()
}

// =============================================================================

// Accounts is a view of the balance and nonce of every account that has
// transacted on a chain.
type Accounts map[AccountID]Account

// Query returns the account for the specified id. An unknown account is
// returned with a zero balance and nonce.
func (a Accounts) Query(accountID AccountID) Account {
	account, exists := a[accountID]
	if !exists {
		return newAccount(accountID, 0)
	}

	return account
}

// Clone makes a copy of the accounts.
func (a Accounts) Clone() Accounts {
	cpy := make(Accounts, len(a))
	for accountID, account := range a {
		cpy[accountID] = account
	}

	return cpy
}

// Sorted returns the accounts ordered by account id.
func (a Accounts) Sorted() []Account {
	list := make([]Account, 0, len(a))
	for _, account := range a {
		list = append(list, account)
	}
	sort.Sort(byAccount(list))

	return list
}

// =============================================================================

// byAccount provides sorting support by the account id value.
type byAccount []Account

// Len returns the number of accounts in the list.
func (ba byAccount) Len() int {
	return len(ba)
}

// Less helps to sort the list by account id in ascending order.
func (ba byAccount) Less(i, j int) bool {
	return ba[i].AccountID < ba[j].AccountID
}

// Swap moves accounts in the order of the account id value.
func (ba byAccount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
