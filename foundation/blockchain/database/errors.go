package database

import "errors"

// Set of error kinds produced when validating transactions and blocks. Callers
// inspect these with errors.Is. A rejected transaction or block is dropped
// and never retried by the chain.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrDoubleSpend          = errors.New("double spend")
	ErrInvalidNonce         = errors.New("invalid nonce")
	ErrBrokenHashChain      = errors.New("broken hash chain")
	ErrInsufficientWork     = errors.New("insufficient work")
	ErrBadMerkleRoot        = errors.New("bad merkle root")
	ErrBadReward            = errors.New("bad reward")
	ErrUnknownParent        = errors.New("unknown parent")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrDuplicateBlock       = errors.New("duplicate block")
)

// ErrInsufficientBalance is the same kind as ErrDoubleSpend. Spending more
// than the account holds is how a double spend shows itself in an account
// model.
var ErrInsufficientBalance = ErrDoubleSpend
