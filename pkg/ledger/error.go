package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned by Lock and Debit when the user's
	// available balance cannot cover the requested amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
)
