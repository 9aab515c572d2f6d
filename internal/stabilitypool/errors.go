package stabilitypool

import "errors"

var (
	errNilState = errors.New("stabilitypool: pool not configured")

	// ErrInvalidAmount rejects non-positive amounts.
	ErrInvalidAmount = errors.New("stabilitypool: amount must be positive")
	// ErrInsufficientStake is returned by Withdraw when amount exceeds the
	// staker's current effective deposit.
	ErrInsufficientStake = errors.New("stabilitypool: insufficient stake")
)
