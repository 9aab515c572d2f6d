package cdp

import "errors"

var (
	errNilState      = errors.New("cdp: engine not configured")
	errInvalidAmount = errors.New("cdp: amount must be positive")

	// ErrCDPAlreadyExists is returned by OpenCDP when the borrower already
	// has a position.
	ErrCDPAlreadyExists = errors.New("cdp: already exists")
	// ErrCDPNotFound is returned by operations on a borrower with no CDP.
	ErrCDPNotFound = errors.New("cdp: not found")
	// ErrCDPNotOpen is returned when an op requiring Open finds a different
	// stored status.
	ErrCDPNotOpen = errors.New("cdp: not open")
	// ErrCDPNotInsolvent is returned by FreezeCDP when the current ratio is
	// still at or above the minimum.
	ErrCDPNotInsolvent = errors.New("cdp: not insolvent")
	// ErrCDPNotFrozen is returned by the liquidation coordinator when asked
	// to liquidate a CDP that is not Frozen.
	ErrCDPNotFrozen = errors.New("cdp: not frozen")

	// ErrInsufficientCollateral is returned when an operation would leave
	// (or open) a CDP below min_collat_ratio.
	ErrInsufficientCollateral = errors.New("cdp: insufficient collateral")
	// ErrInsufficientBalance is returned when a repay/pay_interest exceeds
	// the borrower's synthetic-asset balance.
	ErrInsufficientBalance = errors.New("cdp: insufficient balance")
	// ErrAmountExceedsAccruedInterest is returned by PayInterest when amount
	// exceeds the outstanding accrued_interest.
	ErrAmountExceedsAccruedInterest = errors.New("cdp: amount exceeds accrued interest")
)
