// Package vaulterrors collects the sentinel errors shared across the
// vault's bounded contexts, grouped by the failure taxonomy: Access,
// State, Argument, Numeric, External, Rescue. Grounded on the teacher's
// sentinel-error pattern in derivatives/domain/derivatives.go
// (ErrOptionContractNotFound and friends), wrapped at each layer
// boundary with fmt.Errorf("...: %w", err).
package vaulterrors

import "errors"

// Access errors.
var (
	ErrNotOwner  = errors.New("vault: caller is not the owner")
	ErrNotKeeper = errors.New("vault: caller is not the keeper")
	ErrNotVault  = errors.New("vault: caller is not the vault")
	ErrNotQueue  = errors.New("vault: caller is not the deposit queue")
)

// State errors.
var (
	ErrBadStatus                = errors.New("vault: status does not permit this operation")
	ErrAuctionNotProcessed      = errors.New("vault: withdrawal lock active, auction not processed")
	ErrHoldPeriodActive         = errors.New("vault: processed auction is still within its hold period")
	ErrPremiumsNotTransferred   = errors.New("vault: premiums have not been transferred")
	ErrPremiumsAlreadyTransferred = errors.New("vault: premiums already transferred")
	ErrLongTokensMissing        = errors.New("vault: auction does not hold enough long tokens")
)

// Argument errors.
var (
	ErrAddressNotProvided             = errors.New("vault: address not provided")
	ErrAddressUnchanged               = errors.New("vault: address unchanged")
	ErrValueBelowMinimum               = errors.New("vault: value below minimum")
	ErrValueExceedsMaximum             = errors.New("vault: value exceeds maximum")
	ErrMaxTVLExceeded                  = errors.New("vault: max TVL exceeded")
	ErrSizeBelowMinimum                = errors.New("vault: size below minimum")
	ErrCostExceedsMax                  = errors.New("vault: cost exceeds max")
	ErrInvalidOrderID                  = errors.New("vault: invalid order id")
	ErrOrderNotFound                   = errors.New("vault: order not found")
	ErrBuyerMismatch                   = errors.New("vault: buyer mismatch")
	ErrCurrentClaimTokenNotRedeemable  = errors.New("vault: current epoch's claim token is not redeemable")
	ErrDecimalsMismatch                = errors.New("vault: decimals mismatch")
)

// Numeric errors.
var (
	ErrDivisionByZero = errors.New("vault: division by zero")
	ErrOverflow       = errors.New("vault: overflow")
)

// External errors.
var (
	ErrWrappedNativeMismatch = errors.New("vault: msg.value > 0 but collateral is not wrapped native")
	ErrSwapShortfall         = errors.New("vault: swap amountOut below minimum")
)

// Rescue — not failures, terminal transitions.
var (
	ErrAuctionTimedOut = errors.New("vault: auction timed out and was auto-cancelled")
)
