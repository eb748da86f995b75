package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrExpiredAuthorization          = errors.Register(ModuleName, 2, "authorization payload expired")
	ErrInvalidSignature              = errors.Register(ModuleName, 3, "invalid authorization signature")
	ErrInvalidSigner                 = errors.Register(ModuleName, 4, "invalid signer update")
	ErrFundNotOpen                   = errors.Register(ModuleName, 5, "fund is not open")
	ErrFundAlreadyInitialized        = errors.Register(ModuleName, 6, "fund already initialized")
	ErrFundNotFound                  = errors.Register(ModuleName, 7, "fund not initialized")
	ErrHalted                        = errors.Register(ModuleName, 8, "operations are globally halted")
	ErrUnauthorized                  = errors.Register(ModuleName, 9, "caller not authorized for this operation")
	ErrInvalidDepositNonce           = errors.Register(ModuleName, 10, "deposit bound to stale fund nonce")
	ErrUnexpectedFeeData             = errors.Register(ModuleName, 11, "declared fees exceed cap or fee recipient missing")
	ErrMismatchingDepositAmount      = errors.Register(ModuleName, 12, "declared net input does not match supplied value")
	ErrAssetIndexAlreadyOccupied     = errors.Register(ModuleName, 13, "asset slot held by a different asset")
	ErrDepositMustIncreaseTvl        = errors.Register(ModuleName, 14, "deposit value delta must be non-negative")
	ErrInvalidSwapDirection          = errors.Register(ModuleName, 15, "one swap leg must be the base asset")
	ErrGracePeriodEnded              = errors.Register(ModuleName, 16, "withdrawal grace period has ended")
	ErrManagementFeePeriodNotElapsed = errors.Register(ModuleName, 17, "management fee period has not elapsed")
	ErrInvalidTransferAmount         = errors.Register(ModuleName, 18, "transfer amount is zero or exceeds balance")
	ErrSharesLocked                  = errors.Register(ModuleName, 19, "unlocked share balance insufficient")
	ErrNativeTransferFailed          = errors.Register(ModuleName, 20, "native currency transfer failed")
	ErrInsufficientAssetBalance      = errors.Register(ModuleName, 21, "fund asset balance below declared send amount")
	ErrDepositTooSmall               = errors.Register(ModuleName, 22, "deposit value below fund minimum")
	ErrInvalidAssetIndex             = errors.Register(ModuleName, 23, "asset index out of range")
	ErrInvalidAction                 = errors.Register(ModuleName, 24, "malformed action payload")
	ErrGracePeriodNotEnded           = errors.Register(ModuleName, 25, "grace period still running")
)
