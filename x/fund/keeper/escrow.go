package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// pushOrCredit attempts a direct native push payment; on failure the amount
// becomes a claimable pull-balance instead. Never fails the surrounding
// operation.
func (k *Keeper) pushOrCredit(ctx sdk.Context, recipient string, amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	if err := k.assets.SendNative(ctx, types.FundAccount, recipient, amount); err == nil {
		return
	}

	k.setCredit(ctx, recipient, k.GetCredit(ctx, recipient).Add(amount))

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCreditAdded,
			sdk.NewAttribute(types.AttributeKeyRecipient, recipient),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)

	k.logger.Debug("Push payment failed, credited", "recipient", recipient, "amount", amount.String())
}

// WithdrawCredit zeroes the caller's accumulated pull-balance and pays it to
// an address of the caller's choosing. Unlike pushOrCredit, a failed push
// here aborts.
func (k *Keeper) WithdrawCredit(ctx sdk.Context, caller, to string) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		amount := k.GetCredit(ctx, caller)
		if !amount.IsPositive() {
			return types.ErrInvalidTransferAmount.Wrap("no credit to withdraw")
		}
		k.setCredit(ctx, caller, math.ZeroInt())

		if err := k.assets.SendNative(ctx, types.FundAccount, to, amount); err != nil {
			return types.ErrNativeTransferFailed.Wrap(err.Error())
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeCreditWithdrawn,
				sdk.NewAttribute(types.AttributeKeyAccount, caller),
				sdk.NewAttribute(types.AttributeKeyRecipient, to),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			),
		)

		k.logger.Info("Credit withdrawn", "account", caller, "to", to, "amount", amount.String())
		return nil
	})
}
