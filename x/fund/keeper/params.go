package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// SetMinUserDepositValue updates the minimum declared deposit value.
// Operator-only, fund open.
func (k *Keeper) SetMinUserDepositValue(ctx sdk.Context, caller string, value math.Int) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("policy updates are operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if value.IsNegative() {
			return types.ErrInvalidAction.Wrap("negative minimum deposit value")
		}

		fund.MinDepositValue = value
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeMinUserDepositValueUpdated,
				sdk.NewAttribute(types.AttributeKeyValue, value.String()),
			),
		)
		return nil
	})
}

// SetMinUserDepositCooldown updates the cooldown applied to newly-minted and
// newly-received shares. Operator-only, fund open. Lowering the duration
// between mints breaks the non-decreasing unlock-time assumption of the
// cooldown queue's backward scan.
func (k *Keeper) SetMinUserDepositCooldown(ctx sdk.Context, caller string, cooldown int64) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("policy updates are operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if cooldown < 0 {
			return types.ErrInvalidAction.Wrap("negative cooldown")
		}

		fund.MinDepositCooldown = cooldown
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeMinUserDepositCooldownUpdated,
				sdk.NewAttribute(types.AttributeKeyCooldown, strconv.FormatInt(cooldown, 10)),
			),
		)
		return nil
	})
}
