package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// MintManagementFee mints totalSupply/599 to the admin account once per
// period, calibrated so the post-mint amount is ~1/600 of the new supply.
// The mint is exempt from the deposit cooldown lock. Admin-only; calls
// before the period has elapsed fail deterministically.
func (k *Keeper) MintManagementFee(ctx sdk.Context, caller string) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		admin := k.registry.AdminAddress(ctx)
		if caller != admin {
			return types.ErrUnauthorized.Wrap("management fee mint is admin-only")
		}

		now := ctx.BlockTime().Unix()
		if now < fund.LatestFeeMintTime+types.ManagementFeePeriodSeconds {
			return types.ErrManagementFeePeriodNotElapsed.Wrapf(
				"next mint at %d", fund.LatestFeeMintTime+types.ManagementFeePeriodSeconds,
			)
		}

		amount := k.GetTotalSupply(ctx).Quo(math.NewInt(types.ManagementFeeDivisor))
		k.mintShares(ctx, fund, admin, amount)

		fund.LatestFeeMintTime = now
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeManagementFeeMinted,
				sdk.NewAttribute(types.AttributeKeyRecipient, admin),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeyTimestamp, strconv.FormatInt(now, 10)),
			),
		)

		k.logger.Info("Management fee minted", "recipient", admin, "amount", amount.String())
		return nil
	})
}
