package keeper

import (
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// Rebalance applies arbitrary asset-slot updates, executes the declared swap
// list, and advances the fund nonce. Operator-only.
func (k *Keeper) Rebalance(ctx sdk.Context, caller string, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("rebalance is operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if err := k.VerifyPayload(ctx, types.ActionRebalance, caller, payload); err != nil {
			return err
		}

		var action types.RebalanceAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}

		if err := k.applyAssetUpdates(ctx, fund, action.AssetUpdates); err != nil {
			return err
		}
		if err := k.executeSwaps(ctx, action.Swaps); err != nil {
			return err
		}

		fund.Nonce++
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeRebalanced,
				sdk.NewAttribute(types.AttributeKeyNonce, strconv.FormatUint(fund.Nonce, 10)),
			),
		)

		k.logger.Info("Fund rebalanced", "nonce", fund.Nonce, "swaps", len(action.Swaps))
		return nil
	})
}
