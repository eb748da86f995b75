package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// executeSwap runs one swap instruction against the external router and
// books the realized balance deltas. The declared send amount must be
// covered by the fund's balance; the router call either succeeds or fails
// with its own reason propagated. A declared fee in the base asset is
// forwarded to the protocol fee vault. No slippage or price validation
// happens here.
func (k *Keeper) executeSwap(ctx sdk.Context, swap types.Swap) (deltaIn, deltaOut math.Int, err error) {
	preIn := k.assets.GetBalance(ctx, types.FundAccount, swap.TokenIn)
	preOut := k.assets.GetBalance(ctx, types.FundAccount, swap.TokenOut)

	if preIn.LT(swap.AmountIn) {
		return math.ZeroInt(), math.ZeroInt(), types.ErrInsufficientAssetBalance.Wrapf(
			"%s: have %s, send %s", swap.TokenIn, preIn.String(), swap.AmountIn.String(),
		)
	}

	if err := k.swapper.Execute(ctx, types.FundAccount, swap); err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}

	if swap.Fee.IsPositive() {
		base := k.registry.BaseDenom(ctx)
		vault := k.registry.ProtocolFeeVault(ctx)
		if err := k.assets.Send(ctx, types.FundAccount, vault, base, swap.Fee); err != nil {
			return math.ZeroInt(), math.ZeroInt(), err
		}
	}

	postIn := k.assets.GetBalance(ctx, types.FundAccount, swap.TokenIn)
	postOut := k.assets.GetBalance(ctx, types.FundAccount, swap.TokenOut)
	deltaIn = postIn.Sub(preIn)
	deltaOut = postOut.Sub(preOut)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSwapExecuted,
			sdk.NewAttribute(types.AttributeKeyTokenIn, swap.TokenIn),
			sdk.NewAttribute(types.AttributeKeyTokenOut, swap.TokenOut),
			sdk.NewAttribute(types.AttributeKeyDeltaIn, deltaIn.String()),
			sdk.NewAttribute(types.AttributeKeyDeltaOut, deltaOut.String()),
			sdk.NewAttribute(types.AttributeKeyFee, swap.Fee.String()),
		),
	)

	k.logger.Debug("Swap executed",
		"token_in", swap.TokenIn,
		"token_out", swap.TokenOut,
		"delta_in", deltaIn.String(),
		"delta_out", deltaOut.String(),
	)
	return deltaIn, deltaOut, nil
}

// executeSwaps runs a declared swap list in order, aborting on the first
// failure.
func (k *Keeper) executeSwaps(ctx sdk.Context, swaps []types.Swap) error {
	for _, swap := range swaps {
		if _, _, err := k.executeSwap(ctx, swap); err != nil {
			return err
		}
	}
	return nil
}

// SingleSwap executes one operator swap with the fund's base asset on one
// leg, applies the accompanying asset-slot updates, and advances the fund
// nonce so deposits signed against the previous basket become stale.
func (k *Keeper) SingleSwap(ctx sdk.Context, caller string, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("swaps are operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if err := k.VerifyPayload(ctx, types.ActionSingleSwap, caller, payload); err != nil {
			return err
		}

		var action types.SingleSwapAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}

		base := k.registry.BaseDenom(ctx)
		if action.Swap.TokenIn != base && action.Swap.TokenOut != base {
			return types.ErrInvalidSwapDirection.Wrapf("%s -> %s", action.Swap.TokenIn, action.Swap.TokenOut)
		}

		if err := k.applyAssetUpdates(ctx, fund, action.AssetUpdates); err != nil {
			return err
		}
		if _, _, err := k.executeSwap(ctx, action.Swap); err != nil {
			return err
		}

		fund.Nonce++
		k.SetFund(ctx, fund)
		return nil
	})
}

// applyAssetUpdates writes asset-slot assignments and emits one
// AssetsUpdated event per changed slot.
func (k *Keeper) applyAssetUpdates(ctx sdk.Context, fund *types.Fund, updates []types.AssetUpdate) error {
	for _, update := range updates {
		if update.Index < 0 || update.Index >= types.MaxAssets {
			return types.ErrInvalidAssetIndex.Wrapf("index %d", update.Index)
		}
		fund.Assets[update.Index] = update.Asset

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeAssetsUpdated,
				sdk.NewAttribute(types.AttributeKeyAssetIndex, strconv.Itoa(update.Index)),
				sdk.NewAttribute(types.AttributeKeyAsset, update.Asset),
			),
		)
	}
	return nil
}
