package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// Initialize performs one-time fund setup: wraps the operator's initial
// native deposit into the base asset, places the base asset in slot 0, mints
// shares to the operator equal to the declared USD value, records invested
// capital, and forwards the buyback fee.
func (k *Keeper) Initialize(
	ctx sdk.Context,
	operator string,
	supplied math.Int, // native units already credited to the fund account
	declaredValue math.Int,
	buybackFee math.Int,
	feeRecipient string,
	minDepositValue math.Int,
	minDepositCooldown int64,
) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		if k.GetFund(ctx) != nil {
			return types.ErrFundAlreadyInitialized
		}
		if buybackFee.IsNegative() || buybackFee.GT(supplied) {
			return types.ErrUnexpectedFeeData.Wrapf("buyback fee %s of %s", buybackFee.String(), supplied.String())
		}
		if buybackFee.IsPositive() && feeRecipient == "" {
			return types.ErrUnexpectedFeeData.Wrap("missing fee recipient")
		}

		base := k.registry.BaseDenom(ctx)
		fund := types.NewFund(operator, base, minDepositValue, minDepositCooldown, ctx.BlockTime().Unix())

		if err := k.assets.Wrap(ctx, types.FundAccount, supplied.Sub(buybackFee)); err != nil {
			return err
		}
		if buybackFee.IsPositive() {
			k.pushOrCredit(ctx, feeRecipient, buybackFee)
		}

		k.mintShares(ctx, fund, operator, declaredValue)
		k.setInvestedCapital(ctx, operator, declaredValue)
		fund.TotalValue = declaredValue
		k.SetFund(ctx, fund)
		k.recordFundValue(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDeposited,
				sdk.NewAttribute(types.AttributeKeyAccount, operator),
				sdk.NewAttribute(types.AttributeKeyAmount, supplied.String()),
				sdk.NewAttribute(types.AttributeKeyShares, declaredValue.String()),
				sdk.NewAttribute(types.AttributeKeyProtocolFee, math.ZeroInt().String()),
				sdk.NewAttribute(types.AttributeKeyBuybackFee, buybackFee.String()),
			),
		)

		k.logger.Info("Fund initialized",
			"operator", operator,
			"supplied", supplied.String(),
			"shares", declaredValue.String(),
		)
		return nil
	})
}

// DepositAsset registers an asset into a basket slot and pulls it in from
// the operator, minting shares for the declared value delta. Operator-only.
func (k *Keeper) DepositAsset(ctx sdk.Context, caller string, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("asset deposits are operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if err := k.VerifyPayload(ctx, types.ActionAssetDeposit, caller, payload); err != nil {
			return err
		}

		var action types.AssetDepositAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}
		if action.AssetIndex < 0 || action.AssetIndex >= types.MaxAssets {
			return types.ErrInvalidAssetIndex.Wrapf("index %d", action.AssetIndex)
		}
		if occupant := fund.Assets[action.AssetIndex]; occupant != "" && occupant != action.Asset {
			return types.ErrAssetIndexAlreadyOccupied.Wrapf("slot %d holds %s", action.AssetIndex, occupant)
		}
		if action.Value.IsNegative() {
			return types.ErrDepositMustIncreaseTvl.Wrapf("value delta %s", action.Value.String())
		}

		fund.Assets[action.AssetIndex] = action.Asset
		if err := k.assets.Send(ctx, caller, types.FundAccount, action.Asset, action.Amount); err != nil {
			return err
		}

		k.mintShares(ctx, fund, caller, action.Value)
		k.setInvestedCapital(ctx, caller, k.GetInvestedCapital(ctx, caller).Add(action.Value))
		fund.TotalValue = fund.TotalValue.Add(action.Value)
		k.SetFund(ctx, fund)
		k.recordFundValue(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDepositedAsset,
				sdk.NewAttribute(types.AttributeKeyAsset, action.Asset),
				sdk.NewAttribute(types.AttributeKeyAssetIndex, strconv.Itoa(action.AssetIndex)),
				sdk.NewAttribute(types.AttributeKeyAmount, action.Amount.String()),
				sdk.NewAttribute(types.AttributeKeyValue, action.Value.String()),
			),
		)

		k.logger.Info("Asset deposited",
			"asset", action.Asset,
			"index", action.AssetIndex,
			"amount", action.Amount.String(),
			"value", action.Value.String(),
		)
		return nil
	})
}

// Deposit handles a user deposit. The action is bound to the fund nonce
// current at signing time, so a basket change between signing and execution
// invalidates the payload. supplied is the native value actually provided
// with the call.
func (k *Keeper) Deposit(ctx sdk.Context, caller string, supplied math.Int, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if k.registry.Halted(ctx) {
			return types.ErrHalted
		}
		if caller == k.registry.AdminAddress(ctx) {
			return types.ErrUnauthorized.Wrap("admin account cannot deposit")
		}
		if err := k.VerifyPayload(ctx, types.ActionDeposit, caller, payload); err != nil {
			return err
		}

		var action types.DepositAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}
		if action.FundNonce != fund.Nonce {
			return types.ErrInvalidDepositNonce.Wrapf("payload nonce %d, fund nonce %d", action.FundNonce, fund.Nonce)
		}
		if action.SharesValue.LT(fund.MinDepositValue) {
			return types.ErrDepositTooSmall.Wrapf("value %s, minimum %s", action.SharesValue.String(), fund.MinDepositValue.String())
		}

		totalFee := action.ProtocolFee.Add(action.BuybackFee)
		feeCap := supplied.Mul(k.registry.DepositFeeBps(ctx)).Quo(types.BpsDenominator)
		if totalFee.IsNegative() || totalFee.GT(feeCap) {
			return types.ErrUnexpectedFeeData.Wrapf("fees %s exceed cap %s", totalFee.String(), feeCap.String())
		}
		if totalFee.IsPositive() && action.FeeRecipient == "" {
			return types.ErrUnexpectedFeeData.Wrap("missing fee recipient")
		}
		if !action.Amount.Add(totalFee).Equal(supplied) {
			return types.ErrMismatchingDepositAmount.Wrapf(
				"declared %s + fees %s, supplied %s", action.Amount.String(), totalFee.String(), supplied.String(),
			)
		}

		if err := k.assets.Wrap(ctx, types.FundAccount, action.Amount); err != nil {
			return err
		}
		if err := k.executeSwaps(ctx, action.Swaps); err != nil {
			return err
		}

		k.mintShares(ctx, fund, caller, action.SharesValue)
		k.setInvestedCapital(ctx, caller, k.GetInvestedCapital(ctx, caller).Add(action.SharesValue))
		fund.TotalValue = fund.TotalValue.Add(action.SharesValue)
		k.SetFund(ctx, fund)
		k.recordFundValue(ctx, fund)

		if action.ProtocolFee.IsPositive() {
			k.pushOrCredit(ctx, k.registry.ProtocolFeeVault(ctx), action.ProtocolFee)
		}
		if action.BuybackFee.IsPositive() {
			k.pushOrCredit(ctx, action.FeeRecipient, action.BuybackFee)
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDeposited,
				sdk.NewAttribute(types.AttributeKeyAccount, caller),
				sdk.NewAttribute(types.AttributeKeyAmount, action.Amount.String()),
				sdk.NewAttribute(types.AttributeKeyShares, action.SharesValue.String()),
				sdk.NewAttribute(types.AttributeKeyProtocolFee, action.ProtocolFee.String()),
				sdk.NewAttribute(types.AttributeKeyBuybackFee, action.BuybackFee.String()),
			),
		)

		k.logger.Info("Deposit processed",
			"account", caller,
			"amount", action.Amount.String(),
			"shares", action.SharesValue.String(),
		)
		return nil
	})
}
