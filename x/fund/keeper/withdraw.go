package keeper

import (
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// Withdraw burns the declared share amount, releases the declared invested
// capital portion, liquidates into the base asset via the declared swaps,
// and settles. When gross PnL is non-positive only the net amount is paid
// out; when positive, the protocol fee goes to the vault and the performance
// fee to the operator. After closure withdrawals stay open until the grace
// period ends.
func (k *Keeper) Withdraw(ctx sdk.Context, caller string, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if !fund.IsOpen && ctx.BlockTime().Unix() > fund.GracePeriodEnd {
			return types.ErrGracePeriodEnded.Wrapf("ended at %d", fund.GracePeriodEnd)
		}
		if err := k.VerifyPayload(ctx, types.ActionWithdraw, caller, payload); err != nil {
			return err
		}

		var action types.WithdrawAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}

		if err := k.burnShares(ctx, caller, action.Shares); err != nil {
			return err
		}

		capital := k.GetInvestedCapital(ctx, caller)
		released := action.CapitalPortion
		if released.GT(capital) {
			released = capital
		}
		k.setInvestedCapital(ctx, caller, capital.Sub(released))

		if err := k.executeSwaps(ctx, action.Swaps); err != nil {
			return err
		}

		// Settlement: fees are only unwrapped and paid on a profitable exit.
		paidOut := action.NetOutput
		protocolFee := math.ZeroInt()
		guruFee := math.ZeroInt()
		if action.GrossPnl.IsPositive() {
			protocolFee = action.ProtocolFee
			guruFee = action.GuruFee
			paidOut = paidOut.Add(protocolFee).Add(guruFee)
		}
		if err := k.assets.Unwrap(ctx, types.FundAccount, paidOut); err != nil {
			return err
		}
		if protocolFee.IsPositive() {
			k.pushOrCredit(ctx, k.registry.ProtocolFeeVault(ctx), protocolFee)
		}
		if guruFee.IsPositive() {
			k.pushOrCredit(ctx, fund.Operator, guruFee)
		}
		k.pushOrCredit(ctx, caller, action.NetOutput)

		fund.TotalValue = fund.TotalValue.Sub(paidOut)
		if fund.TotalValue.IsNegative() {
			fund.TotalValue = math.ZeroInt()
		}
		k.SetFund(ctx, fund)
		k.recordFundValue(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeWithdrawn,
				sdk.NewAttribute(types.AttributeKeyAccount, caller),
				sdk.NewAttribute(types.AttributeKeyShares, action.Shares.String()),
				sdk.NewAttribute(types.AttributeKeyNetOutput, action.NetOutput.String()),
				sdk.NewAttribute(types.AttributeKeyProtocolFee, protocolFee.String()),
				sdk.NewAttribute(types.AttributeKeyGuruFee, guruFee.String()),
				sdk.NewAttribute(types.AttributeKeyGrossPnl, action.GrossPnl.String()),
			),
		)

		k.logger.Info("Withdrawal processed",
			"account", caller,
			"shares", action.Shares.String(),
			"net_output", action.NetOutput.String(),
			"gross_pnl", action.GrossPnl.String(),
		)
		return nil
	})
}

// Close flips the fund closed, opens the fixed-duration grace window, and
// liquidates remaining assets via the declared swaps. Operator-only.
func (k *Keeper) Close(ctx sdk.Context, caller string, payload *types.SignedPayload) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("close is operator-only")
		}
		if !fund.IsOpen {
			return types.ErrFundNotOpen
		}
		if err := k.VerifyPayload(ctx, types.ActionClose, caller, payload); err != nil {
			return err
		}

		var action types.CloseAction
		if err := types.DecodeAction(payload.Data, &action); err != nil {
			return err
		}
		if err := k.executeSwaps(ctx, action.Swaps); err != nil {
			return err
		}

		fund.IsOpen = false
		fund.GracePeriodEnd = ctx.BlockTime().Unix() + types.GracePeriodSeconds
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeClosed,
				sdk.NewAttribute(types.AttributeKeyGracePeriodEnd, strconv.FormatInt(fund.GracePeriodEnd, 10)),
			),
		)

		k.logger.Info("Fund closed", "grace_period_end", fund.GracePeriodEnd)
		return nil
	})
}

// ExtendGracePeriod pushes the post-closure withdrawal window further out.
// Protocol-owner only.
func (k *Keeper) ExtendGracePeriod(ctx sdk.Context, caller string, newEnd int64) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != k.authority {
			return types.ErrUnauthorized.Wrap("grace period extension is owner-only")
		}
		if fund.IsOpen {
			return types.ErrFundNotOpen.Wrap("fund is still open")
		}
		if newEnd <= fund.GracePeriodEnd {
			return types.ErrInvalidAction.Wrapf("new end %d not after %d", newEnd, fund.GracePeriodEnd)
		}

		fund.GracePeriodEnd = newEnd
		k.SetFund(ctx, fund)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeGracePeriodExtended,
				sdk.NewAttribute(types.AttributeKeyGracePeriodEnd, strconv.FormatInt(newEnd, 10)),
			),
		)

		k.logger.Info("Grace period extended", "grace_period_end", newEnd)
		return nil
	})
}

// ClaimAbandonedFunds sweeps the remaining base-asset balance to the burn
// address once the grace period has ended. Protocol-owner only.
func (k *Keeper) ClaimAbandonedFunds(ctx sdk.Context, caller string) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != k.authority {
			return types.ErrUnauthorized.Wrap("abandoned funds claim is owner-only")
		}
		if fund.IsOpen {
			return types.ErrFundNotOpen.Wrap("fund is still open")
		}
		if ctx.BlockTime().Unix() <= fund.GracePeriodEnd {
			return types.ErrGracePeriodNotEnded.Wrapf("ends at %d", fund.GracePeriodEnd)
		}

		base := k.registry.BaseDenom(ctx)
		burn := k.registry.BurnAddress(ctx)
		remaining := k.assets.GetBalance(ctx, types.FundAccount, base)
		if remaining.IsPositive() {
			if err := k.assets.Send(ctx, types.FundAccount, burn, base, remaining); err != nil {
				return err
			}
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeAbandonedFundsClaimed,
				sdk.NewAttribute(types.AttributeKeyAmount, remaining.String()),
				sdk.NewAttribute(types.AttributeKeyBurnAddress, burn),
			),
		)

		k.logger.Info("Abandoned funds claimed", "amount", remaining.String(), "burn_address", burn)
		return nil
	})
}
