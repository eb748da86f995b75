package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// mintShares credits newly-minted shares and locks them for the fund's
// deposit cooldown. Mints to the designated fee recipient (the admin
// account) are exempt from the lock.
func (k *Keeper) mintShares(ctx sdk.Context, fund *types.Fund, to string, amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	k.setBalance(ctx, to, k.GetBalance(ctx, to).Add(amount))
	k.setTotalSupply(ctx, k.GetTotalSupply(ctx).Add(amount))

	if to == k.registry.AdminAddress(ctx) {
		return
	}
	if fund.MinDepositCooldown > 0 {
		k.applyLock(ctx, to, amount, ctx.BlockTime().Unix()+fund.MinDepositCooldown)
	}
}

// burnShares removes shares from an account, rejecting burns that would dip
// into locked tranches.
func (k *Keeper) burnShares(ctx sdk.Context, account string, amount math.Int) error {
	balance := k.GetBalance(ctx, account)
	if !amount.IsPositive() || amount.GT(balance) {
		return types.ErrInvalidTransferAmount.Wrapf("burn %s, balance %s", amount.String(), balance.String())
	}
	if err := k.checkUnlocked(ctx, account, amount); err != nil {
		return err
	}
	k.setBalance(ctx, account, balance.Sub(amount))
	k.setTotalSupply(ctx, k.GetTotalSupply(ctx).Sub(amount))
	return nil
}

// TransferShares moves shares together with a proportional slice of the
// sender's invested capital:
//
//	capitalMoved = amount * investedCapital[from] / balanceOf(from)
//
// with truncating division. Direct unrestricted transfers are disabled; this
// capital-aware path is the only permitted share movement between accounts.
func (k *Keeper) TransferShares(ctx sdk.Context, from, to string, amount math.Int) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}

		fromBalance := k.GetBalance(ctx, from)
		if !amount.IsPositive() || amount.GT(fromBalance) {
			return types.ErrInvalidTransferAmount.Wrapf("transfer %s, balance %s", amount.String(), fromBalance.String())
		}
		if err := k.checkUnlocked(ctx, from, amount); err != nil {
			return err
		}

		fromCapital := k.GetInvestedCapital(ctx, from)
		capitalMoved := amount.Mul(fromCapital).Quo(fromBalance)

		k.setBalance(ctx, from, fromBalance.Sub(amount))
		k.setBalance(ctx, to, k.GetBalance(ctx, to).Add(amount))
		k.setInvestedCapital(ctx, from, fromCapital.Sub(capitalMoved))
		k.setInvestedCapital(ctx, to, k.GetInvestedCapital(ctx, to).Add(capitalMoved))

		// Received shares re-enter cooldown like a fresh mint.
		if to != k.registry.AdminAddress(ctx) && fund.MinDepositCooldown > 0 {
			k.applyLock(ctx, to, amount, ctx.BlockTime().Unix()+fund.MinDepositCooldown)
		}

		k.logger.Debug("Shares transferred",
			"from", from,
			"to", to,
			"amount", amount.String(),
			"capital_moved", capitalMoved.String(),
		)
		return nil
	})
}

// TransferOwnership moves the operator role and the operator's own share
// balance to a new operator. Operator-only.
func (k *Keeper) TransferOwnership(ctx sdk.Context, caller, newOperator string) error {
	return k.runAtomic(ctx, func(ctx sdk.Context) error {
		fund := k.GetFund(ctx)
		if fund == nil {
			return types.ErrFundNotFound
		}
		if caller != fund.Operator {
			return types.ErrUnauthorized.Wrap("ownership transfer is operator-only")
		}

		balance := k.GetBalance(ctx, caller)
		if balance.IsPositive() {
			if err := k.TransferShares(ctx, caller, newOperator, balance); err != nil {
				return err
			}
		}
		fund.Operator = newOperator
		k.SetFund(ctx, fund)

		k.logger.Info("Fund ownership transferred", "from", caller, "to", newOperator)
		return nil
	})
}
