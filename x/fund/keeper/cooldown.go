package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// applyLock appends a locked tranche to the account's cooldown queue.
func (k *Keeper) applyLock(ctx sdk.Context, account string, amount math.Int, unlockTime int64) {
	if !amount.IsPositive() {
		return
	}
	queue := k.GetCooldownQueue(ctx, account)
	queue.Append(unlockTime, amount)
	k.setCooldownQueue(ctx, account, queue)
}

// GetLockedBalance returns the account's currently locked share amount and
// persists the compaction discovered during the scan.
func (k *Keeper) GetLockedBalance(ctx sdk.Context, account string) math.Int {
	queue := k.GetCooldownQueue(ctx, account)
	if queue.Len() == 0 {
		return math.ZeroInt()
	}
	locked, newOffset := queue.LockedBalance(ctx.BlockTime().Unix())
	queue.Compact(newOffset)
	k.setCooldownQueue(ctx, account, queue)
	return locked
}

// checkUnlocked rejects a balance decrease that would dip into locked shares.
func (k *Keeper) checkUnlocked(ctx sdk.Context, account string, amount math.Int) error {
	balance := k.GetBalance(ctx, account)
	locked := k.GetLockedBalance(ctx, account)
	if balance.Sub(locked).LT(amount) {
		return types.ErrSharesLocked.Wrapf(
			"account %s: balance %s, locked %s, requested %s",
			account, balance.String(), locked.String(), amount.String(),
		)
	}
	return nil
}
