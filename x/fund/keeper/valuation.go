package keeper

import (
	"encoding/json"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// valueHistoryKey formats the timestamp fixed-width so iteration order is
// chronological.
func valueHistoryKey(timestamp int64) []byte {
	return append(ValueHistoryKeyPrefix, []byte(fmt.Sprintf("%020d", timestamp))...)
}

// recordFundValue appends a fund-value observation for off-chain consumers.
func (k *Keeper) recordFundValue(ctx sdk.Context, fund *types.Fund) {
	record := &types.FundValueRecord{
		Height:      ctx.BlockHeight(),
		Timestamp:   ctx.BlockTime().Unix(),
		TotalValue:  fund.TotalValue,
		TotalShares: k.GetTotalSupply(ctx),
	}
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(record)
	store.Set(valueHistoryKey(record.Timestamp), bz)
}

// GetValueHistory returns fund-value observations within [fromTime, toTime];
// zero bounds are open-ended.
func (k *Keeper) GetValueHistory(ctx sdk.Context, fromTime, toTime int64) []*types.FundValueRecord {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, ValueHistoryKeyPrefix)
	defer iterator.Close()

	var history []*types.FundValueRecord
	for ; iterator.Valid(); iterator.Next() {
		var record types.FundValueRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		if (fromTime == 0 || record.Timestamp >= fromTime) && (toTime == 0 || record.Timestamp <= toTime) {
			history = append(history, &record)
		}
	}
	return history
}
