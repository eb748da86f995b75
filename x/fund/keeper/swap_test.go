package keeper

import (
	"errors"
	"testing"

	"cosmossdk.io/math"

	"github.com/guru-fund/fundd/x/fund/types"
)

func TestExecuteSwap_BooksRealizedDeltas(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)
	f.swapper.outputs["tokenA"] = math.NewInt(3_000)

	swap := types.Swap{
		TokenIn:  testBase,
		TokenOut: "tokenA",
		AmountIn: math.NewInt(2_000),
		Fee:      math.ZeroInt(),
	}
	deltaIn, deltaOut, err := f.keeper.executeSwap(ctx, swap)
	if err != nil {
		t.Fatalf("execute swap: %v", err)
	}
	if !deltaIn.Equal(math.NewInt(-2_000)) {
		t.Errorf("delta in = %s, want -2000", deltaIn)
	}
	if !deltaOut.Equal(math.NewInt(3_000)) {
		t.Errorf("delta out = %s, want 3000", deltaOut)
	}
	if got := f.assets.balance(types.FundAccount, testBase); !got.Equal(math.NewInt(8_000)) {
		t.Errorf("fund base = %s, want 8000", got)
	}
	if got := f.assets.balance(types.FundAccount, "tokenA"); !got.Equal(math.NewInt(3_000)) {
		t.Errorf("fund tokenA = %s, want 3000", got)
	}
}

func TestExecuteSwap_InsufficientBalance(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	swap := types.Swap{
		TokenIn:  testBase,
		TokenOut: "tokenA",
		AmountIn: math.NewInt(10_001),
		Fee:      math.ZeroInt(),
	}
	_, _, err := f.keeper.executeSwap(ctx, swap)
	if !errors.Is(err, types.ErrInsufficientAssetBalance) {
		t.Errorf("error = %v, want ErrInsufficientAssetBalance", err)
	}
}

func TestExecuteSwap_ForwardsDeclaredFee(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	swap := types.Swap{
		TokenIn:  testBase,
		TokenOut: "tokenA",
		AmountIn: math.NewInt(2_000),
		Fee:      math.NewInt(25),
	}
	if _, _, err := f.keeper.executeSwap(ctx, swap); err != nil {
		t.Fatalf("execute swap: %v", err)
	}
	if got := f.assets.balance(testVault, testBase); !got.Equal(math.NewInt(25)) {
		t.Errorf("vault base = %s, want 25", got)
	}
}

func TestSingleSwap(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)
	f.swapper.outputs["tokenA"] = math.NewInt(1_500)

	action := types.SingleSwapAction{
		Swap: types.Swap{
			TokenIn:  testBase,
			TokenOut: "tokenA",
			AmountIn: math.NewInt(1_000),
			Fee:      math.ZeroInt(),
		},
		AssetUpdates: []types.AssetUpdate{{Index: 1, Asset: "tokenA"}},
	}
	payload := f.sign(t, ctx, types.ActionSingleSwap, testOperator, action, 100)
	if err := f.keeper.SingleSwap(ctx, testOperator, payload); err != nil {
		t.Fatalf("single swap: %v", err)
	}

	fund := f.keeper.GetFund(ctx)
	if fund.Nonce != 1 {
		t.Errorf("fund nonce = %d, want 1", fund.Nonce)
	}
	if fund.Assets[1] != "tokenA" {
		t.Errorf("slot 1 = %q, want tokenA", fund.Assets[1])
	}
	if got := f.assets.balance(types.FundAccount, "tokenA"); !got.Equal(math.NewInt(1_500)) {
		t.Errorf("fund tokenA = %s, want 1500", got)
	}
}

func TestSingleSwap_RequiresBaseLeg(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)
	f.assets.setBalance(types.FundAccount, "tokenA", math.NewInt(1_000))

	action := types.SingleSwapAction{
		Swap: types.Swap{
			TokenIn:  "tokenA",
			TokenOut: "tokenB",
			AmountIn: math.NewInt(500),
			Fee:      math.ZeroInt(),
		},
	}
	payload := f.sign(t, ctx, types.ActionSingleSwap, testOperator, action, 100)
	err := f.keeper.SingleSwap(ctx, testOperator, payload)
	if !errors.Is(err, types.ErrInvalidSwapDirection) {
		t.Errorf("error = %v, want ErrInvalidSwapDirection", err)
	}
	if got := f.keeper.GetFund(ctx).Nonce; got != 0 {
		t.Errorf("fund nonce after failed swap = %d, want 0", got)
	}
}

func TestSingleSwap_OperatorOnly(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	action := types.SingleSwapAction{
		Swap: types.Swap{TokenIn: testBase, TokenOut: "tokenA", AmountIn: math.NewInt(1), Fee: math.ZeroInt()},
	}
	payload := f.sign(t, ctx, types.ActionSingleSwap, testUser, action, 100)
	if err := f.keeper.SingleSwap(ctx, testUser, payload); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRebalance(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)
	f.swapper.outputs["tokenA"] = math.NewInt(4_000)

	action := types.RebalanceAction{
		AssetUpdates: []types.AssetUpdate{{Index: 1, Asset: "tokenA"}},
		Swaps: []types.Swap{
			{TokenIn: testBase, TokenOut: "tokenA", AmountIn: math.NewInt(3_000), Fee: math.ZeroInt()},
		},
	}
	payload := f.sign(t, ctx, types.ActionRebalance, testOperator, action, 100)
	if err := f.keeper.Rebalance(ctx, testOperator, payload); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	fund := f.keeper.GetFund(ctx)
	if fund.Nonce != 1 {
		t.Errorf("fund nonce = %d, want 1", fund.Nonce)
	}
	if fund.Assets[1] != "tokenA" {
		t.Errorf("slot 1 = %q, want tokenA", fund.Assets[1])
	}
	if got := f.assets.balance(types.FundAccount, "tokenA"); !got.Equal(math.NewInt(4_000)) {
		t.Errorf("fund tokenA = %s, want 4000", got)
	}

	t.Run("failed swap rolls back slot updates", func(t *testing.T) {
		action := types.RebalanceAction{
			AssetUpdates: []types.AssetUpdate{{Index: 2, Asset: "tokenB"}},
			Swaps: []types.Swap{
				{TokenIn: "tokenB", TokenOut: testBase, AmountIn: math.NewInt(1), Fee: math.ZeroInt()},
			},
		}
		payload := f.sign(t, ctx, types.ActionRebalance, testOperator, action, 100)
		err := f.keeper.Rebalance(ctx, testOperator, payload)
		if !errors.Is(err, types.ErrInsufficientAssetBalance) {
			t.Fatalf("error = %v, want ErrInsufficientAssetBalance", err)
		}
		fund := f.keeper.GetFund(ctx)
		if fund.Assets[2] != "" {
			t.Errorf("slot 2 = %q, want empty after rollback", fund.Assets[2])
		}
		if fund.Nonce != 1 {
			t.Errorf("fund nonce = %d, want 1 after rollback", fund.Nonce)
		}
	})
}
