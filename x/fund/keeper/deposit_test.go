package keeper

import (
	"errors"
	"testing"

	"cosmossdk.io/math"

	"github.com/guru-fund/fundd/x/fund/types"
)

func TestInitialize(t *testing.T) {
	f, ctx := setupKeeper(t)
	if err := f.keeper.UpdateSigner(ctx, testOwner, testSignerKey); err != nil {
		t.Fatalf("update signer: %v", err)
	}

	// 10 native units (18 decimals) declared worth 10,000 valuation units
	// (6 decimals).
	supplied := math.NewIntWithDecimal(10, 18)
	declared := math.NewIntWithDecimal(10_000, 6)
	f.fundNative(types.FundAccount, supplied)

	err := f.keeper.Initialize(ctx, testOperator, supplied, declared, math.ZeroInt(), "", math.ZeroInt(), 3600)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	fund := f.keeper.GetFund(ctx)
	if fund == nil {
		t.Fatal("fund not stored")
	}
	if !fund.IsOpen {
		t.Error("fund not open after initialization")
	}
	if fund.Operator != testOperator {
		t.Errorf("operator = %q, want %q", fund.Operator, testOperator)
	}
	if fund.Assets[0] != testBase {
		t.Errorf("slot 0 = %q, want base asset %q", fund.Assets[0], testBase)
	}
	if !fund.TotalValue.Equal(declared) {
		t.Errorf("total value = %s, want %s", fund.TotalValue, declared)
	}
	if got := f.keeper.GetBalance(ctx, testOperator); !got.Equal(declared) {
		t.Errorf("operator shares = %s, want %s", got, declared)
	}
	if got := f.keeper.GetTotalSupply(ctx); !got.Equal(declared) {
		t.Errorf("total supply = %s, want %s", got, declared)
	}
	if got := f.keeper.GetInvestedCapital(ctx, testOperator); !got.Equal(declared) {
		t.Errorf("invested capital = %s, want %s", got, declared)
	}
	if got := f.assets.balance(types.FundAccount, testBase); !got.Equal(supplied) {
		t.Errorf("wrapped base balance = %s, want %s", got, supplied)
	}

	// A second initialization must fail.
	err = f.keeper.Initialize(ctx, testOperator, supplied, declared, math.ZeroInt(), "", math.ZeroInt(), 0)
	if !errors.Is(err, types.ErrFundAlreadyInitialized) {
		t.Errorf("second initialize error = %v, want ErrFundAlreadyInitialized", err)
	}
}

func TestInitialize_BuybackFee(t *testing.T) {
	f, ctx := setupKeeper(t)
	if err := f.keeper.UpdateSigner(ctx, testOwner, testSignerKey); err != nil {
		t.Fatalf("update signer: %v", err)
	}

	supplied := math.NewInt(1_000_000)
	fee := math.NewInt(50_000)
	f.fundNative(types.FundAccount, supplied)

	err := f.keeper.Initialize(ctx, testOperator, supplied, math.NewInt(1_000), fee, testUser2, math.ZeroInt(), 0)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if got := f.assets.balance(types.FundAccount, testBase); !got.Equal(supplied.Sub(fee)) {
		t.Errorf("wrapped balance = %s, want %s", got, supplied.Sub(fee))
	}
	if got := f.assets.nativeBalance(testUser2); !got.Equal(fee) {
		t.Errorf("fee recipient native = %s, want %s", got, fee)
	}
}

func TestInitialize_FeeValidation(t *testing.T) {
	f, ctx := setupKeeper(t)
	if err := f.keeper.UpdateSigner(ctx, testOwner, testSignerKey); err != nil {
		t.Fatalf("update signer: %v", err)
	}
	supplied := math.NewInt(1000)
	f.fundNative(types.FundAccount, supplied)

	tests := []struct {
		name      string
		fee       math.Int
		recipient string
	}{
		{"fee exceeds supplied", math.NewInt(1001), testUser2},
		{"negative fee", math.NewInt(-1), testUser2},
		{"missing recipient", math.NewInt(10), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.keeper.Initialize(ctx, testOperator, supplied, math.NewInt(100), tt.fee, tt.recipient, math.ZeroInt(), 0)
			if !errors.Is(err, types.ErrUnexpectedFeeData) {
				t.Errorf("error = %v, want ErrUnexpectedFeeData", err)
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	supplied := math.NewInt(1_000)
	action := types.DepositAction{
		FundNonce:    0,
		Amount:       math.NewInt(960),
		ProtocolFee:  math.NewInt(25),
		BuybackFee:   math.NewInt(15),
		FeeRecipient: testUser2,
		SharesValue:  math.NewInt(960),
	}
	payload := f.sign(t, ctx, types.ActionDeposit, testUser, action, 100)
	f.fundNative(types.FundAccount, supplied)

	if err := f.keeper.Deposit(ctx, testUser, supplied, payload); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if got := f.keeper.GetBalance(ctx, testUser); !got.Equal(action.SharesValue) {
		t.Errorf("user shares = %s, want %s", got, action.SharesValue)
	}
	if got := f.keeper.GetInvestedCapital(ctx, testUser); !got.Equal(action.SharesValue) {
		t.Errorf("invested capital = %s, want %s", got, action.SharesValue)
	}
	wantSupply := math.NewInt(10_000 + 960)
	if got := f.keeper.GetTotalSupply(ctx); !got.Equal(wantSupply) {
		t.Errorf("total supply = %s, want %s", got, wantSupply)
	}
	if got := f.keeper.GetFund(ctx).TotalValue; !got.Equal(wantSupply) {
		t.Errorf("total value = %s, want %s", got, wantSupply)
	}
	if got := f.assets.nativeBalance(testVault); !got.Equal(action.ProtocolFee) {
		t.Errorf("vault native = %s, want %s", got, action.ProtocolFee)
	}
	if got := f.assets.nativeBalance(testUser2); !got.Equal(action.BuybackFee) {
		t.Errorf("fee recipient native = %s, want %s", got, action.BuybackFee)
	}
	if got := f.keeper.GetAuthNonce(ctx, testUser); got != 1 {
		t.Errorf("auth nonce = %d, want 1", got)
	}
}

func TestDeposit_StaleFundNonce(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	action := types.DepositAction{
		FundNonce:   0,
		Amount:      math.NewInt(500),
		ProtocolFee: math.ZeroInt(),
		BuybackFee:  math.ZeroInt(),
		SharesValue: math.NewInt(500),
	}
	payload := f.sign(t, ctx, types.ActionDeposit, testUser, action, 100)

	// A rebalance between signing and execution bumps the fund nonce.
	f.assets.setBalance(types.FundAccount, "tokenA", math.NewInt(100))
	rebalance := types.RebalanceAction{
		AssetUpdates: []types.AssetUpdate{{Index: 1, Asset: "tokenA"}},
	}
	rbPayload := f.sign(t, ctx, types.ActionRebalance, testOperator, rebalance, 100)
	if err := f.keeper.Rebalance(ctx, testOperator, rbPayload); err != nil {
		t.Fatalf("rebalance: %v", err)
	}

	f.fundNative(types.FundAccount, math.NewInt(500))
	err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload)
	if !errors.Is(err, types.ErrInvalidDepositNonce) {
		t.Errorf("error = %v, want ErrInvalidDepositNonce", err)
	}

	// The failed deposit rolled back the caller's auth nonce.
	if got := f.keeper.GetAuthNonce(ctx, testUser); got != 0 {
		t.Errorf("auth nonce after failed deposit = %d, want 0", got)
	}
	if got := f.keeper.GetBalance(ctx, testUser); !got.IsZero() {
		t.Errorf("user shares after failed deposit = %s, want 0", got)
	}
}

func TestDeposit_Gates(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	mkAction := func() types.DepositAction {
		return types.DepositAction{
			FundNonce:   0,
			Amount:      math.NewInt(500),
			ProtocolFee: math.ZeroInt(),
			BuybackFee:  math.ZeroInt(),
			SharesValue: math.NewInt(500),
		}
	}

	t.Run("halted", func(t *testing.T) {
		f.registry.halted = true
		defer func() { f.registry.halted = false }()
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, mkAction(), 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrHalted) {
			t.Errorf("error = %v, want ErrHalted", err)
		}
	})

	t.Run("admin cannot deposit", func(t *testing.T) {
		payload := f.sign(t, ctx, types.ActionDeposit, testAdmin, mkAction(), 100)
		if err := f.keeper.Deposit(ctx, testAdmin, math.NewInt(500), payload); !errors.Is(err, types.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("below minimum value", func(t *testing.T) {
		if err := f.keeper.SetMinUserDepositValue(ctx, testOperator, math.NewInt(1_000)); err != nil {
			t.Fatalf("set minimum: %v", err)
		}
		defer func() {
			if err := f.keeper.SetMinUserDepositValue(ctx, testOperator, math.ZeroInt()); err != nil {
				t.Fatalf("reset minimum: %v", err)
			}
		}()
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, mkAction(), 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrDepositTooSmall) {
			t.Errorf("error = %v, want ErrDepositTooSmall", err)
		}
	})

	t.Run("fees exceed cap", func(t *testing.T) {
		action := mkAction()
		// Cap is 5% of supplied (500) = 25.
		action.ProtocolFee = math.NewInt(26)
		action.Amount = math.NewInt(474)
		action.FeeRecipient = testUser2
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, action, 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrUnexpectedFeeData) {
			t.Errorf("error = %v, want ErrUnexpectedFeeData", err)
		}
	})

	t.Run("missing fee recipient", func(t *testing.T) {
		action := mkAction()
		action.BuybackFee = math.NewInt(10)
		action.Amount = math.NewInt(490)
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, action, 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrUnexpectedFeeData) {
			t.Errorf("error = %v, want ErrUnexpectedFeeData", err)
		}
	})

	t.Run("amount plus fees must equal supplied", func(t *testing.T) {
		action := mkAction()
		action.Amount = math.NewInt(499)
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, action, 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrMismatchingDepositAmount) {
			t.Errorf("error = %v, want ErrMismatchingDepositAmount", err)
		}
	})

	t.Run("fund not open", func(t *testing.T) {
		closePayload := f.sign(t, ctx, types.ActionClose, testOperator, types.CloseAction{}, 100)
		if err := f.keeper.Close(ctx, testOperator, closePayload); err != nil {
			t.Fatalf("close: %v", err)
		}
		payload := f.sign(t, ctx, types.ActionDeposit, testUser, mkAction(), 100)
		if err := f.keeper.Deposit(ctx, testUser, math.NewInt(500), payload); !errors.Is(err, types.ErrFundNotOpen) {
			t.Errorf("error = %v, want ErrFundNotOpen", err)
		}
	})
}

func TestDepositAsset(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)
	f.assets.setBalance(testOperator, "tokenA", math.NewInt(5_000))

	action := types.AssetDepositAction{
		AssetIndex: 1,
		Asset:      "tokenA",
		Amount:     math.NewInt(5_000),
		Value:      math.NewInt(2_500),
	}
	payload := f.sign(t, ctx, types.ActionAssetDeposit, testOperator, action, 100)
	if err := f.keeper.DepositAsset(ctx, testOperator, payload); err != nil {
		t.Fatalf("deposit asset: %v", err)
	}

	fund := f.keeper.GetFund(ctx)
	if fund.Assets[1] != "tokenA" {
		t.Errorf("slot 1 = %q, want tokenA", fund.Assets[1])
	}
	if got := f.assets.balance(types.FundAccount, "tokenA"); !got.Equal(action.Amount) {
		t.Errorf("fund tokenA balance = %s, want %s", got, action.Amount)
	}
	wantShares := math.NewInt(10_000 + 2_500)
	if got := f.keeper.GetBalance(ctx, testOperator); !got.Equal(wantShares) {
		t.Errorf("operator shares = %s, want %s", got, wantShares)
	}
	if !fund.TotalValue.Equal(wantShares) {
		t.Errorf("total value = %s, want %s", fund.TotalValue, wantShares)
	}
}

func TestDepositAsset_Rejections(t *testing.T) {
	f, ctx := setupKeeper(t)
	f.initFund(t, ctx, math.NewInt(10_000), math.NewInt(10_000), 0)

	tests := []struct {
		name    string
		caller  string
		action  types.AssetDepositAction
		wantErr error
	}{
		{
			"not operator",
			testUser,
			types.AssetDepositAction{AssetIndex: 1, Asset: "tokenA", Amount: math.NewInt(1), Value: math.NewInt(1)},
			types.ErrUnauthorized,
		},
		{
			"slot occupied by different asset",
			testOperator,
			types.AssetDepositAction{AssetIndex: 0, Asset: "tokenA", Amount: math.NewInt(1), Value: math.NewInt(1)},
			types.ErrAssetIndexAlreadyOccupied,
		},
		{
			"negative value delta",
			testOperator,
			types.AssetDepositAction{AssetIndex: 1, Asset: "tokenA", Amount: math.NewInt(1), Value: math.NewInt(-1)},
			types.ErrDepositMustIncreaseTvl,
		},
		{
			"index out of range",
			testOperator,
			types.AssetDepositAction{AssetIndex: types.MaxAssets, Asset: "tokenA", Amount: math.NewInt(1), Value: math.NewInt(1)},
			types.ErrInvalidAssetIndex,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := f.sign(t, ctx, types.ActionAssetDeposit, tt.caller, tt.action, 100)
			err := f.keeper.DepositAsset(ctx, tt.caller, payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
