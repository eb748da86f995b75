package keeper

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

const (
	testOwner    = "owner"
	testOperator = "operator"
	testAdmin    = "admin"
	testVault    = "fee_vault"
	testBurn     = "burn"
	testBase     = "wguru"
	testUser     = "alice"
	testUser2    = "bob"
)

var testGenesisTime = time.Unix(1_700_000_000, 0).UTC()

// mockRegistry is an in-memory RegistryKeeper
type mockRegistry struct {
	halted        bool
	depositFeeBps math.Int
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{depositFeeBps: math.NewInt(500)}
}

func (m *mockRegistry) BaseDenom(ctx sdk.Context) string        { return testBase }
func (m *mockRegistry) ProtocolFeeVault(ctx sdk.Context) string { return testVault }
func (m *mockRegistry) BurnAddress(ctx sdk.Context) string      { return testBurn }
func (m *mockRegistry) AdminAddress(ctx sdk.Context) string     { return testAdmin }
func (m *mockRegistry) Halted(ctx sdk.Context) bool             { return m.halted }
func (m *mockRegistry) DepositFeeBps(ctx sdk.Context) math.Int  { return m.depositFeeBps }

// mockAssets is an in-memory AssetKeeper. Balances live in plain maps, so
// they are NOT rolled back by a branched context; tests that exercise
// rollback assert on keeper state, not on asset balances.
type mockAssets struct {
	balances   map[string]map[string]math.Int
	native     map[string]math.Int
	failNative map[string]bool
}

func newMockAssets() *mockAssets {
	return &mockAssets{
		balances:   make(map[string]map[string]math.Int),
		native:     make(map[string]math.Int),
		failNative: make(map[string]bool),
	}
}

func (m *mockAssets) balance(addr, denom string) math.Int {
	if acct, ok := m.balances[addr]; ok {
		if v, ok := acct[denom]; ok {
			return v
		}
	}
	return math.ZeroInt()
}

func (m *mockAssets) setBalance(addr, denom string, amount math.Int) {
	if m.balances[addr] == nil {
		m.balances[addr] = make(map[string]math.Int)
	}
	m.balances[addr][denom] = amount
}

func (m *mockAssets) nativeBalance(addr string) math.Int {
	if v, ok := m.native[addr]; ok {
		return v
	}
	return math.ZeroInt()
}

func (m *mockAssets) GetBalance(ctx sdk.Context, addr, denom string) math.Int {
	return m.balance(addr, denom)
}

func (m *mockAssets) Send(ctx sdk.Context, from, to, denom string, amount math.Int) error {
	have := m.balance(from, denom)
	if have.LT(amount) {
		return errors.New("insufficient asset balance")
	}
	m.setBalance(from, denom, have.Sub(amount))
	m.setBalance(to, denom, m.balance(to, denom).Add(amount))
	return nil
}

func (m *mockAssets) SendNative(ctx sdk.Context, from, to string, amount math.Int) error {
	if m.failNative[to] {
		return errors.New("recipient rejects native transfer")
	}
	have := m.nativeBalance(from)
	if have.LT(amount) {
		return errors.New("insufficient native balance")
	}
	m.native[from] = have.Sub(amount)
	m.native[to] = m.nativeBalance(to).Add(amount)
	return nil
}

func (m *mockAssets) Wrap(ctx sdk.Context, addr string, amount math.Int) error {
	have := m.nativeBalance(addr)
	if have.LT(amount) {
		return errors.New("insufficient native balance to wrap")
	}
	m.native[addr] = have.Sub(amount)
	m.setBalance(addr, testBase, m.balance(addr, testBase).Add(amount))
	return nil
}

func (m *mockAssets) Unwrap(ctx sdk.Context, addr string, amount math.Int) error {
	have := m.balance(addr, testBase)
	if have.LT(amount) {
		return errors.New("insufficient base balance to unwrap")
	}
	m.setBalance(addr, testBase, have.Sub(amount))
	m.native[addr] = m.nativeBalance(addr).Add(amount)
	return nil
}

// fakeSwapExecutor settles against the mock asset ledger: debits the full
// declared input and credits a configured output (1:1 when unconfigured).
type fakeSwapExecutor struct {
	assets  *mockAssets
	outputs map[string]math.Int // keyed by output denom
	err     error
}

func (f *fakeSwapExecutor) Execute(ctx sdk.Context, fundAddr string, swap types.Swap) error {
	if f.err != nil {
		return f.err
	}
	if err := f.assets.Send(ctx, fundAddr, "router", swap.TokenIn, swap.AmountIn); err != nil {
		return err
	}
	out := swap.AmountIn
	if v, ok := f.outputs[swap.TokenOut]; ok {
		out = v
	}
	f.assets.setBalance(fundAddr, swap.TokenOut, f.assets.balance(fundAddr, swap.TokenOut).Add(out))
	return nil
}

// stubVerifier accepts a signature that is the signer's key followed by the
// digest, which lets tests mint valid signatures deterministically.
type stubVerifier struct{}

func (stubVerifier) Verify(signer, digest, signature []byte) bool {
	return bytes.Equal(signature, stubSignature(signer, digest))
}

func stubSignature(signer, digest []byte) []byte {
	return append(append([]byte{}, signer...), digest...)
}

var testSignerKey = []byte("test-signer-pubkey")

// fixture bundles the keeper under test with its mock collaborators.
type fixture struct {
	keeper   *Keeper
	registry *mockRegistry
	assets   *mockAssets
	swapper  *fakeSwapExecutor
}

// setupKeeper creates a fund keeper backed by an in-memory commit multistore.
func setupKeeper(tb testing.TB) (*fixture, sdk.Context) {
	tb.Helper()

	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		tb.Fatalf("failed to load store: %v", err)
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{}, false, log.NewNopLogger()).
		WithBlockHeight(1).
		WithBlockTime(testGenesisTime)

	registry := newMockRegistry()
	assets := newMockAssets()
	swapper := &fakeSwapExecutor{assets: assets, outputs: make(map[string]math.Int)}

	k := NewKeeper(storeKey, registry, assets, swapper, stubVerifier{}, testOwner, log.NewNopLogger())

	return &fixture{
		keeper:   k,
		registry: registry,
		assets:   assets,
		swapper:  swapper,
	}, ctx
}

// sign encodes an action body into a signed payload valid for the account's
// current authorization nonce.
func (f *fixture) sign(tb testing.TB, ctx sdk.Context, action types.ActionType, account string, body any, expiresAt int64) *types.SignedPayload {
	tb.Helper()

	data, err := types.EncodeAction(body)
	if err != nil {
		tb.Fatalf("encode action: %v", err)
	}
	payload := &types.SignedPayload{Data: data, ExpiresAt: expiresAt}
	nonce := f.keeper.GetAuthNonce(ctx, account)
	digest := payload.Digest(action, nonce, account)
	payload.Signature = stubSignature(testSignerKey, digest)
	return payload
}

// initFund registers the signer, funds the fund account with native units,
// and runs Initialize with the given parameters.
func (f *fixture) initFund(tb testing.TB, ctx sdk.Context, supplied, declaredValue math.Int, cooldown int64) {
	tb.Helper()

	if err := f.keeper.UpdateSigner(ctx, testOwner, testSignerKey); err != nil {
		tb.Fatalf("update signer: %v", err)
	}
	f.assets.native[types.FundAccount] = f.assets.nativeBalance(types.FundAccount).Add(supplied)
	err := f.keeper.Initialize(ctx, testOperator, supplied, declaredValue, math.ZeroInt(), "", math.ZeroInt(), cooldown)
	if err != nil {
		tb.Fatalf("initialize fund: %v", err)
	}
}

// fundNative credits native units to an address on the mock ledger.
func (f *fixture) fundNative(addr string, amount math.Int) {
	f.assets.native[addr] = f.assets.nativeBalance(addr).Add(amount)
}

func advanceTime(ctx sdk.Context, seconds int64) sdk.Context {
	return ctx.WithBlockTime(ctx.BlockTime().Add(time.Duration(seconds) * time.Second))
}
