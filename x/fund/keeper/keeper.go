package keeper

import (
	"encoding/hex"
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// Store key prefixes
var (
	FundKey                  = []byte{0x01}
	BalanceKeyPrefix         = []byte{0x02}
	TotalSupplyKey           = []byte{0x03}
	InvestedCapitalKeyPrefix = []byte{0x04}
	AuthNonceKeyPrefix       = []byte{0x05}
	CooldownKeyPrefix        = []byte{0x06}
	CreditKeyPrefix          = []byte{0x07}
	SignerKey                = []byte{0x08}
	ValueHistoryKeyPrefix    = []byte{0x09}
)

// RegistryKeeper defines the expected interface of the factory/registry
// collaborator. All of it is consumed read-only.
type RegistryKeeper interface {
	BaseDenom(ctx sdk.Context) string
	ProtocolFeeVault(ctx sdk.Context) string
	BurnAddress(ctx sdk.Context) string
	AdminAddress(ctx sdk.Context) string
	Halted(ctx sdk.Context) bool
	DepositFeeBps(ctx sdk.Context) math.Int
}

// AssetKeeper defines the expected interface for moving underlying asset and
// native currency balances. Swap settlement measures realized deltas through
// GetBalance.
type AssetKeeper interface {
	GetBalance(ctx sdk.Context, addr, denom string) math.Int
	Send(ctx sdk.Context, from, to, denom string, amount math.Int) error
	SendNative(ctx sdk.Context, from, to string, amount math.Int) error
	Wrap(ctx sdk.Context, addr string, amount math.Int) error
	Unwrap(ctx sdk.Context, addr string, amount math.Int) error
}

// SwapExecutor invokes an external exchange router with caller-supplied call
// data. It either succeeds or returns the router's failure; the keeper does
// all balance-delta bookkeeping around the call.
type SwapExecutor interface {
	Execute(ctx sdk.Context, fundAddr string, swap types.Swap) error
}

// PayloadVerifier checks a signature over a canonical digest. Pluggable so
// tests can substitute a deterministic stub for the secp256k1 default.
type PayloadVerifier interface {
	Verify(signer, digest, signature []byte) bool
}

// Keeper manages the fund module state
type Keeper struct {
	storeKey  storetypes.StoreKey
	registry  RegistryKeeper
	assets    AssetKeeper
	swapper   SwapExecutor
	verifier  PayloadVerifier
	authority string // protocol owner
	logger    log.Logger
}

// NewKeeper creates a new fund keeper
func NewKeeper(
	storeKey storetypes.StoreKey,
	registry RegistryKeeper,
	assets AssetKeeper,
	swapper SwapExecutor,
	verifier PayloadVerifier,
	authority string,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		storeKey:  storeKey,
		registry:  registry,
		assets:    assets,
		swapper:   swapper,
		verifier:  verifier,
		authority: authority,
		logger:    logger.With("module", "x/"+types.ModuleName),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the protocol owner address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// runAtomic executes fn against a branched context and commits only on
// success. Every mutation of a failed operation rolls back together,
// including authorization nonce consumption.
func (k *Keeper) runAtomic(ctx sdk.Context, fn func(sdk.Context) error) error {
	cacheCtx, write := ctx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

// ============ Fund Operations ============

// SetFund saves the fund singleton to the store
func (k *Keeper) SetFund(ctx sdk.Context, fund *types.Fund) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(fund)
	store.Set(FundKey, bz)
}

// GetFund retrieves the fund singleton, or nil before initialization
func (k *Keeper) GetFund(ctx sdk.Context) *types.Fund {
	store := k.GetStore(ctx)
	bz := store.Get(FundKey)
	if bz == nil {
		return nil
	}
	var fund types.Fund
	if err := json.Unmarshal(bz, &fund); err != nil {
		return nil
	}
	return &fund
}

// ============ Share Ledger ============

func balanceKey(account string) []byte {
	return append(BalanceKeyPrefix, []byte(account)...)
}

// GetBalance returns an account's share balance
func (k *Keeper) GetBalance(ctx sdk.Context, account string) math.Int {
	return k.getInt(ctx, balanceKey(account))
}

func (k *Keeper) setBalance(ctx sdk.Context, account string, amount math.Int) {
	k.setInt(ctx, balanceKey(account), amount)
}

// GetTotalSupply returns the total share supply
func (k *Keeper) GetTotalSupply(ctx sdk.Context) math.Int {
	return k.getInt(ctx, TotalSupplyKey)
}

func (k *Keeper) setTotalSupply(ctx sdk.Context, amount math.Int) {
	k.setInt(ctx, TotalSupplyKey, amount)
}

// ============ Invested Capital Ledger ============

func investedCapitalKey(account string) []byte {
	return append(InvestedCapitalKeyPrefix, []byte(account)...)
}

// GetInvestedCapital returns the running USD-denominated net capital an
// account has contributed.
func (k *Keeper) GetInvestedCapital(ctx sdk.Context, account string) math.Int {
	return k.getInt(ctx, investedCapitalKey(account))
}

func (k *Keeper) setInvestedCapital(ctx sdk.Context, account string, amount math.Int) {
	k.setInt(ctx, investedCapitalKey(account), amount)
}

// ============ Authorization Nonces ============

func authNonceKey(account string) []byte {
	return append(AuthNonceKeyPrefix, []byte(account)...)
}

// GetAuthNonce returns the account's next authorization nonce
func (k *Keeper) GetAuthNonce(ctx sdk.Context, account string) uint64 {
	store := k.GetStore(ctx)
	bz := store.Get(authNonceKey(account))
	if bz == nil {
		return 0
	}
	var nonce uint64
	if err := json.Unmarshal(bz, &nonce); err != nil {
		return 0
	}
	return nonce
}

func (k *Keeper) setAuthNonce(ctx sdk.Context, account string, nonce uint64) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(nonce)
	store.Set(authNonceKey(account), bz)
}

// ============ Cooldown Queues ============

func cooldownKey(account string) []byte {
	return append(CooldownKeyPrefix, []byte(account)...)
}

// GetCooldownQueue returns the account's cooldown queue (empty if none)
func (k *Keeper) GetCooldownQueue(ctx sdk.Context, account string) *types.CooldownQueue {
	store := k.GetStore(ctx)
	bz := store.Get(cooldownKey(account))
	if bz == nil {
		return &types.CooldownQueue{}
	}
	var queue types.CooldownQueue
	if err := json.Unmarshal(bz, &queue); err != nil {
		return &types.CooldownQueue{}
	}
	return &queue
}

func (k *Keeper) setCooldownQueue(ctx sdk.Context, account string, queue *types.CooldownQueue) {
	store := k.GetStore(ctx)
	if queue.Len() == 0 {
		store.Delete(cooldownKey(account))
		return
	}
	bz, _ := json.Marshal(queue)
	store.Set(cooldownKey(account), bz)
}

// ============ Escrow Credits ============

func creditKey(account string) []byte {
	return append(CreditKeyPrefix, []byte(account)...)
}

// GetCredit returns an account's claimable pull-payment balance
func (k *Keeper) GetCredit(ctx sdk.Context, account string) math.Int {
	return k.getInt(ctx, creditKey(account))
}

func (k *Keeper) setCredit(ctx sdk.Context, account string, amount math.Int) {
	if amount.IsZero() {
		k.GetStore(ctx).Delete(creditKey(account))
		return
	}
	k.setInt(ctx, creditKey(account), amount)
}

// ============ Signer ============

// GetSigner returns the configured off-chain signer's public key bytes
func (k *Keeper) GetSigner(ctx sdk.Context) []byte {
	return k.GetStore(ctx).Get(SignerKey)
}

func (k *Keeper) setSigner(ctx sdk.Context, pubKey []byte) {
	k.GetStore(ctx).Set(SignerKey, pubKey)
}

// ============ Int helpers ============

func (k *Keeper) getInt(ctx sdk.Context, key []byte) math.Int {
	store := k.GetStore(ctx)
	bz := store.Get(key)
	if bz == nil {
		return math.ZeroInt()
	}
	var v math.Int
	if err := v.Unmarshal(bz); err != nil {
		return math.ZeroInt()
	}
	return v
}

func (k *Keeper) setInt(ctx sdk.Context, key []byte, v math.Int) {
	store := k.GetStore(ctx)
	bz, _ := v.Marshal()
	store.Set(key, bz)
}

func hexBytes(bz []byte) string {
	return hex.EncodeToString(bz)
}
