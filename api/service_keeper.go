package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/api/types"
	fundmetrics "github.com/guru-fund/fundd/metrics"
	"github.com/guru-fund/fundd/x/fund/keeper"
	fundtypes "github.com/guru-fund/fundd/x/fund/types"
)

// Standalone-mode protocol addresses
const (
	standaloneAuthority = "fund-owner"
	standaloneAdmin     = "fund-admin"
	standaloneVault     = "protocol-fee-vault"
	standaloneBurn      = "burn"
	standaloneBaseDenom = "wguru"
)

// staticRegistry is the registry collaborator for standalone mode: fixed
// protocol addresses and a 5% deposit fee cap.
type staticRegistry struct {
	halted bool
}

func (r *staticRegistry) BaseDenom(ctx sdk.Context) string        { return standaloneBaseDenom }
func (r *staticRegistry) ProtocolFeeVault(ctx sdk.Context) string { return standaloneVault }
func (r *staticRegistry) BurnAddress(ctx sdk.Context) string      { return standaloneBurn }
func (r *staticRegistry) AdminAddress(ctx sdk.Context) string     { return standaloneAdmin }
func (r *staticRegistry) Halted(ctx sdk.Context) bool             { return r.halted }
func (r *staticRegistry) DepositFeeBps(ctx sdk.Context) math.Int  { return math.NewInt(500) }

// ledgerAssets is an in-memory asset ledger for standalone mode
type ledgerAssets struct {
	balances map[string]map[string]math.Int
	native   map[string]math.Int
	mu       sync.Mutex
}

func newLedgerAssets() *ledgerAssets {
	return &ledgerAssets{
		balances: make(map[string]map[string]math.Int),
		native:   make(map[string]math.Int),
	}
}

func (l *ledgerAssets) get(addr, denom string) math.Int {
	if acct, ok := l.balances[addr]; ok {
		if v, ok := acct[denom]; ok {
			return v
		}
	}
	return math.ZeroInt()
}

func (l *ledgerAssets) set(addr, denom string, amount math.Int) {
	if l.balances[addr] == nil {
		l.balances[addr] = make(map[string]math.Int)
	}
	l.balances[addr][denom] = amount
}

func (l *ledgerAssets) getNative(addr string) math.Int {
	if v, ok := l.native[addr]; ok {
		return v
	}
	return math.ZeroInt()
}

func (l *ledgerAssets) GetBalance(ctx sdk.Context, addr, denom string) math.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(addr, denom)
}

func (l *ledgerAssets) Send(ctx sdk.Context, from, to, denom string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.get(from, denom)
	if have.LT(amount) {
		return fmt.Errorf("insufficient %s balance: have %s, need %s", denom, have, amount)
	}
	l.set(from, denom, have.Sub(amount))
	l.set(to, denom, l.get(to, denom).Add(amount))
	return nil
}

func (l *ledgerAssets) SendNative(ctx sdk.Context, from, to string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.getNative(from)
	if have.LT(amount) {
		return fmt.Errorf("insufficient native balance: have %s, need %s", have, amount)
	}
	l.native[from] = have.Sub(amount)
	l.native[to] = l.getNative(to).Add(amount)
	return nil
}

func (l *ledgerAssets) Wrap(ctx sdk.Context, addr string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.getNative(addr)
	if have.LT(amount) {
		return fmt.Errorf("insufficient native balance to wrap: have %s, need %s", have, amount)
	}
	l.native[addr] = have.Sub(amount)
	l.set(addr, standaloneBaseDenom, l.get(addr, standaloneBaseDenom).Add(amount))
	return nil
}

func (l *ledgerAssets) Unwrap(ctx sdk.Context, addr string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.get(addr, standaloneBaseDenom)
	if have.LT(amount) {
		return fmt.Errorf("insufficient base balance to unwrap: have %s, need %s", have, amount)
	}
	l.set(addr, standaloneBaseDenom, have.Sub(amount))
	l.native[addr] = l.getNative(addr).Add(amount)
	return nil
}

// creditNative adds native units to an address outside of a transfer, used
// to mirror value arriving with a deposit submission.
func (l *ledgerAssets) creditNative(addr string, amount math.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.native[addr] = l.getNative(addr).Add(amount)
}

// ledgerSnapshot holds a copy of the ledger state taken before a submission.
type ledgerSnapshot struct {
	balances map[string]map[string]math.Int
	native   map[string]math.Int
}

// snapshot deep-copies the ledger. The keeper's branched store only covers
// KVStore writes, so a rejected submission restores the ledger from the
// snapshot to keep asset balances and fund state moving together.
func (l *ledgerAssets) snapshot() *ledgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &ledgerSnapshot{
		balances: make(map[string]map[string]math.Int, len(l.balances)),
		native:   make(map[string]math.Int, len(l.native)),
	}
	for addr, acct := range l.balances {
		cp := make(map[string]math.Int, len(acct))
		for denom, v := range acct {
			cp[denom] = v
		}
		snap.balances[addr] = cp
	}
	for addr, v := range l.native {
		snap.native[addr] = v
	}
	return snap
}

// restore puts the ledger back to a snapshot's state
func (l *ledgerAssets) restore(snap *ledgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[string]map[string]math.Int, len(snap.balances))
	for addr, acct := range snap.balances {
		cp := make(map[string]math.Int, len(acct))
		for denom, v := range acct {
			cp[denom] = v
		}
		l.balances[addr] = cp
	}
	l.native = make(map[string]math.Int, len(snap.native))
	for addr, v := range snap.native {
		l.native[addr] = v
	}
}

// unitRouter is a 1:1 swap router for standalone mode
type unitRouter struct {
	assets *ledgerAssets
}

func (r *unitRouter) Execute(ctx sdk.Context, fundAddr string, swap fundtypes.Swap) error {
	if err := r.assets.Send(ctx, fundAddr, "router", swap.TokenIn, swap.AmountIn); err != nil {
		return err
	}
	r.assets.mu.Lock()
	defer r.assets.mu.Unlock()
	r.assets.set(fundAddr, swap.TokenOut, r.assets.get(fundAddr, swap.TokenOut).Add(swap.AmountIn))
	return nil
}

// KeeperService implements FundService against a real fund keeper backed by
// an in-memory commit multistore. Each submission runs in its own simulated
// block: height advances by one and block time moves to wall-clock time.
type KeeperService struct {
	keeper   *keeper.Keeper
	registry *staticRegistry
	assets   *ledgerAssets
	ctx      sdk.Context
	mu       sync.Mutex

	valueIndex  *ValueIndex
	lastIndexed int64

	logger log.Logger
}

// NewKeeperService creates a KeeperService with an in-memory fund keeper
func NewKeeperService(logger log.Logger) (*KeeperService, error) {
	storeKey := storetypes.NewKVStoreKey(fundtypes.StoreKey)
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{}, false, log.NewNopLogger()).
		WithBlockHeight(1).
		WithBlockTime(time.Now().UTC())

	registry := &staticRegistry{}
	assets := newLedgerAssets()
	k := keeper.NewKeeper(
		storeKey,
		registry,
		assets,
		&unitRouter{assets: assets},
		keeper.Secp256k1Verifier{},
		standaloneAuthority,
		logger,
	)

	return &KeeperService{
		keeper:     k,
		registry:   registry,
		assets:     assets,
		ctx:        ctx,
		valueIndex: NewValueIndex(),
		logger:     logger.With("component", "api-service"),
	}, nil
}

// Bootstrap configures the signer and initializes a fund. Used by the
// standalone server to stand up a working instance at startup.
func (s *KeeperService) Bootstrap(operator string, signer []byte, supplied, declaredValue, minDepositValue math.Int, minDepositCooldown int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.keeper.UpdateSigner(s.ctx, standaloneAuthority, signer); err != nil {
		return err
	}
	snap := s.assets.snapshot()
	s.assets.creditNative(fundtypes.FundAccount, supplied)
	if err := s.keeper.Initialize(s.ctx, operator, supplied, declaredValue, math.ZeroInt(), "", minDepositValue, minDepositCooldown); err != nil {
		s.assets.restore(snap)
		return err
	}
	s.refreshIndexLocked()
	return nil
}

// nextBlock advances the simulated chain by one block
func (s *KeeperService) nextBlock() {
	s.ctx = s.ctx.
		WithBlockHeight(s.ctx.BlockHeight() + 1).
		WithBlockTime(time.Now().UTC())
	fundmetrics.GetCollector().BlockHeight.Set(float64(s.ctx.BlockHeight()))
}

// refreshIndexLocked pulls new value observations from the keeper into the
// btree index. Callers hold s.mu. The read is inclusive of lastIndexed since
// observations within the same second replace each other; re-inserts are
// idempotent.
func (s *KeeperService) refreshIndexLocked() {
	records := s.keeper.GetValueHistory(s.ctx, s.lastIndexed, 0)
	for _, record := range records {
		s.valueIndex.Insert(&types.ValuePoint{
			Height:      record.Height,
			Timestamp:   record.Timestamp,
			TotalValue:  record.TotalValue.String(),
			TotalShares: record.TotalShares.String(),
		})
		if record.Timestamp > s.lastIndexed {
			s.lastIndexed = record.Timestamp
		}
	}
	if latest := s.valueIndex.Latest(); latest != nil {
		c := fundmetrics.GetCollector()
		if v, ok := math.NewIntFromString(latest.TotalValue); ok {
			c.FundValue.Set(float64(v.Int64()))
		}
		if v, ok := math.NewIntFromString(latest.TotalShares); ok {
			c.ShareSupply.Set(float64(v.Int64()))
		}
	}
}

// ============ Reads ============

func (s *KeeperService) GetFund(ctx context.Context) (*types.FundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fund := s.keeper.GetFund(s.ctx)
	if fund == nil {
		return nil, errors.New("fund not initialized")
	}

	assets := make([]string, 0, len(fund.Assets))
	for _, a := range fund.Assets {
		if a != "" {
			assets = append(assets, a)
		}
	}

	info := &types.FundInfo{
		Operator:           fund.Operator,
		IsOpen:             fund.IsOpen,
		Assets:             assets,
		Nonce:              fund.Nonce,
		TotalValue:         fund.TotalValue.String(),
		TotalShares:        s.keeper.GetTotalSupply(s.ctx).String(),
		ShareDecimals:      fundtypes.ShareDecimals,
		MinDepositValue:    fund.MinDepositValue.String(),
		MinDepositCooldown: fund.MinDepositCooldown,
		LatestFeeMintTime:  fund.LatestFeeMintTime,
		CreatedAt:          fund.CreatedAt,
	}
	if !fund.IsOpen {
		info.GracePeriodEnd = fund.GracePeriodEnd
	}
	return info, nil
}

func (s *KeeperService) GetAccount(ctx context.Context, address string) (*types.AccountInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &types.AccountInfo{
		Address:         address,
		Shares:          s.keeper.GetBalance(s.ctx, address).String(),
		LockedShares:    s.keeper.GetLockedBalance(s.ctx, address).String(),
		InvestedCapital: s.keeper.GetInvestedCapital(s.ctx, address).String(),
		Credit:          s.keeper.GetCredit(s.ctx, address).String(),
		AuthNonce:       s.keeper.GetAuthNonce(s.ctx, address),
	}, nil
}

func (s *KeeperService) GetValueHistory(ctx context.Context, from, to int64, limit int) ([]*types.ValuePoint, error) {
	return s.valueIndex.Range(from, to, limit), nil
}

func (s *KeeperService) LatestValue(ctx context.Context) (*types.ValuePoint, error) {
	latest := s.valueIndex.Latest()
	if latest == nil {
		return nil, errors.New("no value observations")
	}
	return latest, nil
}

// ============ Submissions ============

func (s *KeeperService) Deposit(ctx context.Context, req *types.SignedPayloadRequest) (*types.SubmitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBlock()

	supplied, ok := math.NewIntFromString(req.Supplied)
	if !ok {
		return reject("invalid supplied amount"), nil
	}
	snap := s.assets.snapshot()
	s.assets.creditNative(fundtypes.FundAccount, supplied)

	payload := &fundtypes.SignedPayload{
		Data:      req.Data,
		Signature: req.Signature,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.keeper.Deposit(s.ctx, req.Account, supplied, payload); err != nil {
		s.assets.restore(snap)
		fundmetrics.GetCollector().SubmissionErrors.WithLabelValues("deposit").Inc()
		return reject(err.Error()), nil
	}

	fundmetrics.GetCollector().DepositsTotal.Inc()
	s.refreshIndexLocked()
	return accept(), nil
}

func (s *KeeperService) Withdraw(ctx context.Context, req *types.SignedPayloadRequest) (*types.SubmitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBlock()

	payload := &fundtypes.SignedPayload{
		Data:      req.Data,
		Signature: req.Signature,
		ExpiresAt: req.ExpiresAt,
	}
	snap := s.assets.snapshot()
	if err := s.keeper.Withdraw(s.ctx, req.Account, payload); err != nil {
		s.assets.restore(snap)
		fundmetrics.GetCollector().SubmissionErrors.WithLabelValues("withdraw").Inc()
		return reject(err.Error()), nil
	}

	fundmetrics.GetCollector().WithdrawalsTotal.Inc()
	s.refreshIndexLocked()
	return accept(), nil
}

func (s *KeeperService) ClaimCredit(ctx context.Context, req *types.ClaimCreditRequest) (*types.SubmitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBlock()

	to := req.To
	if to == "" {
		to = req.Account
	}
	snap := s.assets.snapshot()
	if err := s.keeper.WithdrawCredit(s.ctx, req.Account, to); err != nil {
		s.assets.restore(snap)
		fundmetrics.GetCollector().SubmissionErrors.WithLabelValues("claim_credit").Inc()
		return reject(err.Error()), nil
	}
	return accept(), nil
}

func accept() *types.SubmitResponse {
	return &types.SubmitResponse{Accepted: true, Timestamp: nowMillis()}
}

func reject(reason string) *types.SubmitResponse {
	return &types.SubmitResponse{Accepted: false, Error: reason, Timestamp: nowMillis()}
}
