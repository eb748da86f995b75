package types

import (
	"cosmossdk.io/math"
)

// Module name and store key
const (
	ModuleName = "fund"
	StoreKey   = ModuleName
)

// FundAccount is the ledger address under which the fund's own asset
// balances are held by the asset keeper.
const FundAccount = "fund"

// Basket and share constants
const (
	MaxAssets     = 8
	ShareDecimals = 6 // valuation-unit precision, independent of asset decimals
)

// Management fee: totalSupply/599 minted per period so the post-mint amount
// is ~1/600 of the new supply (~2%/year pro-rated monthly).
const (
	ManagementFeeDivisor       = int64(599)
	ManagementFeePeriodSeconds = int64(30 * 24 * 60 * 60)
)

// GracePeriodSeconds is the fixed post-closure window during which
// withdrawals remain permitted.
const GracePeriodSeconds = int64(30 * 24 * 60 * 60)

// BpsDenominator is the divisor for basis-point fee math.
var BpsDenominator = math.NewInt(10_000)

// Fund is the singleton aggregate for a deployed fund instance.
type Fund struct {
	Operator           string            `json:"operator"`
	IsOpen             bool              `json:"is_open"`
	Assets             [MaxAssets]string `json:"assets"` // "" marks an empty slot
	Nonce              uint64            `json:"nonce"`
	TotalValue         math.Int          `json:"total_value"`
	MinDepositValue    math.Int          `json:"min_deposit_value"`
	MinDepositCooldown int64             `json:"min_deposit_cooldown"` // seconds
	LatestFeeMintTime  int64             `json:"latest_fee_mint_time"`
	GracePeriodEnd     int64             `json:"grace_period_end"`
	CreatedAt          int64             `json:"created_at"`
}

// NewFund creates an open fund with the base asset in slot 0.
func NewFund(operator, baseAsset string, minDepositValue math.Int, minDepositCooldown, now int64) *Fund {
	f := &Fund{
		Operator:           operator,
		IsOpen:             true,
		Nonce:              0,
		TotalValue:         math.ZeroInt(),
		MinDepositValue:    minDepositValue,
		MinDepositCooldown: minDepositCooldown,
		LatestFeeMintTime:  now,
		CreatedAt:          now,
	}
	f.Assets[0] = baseAsset
	return f
}

// HasAsset reports whether the asset occupies any slot.
func (f *Fund) HasAsset(asset string) bool {
	for _, a := range f.Assets {
		if a != "" && a == asset {
			return true
		}
	}
	return false
}

// AssetUpdate assigns an asset to a basket slot ("" clears the slot).
type AssetUpdate struct {
	Index int    `json:"index"`
	Asset string `json:"asset"`
}

// Swap is a single structured swap instruction executed against an external
// router. No on-chain price validation is performed; the authorization
// signature is the sole control over whether the instruction is acceptable.
type Swap struct {
	TokenIn  string   `json:"token_in"`
	TokenOut string   `json:"token_out"`
	AmountIn math.Int `json:"amount_in"`
	Router   string   `json:"router"`
	CallData []byte   `json:"call_data"`
	Fee      math.Int `json:"fee"` // declared fee in the base asset, forwarded to the fee vault
}

// CooldownEntry is one locked tranche of shares.
type CooldownEntry struct {
	UnlockTime int64    `json:"unlock_time"`
	Amount     math.Int `json:"amount"`
}

// CooldownQueue is a per-account FIFO of locked share tranches with lazy
// compaction: entries before Offset are fully expired and logically removed.
type CooldownQueue struct {
	Offset  int             `json:"offset"`
	Entries []CooldownEntry `json:"entries"`
}

// Append adds a tranche in mint order. Unlock times are expected to be
// non-decreasing; that assumption is relied on by LockedBalance.
func (q *CooldownQueue) Append(unlockTime int64, amount math.Int) {
	q.Entries = append(q.Entries, CooldownEntry{UnlockTime: unlockTime, Amount: amount})
}

// LockedBalance scans from the tail backward toward Offset, accumulating
// amounts for entries whose unlock time is still in the future, and stops at
// the first entry found already expired. Entries appended first expire no
// later than later ones under non-decreasing unlock times, which makes the
// scan amortized O(1); an operator lowering the cooldown duration between
// mints breaks that assumption and makes older still-locked entries count as
// expired.
func (q *CooldownQueue) LockedBalance(now int64) (math.Int, int) {
	locked := math.ZeroInt()
	newOffset := q.Offset
	for i := len(q.Entries) - 1; i >= q.Offset; i-- {
		if q.Entries[i].UnlockTime > now {
			locked = locked.Add(q.Entries[i].Amount)
			continue
		}
		newOffset = i + 1
		break
	}
	return locked, newOffset
}

// Compact advances the offset recorded by LockedBalance. When the offset
// reaches the end the queue is fully cleared.
func (q *CooldownQueue) Compact(newOffset int) {
	if newOffset >= len(q.Entries) {
		q.Offset = 0
		q.Entries = nil
		return
	}
	if newOffset > q.Offset {
		q.Offset = newOffset
	}
}

// Len returns the number of live entries.
func (q *CooldownQueue) Len() int {
	return len(q.Entries) - q.Offset
}

// FundValueRecord is one observation of fund-wide value, kept for off-chain
// consumers (PnL indexers, dashboards).
type FundValueRecord struct {
	Height      int64    `json:"height"`
	Timestamp   int64    `json:"timestamp"`
	TotalValue  math.Int `json:"total_value"`
	TotalShares math.Int `json:"total_shares"`
}
