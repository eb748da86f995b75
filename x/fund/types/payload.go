package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"cosmossdk.io/math"
)

// ActionType tags the operation a signed payload authorizes. The tag is bound
// into the signing digest so a payload signed for one operation cannot be
// replayed against another.
type ActionType byte

const (
	ActionDeposit ActionType = iota + 1
	ActionAssetDeposit
	ActionRebalance
	ActionSingleSwap
	ActionWithdraw
	ActionClose
)

// SignedPayload is the binary envelope around an action body: opaque encoded
// body, signature over the canonical digest, and expiration block height.
type SignedPayload struct {
	Data      []byte `json:"data"`
	Signature []byte `json:"signature"`
	ExpiresAt int64  `json:"expires_at"`
}

// Digest computes the canonical signing digest binding the action type tag,
// the account's authorization nonce, the account, a hash of the payload data,
// and the expiration height. Both the on-chain verifier and the off-chain
// signer must produce identical bytes here.
func (p *SignedPayload) Digest(action ActionType, nonce uint64, account string) []byte {
	dataHash := sha256.Sum256(p.Data)

	buf := make([]byte, 0, 1+8+2+len(account)+32+8)
	buf = append(buf, byte(action))
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(account)))
	buf = append(buf, account...)
	buf = append(buf, dataHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.ExpiresAt))

	digest := sha256.Sum256(buf)
	return digest[:]
}

// DepositAction authorizes a user deposit bound to a specific fund nonce.
type DepositAction struct {
	FundNonce    uint64   `json:"fund_nonce"`
	Amount       math.Int `json:"amount"` // declared net input in base asset units
	ProtocolFee  math.Int `json:"protocol_fee"`
	BuybackFee   math.Int `json:"buyback_fee"`
	FeeRecipient string   `json:"fee_recipient"`
	SharesValue  math.Int `json:"shares_value"` // declared USD value, minted as shares
	Swaps        []Swap   `json:"swaps"`
}

// AssetDepositAction authorizes an operator asset deposit into a basket slot.
type AssetDepositAction struct {
	AssetIndex int      `json:"asset_index"`
	Asset      string   `json:"asset"`
	Amount     math.Int `json:"amount"` // asset units pulled from the operator
	Value      math.Int `json:"value"`  // declared USD value delta, must be non-negative
}

// RebalanceAction authorizes arbitrary slot updates followed by swaps.
type RebalanceAction struct {
	AssetUpdates []AssetUpdate `json:"asset_updates"`
	Swaps        []Swap        `json:"swaps"`
}

// SingleSwapAction authorizes one operator swap with the base asset on one leg.
type SingleSwapAction struct {
	Swap         Swap          `json:"swap"`
	AssetUpdates []AssetUpdate `json:"asset_updates"`
}

// WithdrawAction authorizes a share redemption and its settlement split.
type WithdrawAction struct {
	Shares         math.Int `json:"shares"`
	CapitalPortion math.Int `json:"capital_portion"` // invested capital to release
	NetOutput      math.Int `json:"net_output"`      // native units paid to the caller
	ProtocolFee    math.Int `json:"protocol_fee"`
	GuruFee        math.Int `json:"guru_fee"`
	GrossPnl       math.Int `json:"gross_pnl"` // signed; fees apply only when positive
	Swaps          []Swap   `json:"swaps"`
}

// CloseAction authorizes fund closure with final liquidation swaps.
type CloseAction struct {
	Swaps []Swap `json:"swaps"`
}

// EncodeAction marshals an action body into payload data.
func EncodeAction(action any) ([]byte, error) {
	return json.Marshal(action)
}

// DecodeAction unmarshals payload data into the given action body.
func DecodeAction(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return ErrInvalidAction.Wrap(err.Error())
	}
	return nil
}
