package types

import (
	"context"
	"time"
)

// FundInfo represents the fund singleton in API responses
type FundInfo struct {
	Operator           string   `json:"operator"`
	IsOpen             bool     `json:"is_open"`
	Assets             []string `json:"assets"`
	Nonce              uint64   `json:"nonce"`
	TotalValue         string   `json:"total_value"`
	TotalShares        string   `json:"total_shares"`
	ShareDecimals      int      `json:"share_decimals"`
	MinDepositValue    string   `json:"min_deposit_value"`
	MinDepositCooldown int64    `json:"min_deposit_cooldown"`
	LatestFeeMintTime  int64    `json:"latest_fee_mint_time"`
	GracePeriodEnd     int64    `json:"grace_period_end,omitempty"`
	CreatedAt          int64    `json:"created_at"`
}

// AccountInfo represents an account's fund position in API responses
type AccountInfo struct {
	Address         string `json:"address"`
	Shares          string `json:"shares"`
	LockedShares    string `json:"locked_shares"`
	InvestedCapital string `json:"invested_capital"`
	Credit          string `json:"credit"`
	AuthNonce       uint64 `json:"auth_nonce"`
}

// ValuePoint is one fund-value observation
type ValuePoint struct {
	Height      int64  `json:"height"`
	Timestamp   int64  `json:"timestamp"`
	TotalValue  string `json:"total_value"`
	TotalShares string `json:"total_shares"`
}

// SignedPayloadRequest carries a signed action envelope submitted over HTTP.
// Data and Signature are base64 in JSON.
type SignedPayloadRequest struct {
	Account   string `json:"account"`
	Data      []byte `json:"data"`
	Signature []byte `json:"signature"`
	ExpiresAt int64  `json:"expires_at"`
	Supplied  string `json:"supplied,omitempty"` // native units sent along with a deposit
}

// ClaimCreditRequest asks for the caller's pull-payment balance
type ClaimCreditRequest struct {
	Account string `json:"account"`
	To      string `json:"to"`
}

// SubmitResponse is the common result envelope for transaction submissions
type SubmitResponse struct {
	Accepted  bool   `json:"accepted"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// FundService provides fund state reads and transaction submission
type FundService interface {
	GetFund(ctx context.Context) (*FundInfo, error)
	GetAccount(ctx context.Context, address string) (*AccountInfo, error)
	GetValueHistory(ctx context.Context, from, to int64, limit int) ([]*ValuePoint, error)
	LatestValue(ctx context.Context) (*ValuePoint, error)

	Deposit(ctx context.Context, req *SignedPayloadRequest) (*SubmitResponse, error)
	Withdraw(ctx context.Context, req *SignedPayloadRequest) (*SubmitResponse, error)
	ClaimCredit(ctx context.Context, req *ClaimCreditRequest) (*SubmitResponse, error)
}

// NowMillis returns current timestamp in milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
