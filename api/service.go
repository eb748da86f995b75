package api

import (
	"github.com/guru-fund/fundd/api/types"
)

// Re-export types for convenience
type (
	FundInfo             = types.FundInfo
	AccountInfo          = types.AccountInfo
	ValuePoint           = types.ValuePoint
	SignedPayloadRequest = types.SignedPayloadRequest
	ClaimCreditRequest   = types.ClaimCreditRequest
	SubmitResponse       = types.SubmitResponse
	FundService          = types.FundService
)

// nowMillis returns current timestamp in milliseconds
func nowMillis() int64 {
	return types.NowMillis()
}
