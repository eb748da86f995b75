package types

// Event types emitted by the fund module. The attribute set of each event is
// normative for off-chain consumers and must not change shape.
const (
	EventTypeSignerUpdated                 = "fund_signer_updated"
	EventTypeCreditAdded                   = "fund_credit_added"
	EventTypeCreditWithdrawn               = "fund_credit_withdrawn"
	EventTypeSwapExecuted                  = "fund_swap_executed"
	EventTypeDeposited                     = "fund_deposited"
	EventTypeDepositedAsset                = "fund_deposited_asset"
	EventTypeAssetsUpdated                 = "fund_assets_updated"
	EventTypeRebalanced                    = "fund_rebalanced"
	EventTypeWithdrawn                     = "fund_withdrawn"
	EventTypeClosed                        = "fund_closed"
	EventTypeMinUserDepositValueUpdated    = "fund_min_user_deposit_value_updated"
	EventTypeMinUserDepositCooldownUpdated = "fund_min_user_deposit_cooldown_updated"
	EventTypeManagementFeeMinted           = "fund_management_fee_minted"
	EventTypeGracePeriodExtended           = "fund_grace_period_extended"
	EventTypeAbandonedFundsClaimed         = "fund_abandoned_funds_claimed"
)

// Event attribute keys
const (
	AttributeKeyAccount        = "account"
	AttributeKeyRecipient      = "recipient"
	AttributeKeyAmount         = "amount"
	AttributeKeyShares         = "shares"
	AttributeKeyAsset          = "asset"
	AttributeKeyAssetIndex     = "asset_index"
	AttributeKeyValue          = "value"
	AttributeKeyTokenIn        = "token_in"
	AttributeKeyTokenOut       = "token_out"
	AttributeKeyDeltaIn        = "delta_in"
	AttributeKeyDeltaOut       = "delta_out"
	AttributeKeyFee            = "fee"
	AttributeKeyProtocolFee    = "protocol_fee"
	AttributeKeyBuybackFee     = "buyback_fee"
	AttributeKeyGuruFee        = "guru_fee"
	AttributeKeyGrossPnl       = "gross_pnl"
	AttributeKeyNetOutput      = "net_output"
	AttributeKeyNonce          = "nonce"
	AttributeKeyOldSigner      = "old_signer"
	AttributeKeyNewSigner      = "new_signer"
	AttributeKeyGracePeriodEnd = "grace_period_end"
	AttributeKeyBurnAddress    = "burn_address"
	AttributeKeyCooldown       = "cooldown"
	AttributeKeyTimestamp      = "timestamp"
)
