package keeper

import (
	"bytes"

	"github.com/cometbft/cometbft/crypto/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/guru-fund/fundd/x/fund/types"
)

// VerifyPayload validates a signed payload for the given action and account.
// The account's authorization nonce is consumed unconditionally before the
// signature check; callers run inside runAtomic so a downstream failure rolls
// the increment back together with everything else, and a successful call can
// never be replayed.
func (k *Keeper) VerifyPayload(ctx sdk.Context, action types.ActionType, account string, payload *types.SignedPayload) error {
	if payload.ExpiresAt < ctx.BlockHeight() {
		return types.ErrExpiredAuthorization.Wrapf("expired at height %d, current %d", payload.ExpiresAt, ctx.BlockHeight())
	}

	nonce := k.GetAuthNonce(ctx, account)
	k.setAuthNonce(ctx, account, nonce+1)

	digest := payload.Digest(action, nonce, account)
	signer := k.GetSigner(ctx)
	if len(signer) == 0 || !k.verifier.Verify(signer, digest, payload.Signature) {
		return types.ErrInvalidSignature.Wrapf("account %s nonce %d", account, nonce)
	}
	return nil
}

// UpdateSigner rotates the trusted off-chain signer. Owner-only; no-op and
// empty updates are rejected.
func (k *Keeper) UpdateSigner(ctx sdk.Context, caller string, newSigner []byte) error {
	if caller != k.authority {
		return types.ErrUnauthorized.Wrap("signer rotation is owner-only")
	}
	if len(newSigner) == 0 {
		return types.ErrInvalidSigner.Wrap("empty signer")
	}
	old := k.GetSigner(ctx)
	if bytes.Equal(old, newSigner) {
		return types.ErrInvalidSigner.Wrap("signer unchanged")
	}
	k.setSigner(ctx, newSigner)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSignerUpdated,
			sdk.NewAttribute(types.AttributeKeyOldSigner, hexBytes(old)),
			sdk.NewAttribute(types.AttributeKeyNewSigner, hexBytes(newSigner)),
		),
	)

	k.logger.Info("Signer updated", "new_signer", hexBytes(newSigner))
	return nil
}

// Secp256k1Verifier is the default payload verifier: compressed secp256k1
// public keys with 64-byte signatures, as produced by the off-chain signer.
type Secp256k1Verifier struct{}

// Verify implements PayloadVerifier
func (Secp256k1Verifier) Verify(signer, digest, signature []byte) bool {
	if len(signer) != secp256k1.PubKeySize {
		return false
	}
	pub := secp256k1.PubKey(signer)
	return pub.VerifySignature(digest, signature)
}
