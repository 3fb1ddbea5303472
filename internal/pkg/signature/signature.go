// Package signature authenticates inbound webhook calls.
//
// Platform webhooks carry "sha256=<hex>" computed over the raw request body
// with the tenant's shared secret. Provider callbacks use the svix scheme:
// base64 HMAC-SHA256 over "<id>.<timestamp>.<body>" with a replay window.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"sales-recovery/internal/pkg/errs"
)

const HeaderPrefix = "sha256="

// Verify checks header against HMAC-SHA256(secret, body). The body must be
// the exact bytes received on the wire.
func Verify(body []byte, header string, secret []byte) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return errs.Mark(errs.New("missing signature header"), errs.ErrInvalidSignature)
	}
	if !strings.HasPrefix(header, HeaderPrefix) {
		return errs.Mark(errs.New("unsupported signature scheme"), errs.ErrInvalidSignature)
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, HeaderPrefix))
	if err != nil || len(provided) != sha256.Size {
		return errs.Mark(errs.New("malformed signature"), errs.ErrInvalidSignature)
	}
	if len(secret) == 0 {
		return errs.Mark(errs.New("empty tenant secret"), errs.ErrUnknownTenant)
	}

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return errs.Mark(errs.New("signature mismatch"), errs.ErrInvalidSignature)
	}
	return nil
}

// Sign produces a header value Verify accepts. Used by tests and local tooling.
func Sign(body []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return HeaderPrefix + hex.EncodeToString(mac.Sum(nil))
}
