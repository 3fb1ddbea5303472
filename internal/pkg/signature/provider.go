package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"sales-recovery/internal/pkg/errs"
)

const (
	DefaultTolerance     = 5 * time.Minute
	providerSecretPrefix = "whsec_"
	providerSigVersion   = "v1"
)

var (
	ErrInvalidTimestamp       = errs.New("invalid timestamp")
	ErrTimestampOutsideWindow = errs.New("timestamp outside allowed window")
)

type ProviderInput struct {
	Secret          string
	ID              string
	TimestampHeader string
	SignatureHeader string
	Body            []byte
	Now             time.Time
	Tolerance       time.Duration
}

// VerifyProvider validates an email-provider callback. The signature header
// may carry several space separated "v1,<base64>" entries during key rotation.
func VerifyProvider(in ProviderInput) error {
	id := strings.TrimSpace(in.ID)
	tsHeader := strings.TrimSpace(in.TimestampHeader)
	if id == "" || in.SignatureHeader == "" {
		return errs.Mark(errs.New("missing provider signature headers"), errs.ErrInvalidSignature)
	}

	tsInt, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return errs.Mark(ErrInvalidTimestamp, errs.ErrInvalidSignature)
	}
	tolerance := in.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ts := time.Unix(tsInt, 0).UTC()
	now := in.Now.UTC()
	if ts.Before(now.Add(-tolerance)) || ts.After(now.Add(tolerance)) {
		return errs.Mark(ErrTimestampOutsideWindow, errs.ErrInvalidSignature)
	}

	key, err := providerKey(in.Secret)
	if err != nil {
		return errs.Mark(err, errs.ErrInvalidSignature)
	}
	expected := providerMAC(key, id, tsHeader, in.Body)

	for _, entry := range strings.Fields(in.SignatureHeader) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != providerSigVersion {
			continue
		}
		provided, decErr := base64.StdEncoding.DecodeString(sig)
		if decErr != nil {
			continue
		}
		if hmac.Equal(provided, expected) {
			return nil
		}
	}
	return errs.Mark(errs.New("provider signature mismatch"), errs.ErrInvalidSignature)
}

// SignProvider builds a signature header for the given message.
func SignProvider(secret, id, timestamp string, body []byte) (string, error) {
	key, err := providerKey(secret)
	if err != nil {
		return "", err
	}
	return providerSigVersion + "," + base64.StdEncoding.EncodeToString(providerMAC(key, id, timestamp, body)), nil
}

func providerKey(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, providerSecretPrefix))
	if err != nil || len(key) == 0 {
		return nil, errs.New("malformed provider secret")
	}
	return key, nil
}

func providerMAC(key []byte, id, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(id))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
