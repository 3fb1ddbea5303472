package queries

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
	CursorVersionV1  = "v1"
)

var ErrInvalidCursor = errs.New("invalid cursor")

// EncodeAfterCursor uses microsecond precision to match timestamptz.
func EncodeAfterCursor(key shared.EventKey) string {
	raw := CursorVersionV1 + ":" + strconv.FormatInt(key.CreatedAt.UnixMicro(), 10) + "-" + key.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeAfterCursor(cursor string) (shared.EventKey, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return shared.EventKey{}, invalidCursor(errs.Wrap(err, "decode cursor"))
	}
	payload, ok := strings.CutPrefix(string(decoded), CursorVersionV1+":")
	if !ok {
		return shared.EventKey{}, invalidCursor(errs.New("unsupported cursor version"))
	}

	micros, rawID, ok := strings.Cut(payload, "-")
	if !ok {
		return shared.EventKey{}, invalidCursor(errs.New("expected <micros>-<uuid>"))
	}
	ts, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return shared.EventKey{}, invalidCursor(errs.Wrap(err, "parse cursor timestamp"))
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return shared.EventKey{}, invalidCursor(errs.Wrap(err, "parse cursor id"))
	}
	return shared.EventKey{CreatedAt: time.UnixMicro(ts).UTC(), ID: id}, nil
}

func invalidCursor(cause error) error {
	return errs.Mark(errs.Mark(cause, ErrInvalidCursor), errs.ErrValidation)
}

func ValidateLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
