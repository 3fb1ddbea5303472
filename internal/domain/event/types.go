package event

import (
	"strings"

	"sales-recovery/internal/pkg/errs"
)

type Type string

const (
	TypeAbandonedCart        Type = "ABANDONED_CART"
	TypePixExpired           Type = "PIX_EXPIRED"
	TypeBoletoExpired        Type = "BOLETO_EXPIRED"
	TypeSaleRefused          Type = "SALE_REFUSED"
	TypeSubscriptionCanceled Type = "SUBSCRIPTION_CANCELED"
	TypeChargeback           Type = "CHARGEBACK"
	TypeSaleApproved         Type = "SALE_APPROVED"
)

var (
	ErrUnknownType   = errs.New("unknown event type")
	ErrUnknownStatus = errs.New("unknown event status")
)

// AllTypes lists every event type the platform integration can send.
func AllTypes() []Type {
	return []Type{
		TypeAbandonedCart,
		TypePixExpired,
		TypeBoletoExpired,
		TypeSaleRefused,
		TypeSubscriptionCanceled,
		TypeChargeback,
		TypeSaleApproved,
	}
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errs.Mark(ErrUnknownType, errs.ErrValidation)
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeAbandonedCart, TypePixExpired, TypeBoletoExpired, TypeSaleRefused,
		TypeSubscriptionCanceled, TypeChargeback, TypeSaleApproved:
		return true
	default:
		return false
	}
}

func (t Type) String() string { return string(t) }

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

func (s Status) String() string { return string(s) }

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusProcessed, StatusFailed:
		return st, nil
	default:
		return "", errs.Mark(ErrUnknownStatus, errs.ErrValidation)
	}
}
