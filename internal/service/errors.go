package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error the services return. The transport
// layer maps kinds to responses in one place.
type ErrorKind int

const (
	KindStorage ErrorKind = iota
	KindValidation
	KindStateConflict
	KindNotFound
	KindForbidden
	KindDuplicate
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindDuplicate:
		return "duplicate"
	default:
		return "storage"
	}
}

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so detailed copies still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of e with detail appended to the message.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Message = e.Message + ": " + detail
	return &c
}

var (
	ErrInvalidOffer       = &Error{Kind: KindValidation, Code: "invalid_offer", Message: "offered price must be positive and below the listed price"}
	ErrSelfOffer          = &Error{Kind: KindValidation, Code: "self_offer", Message: "you cannot make an offer on your own product"}
	ErrProductUnavailable = &Error{Kind: KindStateConflict, Code: "product_unavailable", Message: "product is not for sale"}
	ErrNotOfferOwner      = &Error{Kind: KindStateConflict, Code: "not_offer_owner", Message: "only the seller can respond to this offer"}
	ErrOfferNotPending    = &Error{Kind: KindStateConflict, Code: "offer_not_pending", Message: "offer is not in pending status"}
	ErrOfferExpired       = &Error{Kind: KindStateConflict, Code: "offer_expired", Message: "offer has expired"}
	ErrOfferNotFound      = &Error{Kind: KindNotFound, Code: "offer_not_found", Message: "offer not found"}
	ErrProductNotFound    = &Error{Kind: KindNotFound, Code: "product_not_found", Message: "product not found"}

	ErrInvalidSettlement      = &Error{Kind: KindValidation, Code: "invalid_settlement", Message: "invalid settlement request"}
	ErrInvalidSettlementPrice = &Error{Kind: KindValidation, Code: "invalid_settlement_price", Message: "agreed price matches neither the listed price nor an accepted offer"}
	ErrSellerMismatch         = &Error{Kind: KindValidation, Code: "seller_mismatch", Message: "seller does not own this product"}
	ErrSelfPurchase           = &Error{Kind: KindValidation, Code: "self_purchase", Message: "you cannot buy your own product"}
	ErrDuplicateTransaction   = &Error{Kind: KindDuplicate, Code: "duplicate_transaction", Message: "transaction already exists for this product"}
	ErrTransactionNotFound    = &Error{Kind: KindNotFound, Code: "transaction_not_found", Message: "transaction not found"}

	ErrInvalidRate = &Error{Kind: KindValidation, Code: "invalid_rate", Message: "commission rate must be between 0 and 100"}
	ErrForbidden   = &Error{Kind: KindForbidden, Code: "forbidden", Message: "you are not allowed to view this resource"}

	ErrStorage = &Error{Kind: KindStorage, Code: "storage_error", Message: "storage failure"}
)

func storageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: ErrStorage.Code, Message: "failed to " + op, Err: err}
}

// KindOf reports the kind of err. Errors that did not come from this
// package are treated as storage failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// asServiceError passes domain errors through and wraps anything else.
func asServiceError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return storageError(op, err)
}
