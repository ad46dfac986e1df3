// Package apierror provides the typed failures returned by the inventory core
// and the standardized error envelope used by the HTTP layer.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a core failure.
type Kind string

const (
	KindInsufficientStock    Kind = "insufficient_stock"
	KindNoStockAvailable     Kind = "no_stock_available"
	KindOverReceipt          Kind = "over_receipt"
	KindInvalidTransition    Kind = "invalid_transition"
	KindCrossTenantViolation Kind = "cross_tenant_violation"
	KindNotFound             Kind = "not_found"
	KindValidation           Kind = "validation"
	KindConflict             Kind = "conflict"
)

// Error is the typed failure returned by services and repositories.
type Error struct {
	Kind    Kind
	Message string
	// SKU is set when the failure concerns a single stock-keeping unit.
	SKU string
}

func (e *Error) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("%s: %s (sku %s)", e.Kind, e.Message, e.SKU)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInsufficientStock    = &Error{Kind: KindInsufficientStock}
	ErrNoStockAvailable     = &Error{Kind: KindNoStockAvailable}
	ErrOverReceipt          = &Error{Kind: KindOverReceipt}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrCrossTenantViolation = &Error{Kind: KindCrossTenantViolation}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrConflict             = &Error{Kind: KindConflict}
)

func InsufficientStock(sku string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("requested %d, available %d", requested, available),
		SKU:     sku,
	}
}

// InsufficientStockFor is InsufficientStock when the available quantity is
// not known at the moment the condition failed.
func InsufficientStockFor(sku string, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("requested %d exceeds available stock", requested),
		SKU:     sku,
	}
}

func NoStockAvailable(msg string) *Error {
	return &Error{Kind: KindNoStockAvailable, Message: msg}
}

func OverReceipt(sku string, ordered, received, qty int) *Error {
	return &Error{
		Kind:    KindOverReceipt,
		Message: fmt.Sprintf("ordered %d, already received %d, receipt of %d exceeds it", ordered, received, qty),
		SKU:     sku,
	}
}

func InvalidTransition(entity, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
	}
}

func CrossTenant(entity, expected, actual string) *Error {
	return &Error{
		Kind:    KindCrossTenantViolation,
		Message: fmt.Sprintf("%s belongs to tenant %q, operation runs for tenant %q", entity, actual, expected),
	}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func SKUNotFound(sku string) *Error {
	return &Error{Kind: KindNotFound, Message: "variant not found", SKU: sku}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// KindOf returns the kind of a core error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a core error to the response status code.
// Unknown errors and cross-tenant breaches are internal errors.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInsufficientStock, KindNoStockAvailable, KindOverReceipt,
		KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Kind   Kind   `json:"kind,omitempty"`
	SKU    string `json:"sku,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError builds the envelope for err. Internal failures get a generic
// message so storage errors never reach clients.
func FromError(err error) *APIError {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindCrossTenantViolation {
		return &APIError{Detail: "internal server error"}
	}
	return &APIError{Detail: e.Message, Kind: e.Kind, SKU: e.SKU}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
