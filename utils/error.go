package utils

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidationError rejects a request whose inputs can never succeed
// (bad quantity sign, unknown movement type, closed shift, ...).
// Retrying the same request must fail the same way.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field string, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	if e.Id == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.Id)
}

func NewNotFoundError(resource string, id string) error {
	return &NotFoundError{Resource: resource, Id: id}
}

// ConflictError signals a transient collision (another posting holds the lock,
// an idempotent request is still in flight). Safe to retry after a backoff.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(message string) error {
	return &ConflictError{Message: message}
}

// SODViolation rejects an operation because the same user already performed
// an incompatible role on the document.
type SODViolation struct {
	RuleId    int
	RuleField string
	Message   string
}

func (e *SODViolation) Error() string {
	return fmt.Sprintf("separation of duties violated (rule %d, %s): %s", e.RuleId, e.RuleField, e.Message)
}

// InsufficientBalanceAnomaly is raised when a deduction would drive a stock
// balance negative. It is an anomaly, not a plain validation failure: the
// caller decides whether to reject or to record and continue.
type InsufficientBalanceAnomaly struct {
	WarehouseId int
	VariantId   int
	Balance     string
	Requested   string
}

func (e *InsufficientBalanceAnomaly) Error() string {
	return fmt.Sprintf("insufficient stock balance (warehouse=%d variant=%d balance=%s requested=%s)",
		e.WarehouseId, e.VariantId, e.Balance, e.Requested)
}

// LedgerDriftError reports a cached summary that disagrees with the ledger
// beyond tolerance. Never auto-corrected; surfaced for an audited correction.
type LedgerDriftError struct {
	WarehouseId int
	VariantId   int
	Cached      string
	Recomputed  string
}

func (e *LedgerDriftError) Error() string {
	return fmt.Sprintf("ledger drift (warehouse=%d variant=%d cached=%s recomputed=%s)",
		e.WarehouseId, e.VariantId, e.Cached, e.Recomputed)
}

// IsDefinitive reports whether err is a final outcome worth memoizing for
// idempotent replay. Transient conflicts and infrastructure errors are not:
// the client may retry and succeed.
func IsDefinitive(err error) bool {
	if err == nil {
		return true
	}
	var ve *ValidationError
	var nf *NotFoundError
	var sod *SODViolation
	var ib *InsufficientBalanceAnomaly
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &sod) || errors.As(err, &ib) {
		return true
	}
	return errors.Is(err, ErrorRecordNotFound)
}

// HTTPStatus maps a domain error onto the response code the gin layer returns.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ve *ValidationError
	var nf *NotFoundError
	var ce *ConflictError
	var sod *SODViolation
	var ib *InsufficientBalanceAnomaly
	var ld *LedgerDriftError
	switch {
	case errors.As(err, &nf), errors.Is(err, ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &sod):
		return http.StatusForbidden
	case errors.As(err, &ve), errors.As(err, &ib):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ld):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
