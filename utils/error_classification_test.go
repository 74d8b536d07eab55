package utils

import (
	"errors"
	"net/http"
	"testing"
)

// Definitive errors are memoized by the idempotency guard and replayed;
// transient ones release the reservation so a retry re-executes. Getting this
// classification wrong either replays infrastructure hiccups forever or
// re-runs operations that already gave a final answer.
func TestIsDefinitive(t *testing.T) {
	definitive := []error{
		nil,
		NewValidationError("qty", "must be positive"),
		NewNotFoundError("warehouse", "3"),
		&SODViolation{RuleId: 1, RuleField: "created_by", Message: "must differ"},
		&InsufficientBalanceAnomaly{WarehouseId: 1, VariantId: 2, Balance: "5", Requested: "10"},
		ErrorRecordNotFound,
	}
	for _, err := range definitive {
		if !IsDefinitive(err) {
			t.Fatalf("expected definitive: %v", err)
		}
	}

	transient := []error{
		NewConflictError("lock not obtained"),
		errors.New("dial tcp: connection refused"),
	}
	for _, err := range transient {
		if IsDefinitive(err) {
			t.Fatalf("expected transient: %v", err)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("refund", "9"), http.StatusNotFound},
		{NewConflictError("already decided"), http.StatusConflict},
		{&SODViolation{RuleId: 1, RuleField: "approved_by"}, http.StatusForbidden},
		{NewValidationError("reason", "required"), http.StatusUnprocessableEntity},
		{&InsufficientBalanceAnomaly{}, http.StatusUnprocessableEntity},
		{&LedgerDriftError{WarehouseId: 1, VariantId: 2}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
