package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

// movementDirections is the single sign authority: every movement type must
// have exactly one direction and callers never pass a sign themselves.

func TestMovementDirections_Total(t *testing.T) {
	all := []MovementType{
		MovementTypeOpeningStock,
		MovementTypePurchase,
		MovementTypeSale,
		MovementTypeTransferOut,
		MovementTypeTransferIn,
		MovementTypeCustomerReturn,
		MovementTypeSupplierReturn,
		MovementTypeAdjustmentIncrease,
		MovementTypeAdjustmentDecrease,
		MovementTypeCorrectionIncrease,
		MovementTypeCorrectionDecrease,
	}
	if len(all) != len(movementDirections) {
		t.Fatalf("direction table has %d entries, expected %d", len(movementDirections), len(all))
	}
	for _, mt := range all {
		d := mt.Direction()
		if d != 1 && d != -1 {
			t.Fatalf("%s has direction %d, expected +1 or -1", mt, d)
		}
	}
}

func TestMovementDirections_Pairs(t *testing.T) {
	opposites := map[MovementType]MovementType{
		MovementTypeTransferIn:         MovementTypeTransferOut,
		MovementTypeCustomerReturn:     MovementTypeSale,
		MovementTypeSupplierReturn:     MovementTypePurchase,
		MovementTypeAdjustmentIncrease: MovementTypeAdjustmentDecrease,
		MovementTypeCorrectionIncrease: MovementTypeCorrectionDecrease,
	}
	for in, out := range opposites {
		if in.Direction() != -out.Direction() {
			t.Fatalf("%s and %s must have opposite directions", in, out)
		}
	}
}

func TestSignedQty_AppliesDirection(t *testing.T) {
	qty := decimal.NewFromInt(10)
	if !MovementTypePurchase.SignedQty(qty).Equal(qty) {
		t.Fatal("inbound type must keep quantity positive")
	}
	if !MovementTypeSale.SignedQty(qty).Equal(qty.Neg()) {
		t.Fatal("outbound type must negate quantity")
	}
}

func TestInboundMovementTypes_MatchesDirectionTable(t *testing.T) {
	inbound := InboundMovementTypes()
	seen := map[MovementType]bool{}
	for _, mt := range inbound {
		if !mt.IsInbound() {
			t.Fatalf("%s listed as inbound but direction is %d", mt, mt.Direction())
		}
		seen[mt] = true
	}
	for mt, d := range movementDirections {
		if d == 1 && !seen[mt] {
			t.Fatalf("inbound type %s missing from InboundMovementTypes", mt)
		}
	}
}

func TestParseMovementType_RejectsUnknown(t *testing.T) {
	if _, err := ParseMovementType("sale"); err != nil {
		t.Fatalf("known type rejected: %v", err)
	}
	if _, err := ParseMovementType("teleport"); err == nil {
		t.Fatal("unknown type must be rejected")
	}
	if _, err := ParseMovementType(""); err == nil {
		t.Fatal("empty type must be rejected")
	}
}

func TestIsCorrection(t *testing.T) {
	if !MovementTypeCorrectionIncrease.IsCorrection() || !MovementTypeCorrectionDecrease.IsCorrection() {
		t.Fatal("correction types must report IsCorrection")
	}
	if MovementTypeAdjustmentIncrease.IsCorrection() {
		t.Fatal("adjustments are not corrections")
	}
}
