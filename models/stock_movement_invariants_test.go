package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func validMovement() *StockMovement {
	return &StockMovement{
		BusinessId:   "biz-1",
		WarehouseId:  1,
		VariantId:    2,
		MovementType: MovementTypePurchase,
		Qty:          decimal.NewFromInt(5),
	}
}

func TestStockMovement_BeforeSave(t *testing.T) {
	if err := validMovement().BeforeSave(nil); err != nil {
		t.Fatalf("valid movement rejected: %v", err)
	}

	m := validMovement()
	m.MovementType = "teleport"
	if err := m.BeforeSave(nil); err == nil {
		t.Fatal("unknown movement type must be rejected")
	}

	m = validMovement()
	m.Qty = decimal.NewFromInt(-5)
	if err := m.BeforeSave(nil); err == nil {
		t.Fatal("negative qty must be rejected; direction lives in the type")
	}

	m = validMovement()
	m.Qty = decimal.Zero
	if err := m.BeforeSave(nil); err == nil {
		t.Fatal("zero qty must be rejected")
	}

	m = validMovement()
	m.MovementType = MovementTypeCorrectionDecrease
	if err := m.BeforeSave(nil); err == nil {
		t.Fatal("correction without a reason must be rejected")
	}
	m.Reason = "count recount after audit"
	if err := m.BeforeSave(nil); err != nil {
		t.Fatalf("correction with reason rejected: %v", err)
	}
}

func TestStockMovement_AppendOnly(t *testing.T) {
	m := validMovement()
	if err := m.BeforeUpdate(nil); err == nil {
		t.Fatal("updates must be blocked")
	}
	if err := m.BeforeDelete(nil); err == nil {
		t.Fatal("deletes must be blocked")
	}
}
