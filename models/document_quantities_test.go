package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransferOrderDetail_Shortfall(t *testing.T) {
	detail := TransferOrderDetail{
		Qty:         decimal.NewFromInt(100),
		QtyReceived: decimal.NewFromInt(80),
	}
	if !detail.Shortfall().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected shortfall 20, got %s", detail.Shortfall())
	}

	detail.QtyReceived = decimal.NewFromInt(100)
	if !detail.Shortfall().IsZero() {
		t.Fatalf("fully received line must have zero shortfall, got %s", detail.Shortfall())
	}
}

func TestSalesInvoiceDetail_RefundableQty(t *testing.T) {
	line := SalesInvoiceDetail{
		Qty:         decimal.NewFromInt(5),
		RefundedQty: decimal.NewFromInt(2),
	}
	if !line.RefundableQty().Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected refundable 3, got %s", line.RefundableQty())
	}
}

func TestPurchaseOrder_RecalculateTotals(t *testing.T) {
	order := PurchaseOrder{
		Details: []PurchaseOrderDetail{
			{Qty: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("10.50")},
			{Qty: decimal.RequireFromString("1.5"), UnitPrice: decimal.NewFromInt(100)},
		},
	}
	order.RecalculateTotals()
	if !order.TotalAmount.Equal(decimal.RequireFromString("181.50")) {
		t.Fatalf("expected total 181.50, got %s", order.TotalAmount)
	}
}

func TestPurchaseOrderChangeSet_IsEmpty(t *testing.T) {
	var cs PurchaseOrderChangeSet
	if !cs.IsEmpty() {
		t.Fatal("zero change set must be empty")
	}

	name := "New Supplier"
	cs.SupplierName = &name
	if cs.IsEmpty() {
		t.Fatal("supplier rename is a change")
	}
}

// The stored change set must survive a marshal round trip untouched; an
// approval applies exactly what the proposer recorded.
func TestPurchaseAmendment_ChangeSetRoundTrip(t *testing.T) {
	original := PurchaseOrderChangeSet{
		LineQtyChanges: []LineQtyChange{
			{DetailId: 4, NewQty: decimal.RequireFromString("12.5")},
		},
		RemoveLineIds: []int{9},
	}
	raw, err := json.Marshal(&original)
	if err != nil {
		t.Fatal(err)
	}

	amendment := PurchaseAmendment{Changes: raw}
	decoded, err := amendment.ChangeSet()
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.LineQtyChanges) != 1 || decoded.LineQtyChanges[0].DetailId != 4 {
		t.Fatalf("qty change lost in round trip: %+v", decoded)
	}
	if !decoded.LineQtyChanges[0].NewQty.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("qty precision lost: %s", decoded.LineQtyChanges[0].NewQty)
	}
	if len(decoded.RemoveLineIds) != 1 || decoded.RemoveLineIds[0] != 9 {
		t.Fatalf("remove ids lost in round trip: %+v", decoded)
	}
}

func TestTransferOrder_ActorInSlot(t *testing.T) {
	checker := 7
	order := TransferOrder{
		CreatedBy: 3,
		CheckedBy: &checker,
	}
	if order.ActorInSlot(ActorSlotCreatedBy) != 3 {
		t.Fatal("created_by slot mismatch")
	}
	if order.ActorInSlot(ActorSlotCheckedBy) != 7 {
		t.Fatal("checked_by slot mismatch")
	}
	// unfilled slot reads as zero, which separation checks treat as "free"
	if order.ActorInSlot(ActorSlotSentBy) != 0 {
		t.Fatal("unfilled slot must read as zero")
	}
}
