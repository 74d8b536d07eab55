package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementTypeOpeningStock       MovementType = "opening_stock"
	MovementTypePurchase           MovementType = "purchase"
	MovementTypeSale               MovementType = "sale"
	MovementTypeTransferOut        MovementType = "transfer_out"
	MovementTypeTransferIn         MovementType = "transfer_in"
	MovementTypeCustomerReturn     MovementType = "customer_return"
	MovementTypeSupplierReturn     MovementType = "supplier_return"
	MovementTypeAdjustmentIncrease MovementType = "adjustment_increase"
	MovementTypeAdjustmentDecrease MovementType = "adjustment_decrease"
	MovementTypeCorrectionIncrease MovementType = "correction_increase"
	MovementTypeCorrectionDecrease MovementType = "correction_decrease"
)

// movementDirections is the single authority for movement sign.
// +1 increases stock, -1 decreases it. Callers never pass a sign.
var movementDirections = map[MovementType]int{
	MovementTypeOpeningStock:       1,
	MovementTypePurchase:           1,
	MovementTypeTransferIn:         1,
	MovementTypeCustomerReturn:     1,
	MovementTypeAdjustmentIncrease: 1,
	MovementTypeCorrectionIncrease: 1,
	MovementTypeSale:               -1,
	MovementTypeTransferOut:        -1,
	MovementTypeSupplierReturn:     -1,
	MovementTypeAdjustmentDecrease: -1,
	MovementTypeCorrectionDecrease: -1,
}

// InboundMovementTypes lists every type with direction +1, for callers that
// render the direction table into SQL.
func InboundMovementTypes() []MovementType {
	var types []MovementType
	for t, d := range movementDirections {
		if d == 1 {
			types = append(types, t)
		}
	}
	return types
}

func (t MovementType) IsValid() bool {
	_, ok := movementDirections[t]
	return ok
}

// Direction returns +1 or -1. Unknown types return 0 and must be rejected
// before reaching the ledger.
func (t MovementType) Direction() int {
	return movementDirections[t]
}

func (t MovementType) IsInbound() bool {
	return movementDirections[t] == 1
}

func (t MovementType) IsCorrection() bool {
	return t == MovementTypeCorrectionIncrease || t == MovementTypeCorrectionDecrease
}

// SignedQty applies the type's direction to a non-negative quantity.
func (t MovementType) SignedQty(qty decimal.Decimal) decimal.Decimal {
	if movementDirections[t] < 0 {
		return qty.Neg()
	}
	return qty
}

func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if !t.IsValid() {
		return "", errors.New("invalid movement type")
	}
	return t, nil
}

type StockReferenceType string

const (
	StockReferenceTypeOpeningStock  StockReferenceType = "OS"
	StockReferenceTypePurchaseOrder StockReferenceType = "PO"
	StockReferenceTypeSalesInvoice  StockReferenceType = "SI"
	StockReferenceTypeTransferOrder StockReferenceType = "TO"
	StockReferenceTypeRefund        StockReferenceType = "RF"
	StockReferenceTypeAdjustment    StockReferenceType = "ADJ"
	StockReferenceTypeCorrection    StockReferenceType = "COR"
)

var stockReferenceTypes = map[string]StockReferenceType{
	"OS":  StockReferenceTypeOpeningStock,
	"PO":  StockReferenceTypePurchaseOrder,
	"SI":  StockReferenceTypeSalesInvoice,
	"TO":  StockReferenceTypeTransferOrder,
	"RF":  StockReferenceTypeRefund,
	"ADJ": StockReferenceTypeAdjustment,
	"COR": StockReferenceTypeCorrection,
}

func ParseStockReferenceType(s string) (StockReferenceType, error) {
	t, ok := stockReferenceTypes[s]
	if !ok {
		return "", errors.New("invalid stock reference type")
	}
	return t, nil
}

type TransferOrderStatus string

const (
	TransferOrderStatusDraft             TransferOrderStatus = "Draft"
	TransferOrderStatusChecked           TransferOrderStatus = "Checked"
	TransferOrderStatusInTransit         TransferOrderStatus = "InTransit"
	TransferOrderStatusPartiallyReceived TransferOrderStatus = "PartiallyReceived"
	TransferOrderStatusCompleted         TransferOrderStatus = "Completed"
	TransferOrderStatusCancelled         TransferOrderStatus = "Cancelled"
)

func (s TransferOrderStatus) IsTerminal() bool {
	return s == TransferOrderStatusCompleted || s == TransferOrderStatusCancelled
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "Received"
	PurchaseOrderStatusClosed    PurchaseOrderStatus = "Closed"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "Cancelled"
)

type AmendmentStatus string

const (
	AmendmentStatusPending  AmendmentStatus = "Pending"
	AmendmentStatusApproved AmendmentStatus = "Approved"
	AmendmentStatusRejected AmendmentStatus = "Rejected"
)

type RefundStatus string

const (
	RefundStatusDraft     RefundStatus = "Draft"
	RefundStatusConfirmed RefundStatus = "Confirmed"
	RefundStatusCancelled RefundStatus = "Cancelled"
)

type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft     SalesInvoiceStatus = "Draft"
	SalesInvoiceStatusConfirmed SalesInvoiceStatus = "Confirmed"
	SalesInvoiceStatusRefunded  SalesInvoiceStatus = "Refunded"
	SalesInvoiceStatusVoided    SalesInvoiceStatus = "Voided"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusRejected  IdempotencyStatus = "REJECTED"
)

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "Open"
	ShiftStatusClosed ShiftStatus = "Closed"
)

// ShiftEventKind selects which running counter an event increments.
type ShiftEventKind string

const (
	ShiftEventCashSale      ShiftEventKind = "cash_sale"
	ShiftEventNonCashSale   ShiftEventKind = "non_cash_sale"
	ShiftEventCashIn        ShiftEventKind = "cash_in"
	ShiftEventCashOut       ShiftEventKind = "cash_out"
	ShiftEventArCashPayment ShiftEventKind = "ar_cash_payment"
	ShiftEventDiscount      ShiftEventKind = "discount"
	ShiftEventVoid          ShiftEventKind = "void"
)

var shiftEventKinds = map[string]ShiftEventKind{
	"cash_sale":       ShiftEventCashSale,
	"non_cash_sale":   ShiftEventNonCashSale,
	"cash_in":         ShiftEventCashIn,
	"cash_out":        ShiftEventCashOut,
	"ar_cash_payment": ShiftEventArCashPayment,
	"discount":        ShiftEventDiscount,
	"void":            ShiftEventVoid,
}

func ParseShiftEventKind(s string) (ShiftEventKind, error) {
	k, ok := shiftEventKinds[s]
	if !ok {
		return "", errors.New("invalid shift event kind")
	}
	return k, nil
}

// SOD actor slots on workflow entities. Rule configuration references
// slots by these names.
type ActorSlot string

const (
	ActorSlotCreatedBy  ActorSlot = "created_by"
	ActorSlotCheckedBy  ActorSlot = "checked_by"
	ActorSlotSentBy     ActorSlot = "sent_by"
	ActorSlotReceivedBy ActorSlot = "received_by"
	ActorSlotApprovedBy ActorSlot = "approved_by"
)

var actorSlots = map[string]ActorSlot{
	"created_by":  ActorSlotCreatedBy,
	"checked_by":  ActorSlotCheckedBy,
	"sent_by":     ActorSlotSentBy,
	"received_by": ActorSlotReceivedBy,
	"approved_by": ActorSlotApprovedBy,
}

func ParseActorSlot(s string) (ActorSlot, error) {
	a, ok := actorSlots[s]
	if !ok {
		return "", errors.New("invalid actor slot")
	}
	return a, nil
}

type SODPolicy string

const (
	SODPolicyMustDiffer SODPolicy = "MustDiffer"
	SODPolicyMayBeSame  SODPolicy = "MayBeSame"
)

type SODEntityType string

const (
	SODEntityTransferOrder     SODEntityType = "TransferOrder"
	SODEntityPurchaseAmendment SODEntityType = "PurchaseAmendment"
	SODEntityRefund            SODEntityType = "Refund"
)

type UserRole string

const (
	UserRoleCashier    UserRole = "Cashier"
	UserRoleSupervisor UserRole = "Supervisor"
	UserRoleManager    UserRole = "Manager"
	UserRoleAdmin      UserRole = "Admin"
)

type PubSubMessageAction string

const (
	PubSubMessageActionCreate      PubSubMessageAction = "Create"
	PubSubMessageActionUpdate      PubSubMessageAction = "Update"
	PubSubMessageActionStateChange PubSubMessageAction = "StateChange"
	PubSubMessageActionDelete      PubSubMessageAction = "Delete"
)

type NotificationReferenceType string

const (
	NotificationReferenceStockMovement NotificationReferenceType = "StockMovement"
	NotificationReferenceSalesInvoice  NotificationReferenceType = "SalesInvoice"
	NotificationReferenceTransferOrder NotificationReferenceType = "TransferOrder"
	NotificationReferenceAmendment     NotificationReferenceType = "PurchaseAmendment"
	NotificationReferenceRefund        NotificationReferenceType = "Refund"
	NotificationReferenceShift         NotificationReferenceType = "CashierShift"
	NotificationReferenceDrift         NotificationReferenceType = "LedgerDrift"
)
