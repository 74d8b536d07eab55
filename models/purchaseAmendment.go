package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// PurchaseOrderChangeSet is the explicit, typed diff an approved amendment
// applies. Each field is a declared mutation; an approval can never apply a
// field the struct does not name.
type PurchaseOrderChangeSet struct {
	LineQtyChanges   []LineQtyChange          `json:"line_qty_changes,omitempty"`
	LinePriceChanges []LinePriceChange        `json:"line_price_changes,omitempty"`
	AddLines         []NewPurchaseOrderDetail `json:"add_lines,omitempty"`
	RemoveLineIds    []int                    `json:"remove_line_ids,omitempty"`
	SupplierName     *string                  `json:"supplier_name,omitempty"`
}

type LineQtyChange struct {
	DetailId int             `json:"detail_id" binding:"required"`
	NewQty   decimal.Decimal `json:"new_qty" binding:"required"`
}

type LinePriceChange struct {
	DetailId     int             `json:"detail_id" binding:"required"`
	NewUnitPrice decimal.Decimal `json:"new_unit_price"`
}

func (cs *PurchaseOrderChangeSet) IsEmpty() bool {
	return len(cs.LineQtyChanges) == 0 &&
		len(cs.LinePriceChanges) == 0 &&
		len(cs.AddLines) == 0 &&
		len(cs.RemoveLineIds) == 0 &&
		cs.SupplierName == nil
}

// PurchaseAmendment holds a proposed change set for a purchase order in
// Pending until a second actor approves or rejects it.
type PurchaseAmendment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	Status          AmendmentStatus `gorm:"size:20;not null;default:'Pending'" json:"status"`
	Changes         json.RawMessage `gorm:"type:json;not null" json:"changes"`
	Reason          string          `gorm:"type:text" json:"reason"`
	CreatedBy       int             `gorm:"not null" json:"created_by"`
	ApprovedBy      *int            `json:"approved_by"`
	DecidedAt       *time.Time      `json:"decided_at"`
	RejectReason    string          `gorm:"type:text" json:"reject_reason"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *PurchaseAmendment) ActorInSlot(slot ActorSlot) int {
	switch slot {
	case ActorSlotCreatedBy:
		return a.CreatedBy
	case ActorSlotApprovedBy:
		return utils.DereferencePtr(a.ApprovedBy)
	default:
		return 0
	}
}

func (a *PurchaseAmendment) ChangeSet() (*PurchaseOrderChangeSet, error) {
	var cs PurchaseOrderChangeSet
	if err := json.Unmarshal(a.Changes, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

type NewPurchaseAmendment struct {
	PurchaseOrderId int                    `json:"purchase_order_id" binding:"required"`
	Changes         PurchaseOrderChangeSet `json:"changes" binding:"required"`
	Reason          string                 `json:"reason"`
}

func CreatePurchaseAmendment(ctx context.Context, input *NewPurchaseAmendment) (*PurchaseAmendment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if input.Changes.IsEmpty() {
		return nil, utils.NewValidationError("changes", "change set must not be empty")
	}
	order, err := GetPurchaseOrder(ctx, input.PurchaseOrderId)
	if err != nil {
		return nil, err
	}
	if order.Status == PurchaseOrderStatusCancelled || order.Status == PurchaseOrderStatusClosed {
		return nil, utils.NewConflictError("purchase order is not amendable in its current state")
	}

	// proposed changes must reference lines that exist
	lineIds := make(map[int]bool, len(order.Details))
	for _, d := range order.Details {
		lineIds[d.ID] = true
	}
	for _, c := range input.Changes.LineQtyChanges {
		if !lineIds[c.DetailId] {
			return nil, utils.NewValidationError("line_qty_changes", "unknown purchase order line")
		}
		if !c.NewQty.IsPositive() {
			return nil, utils.NewValidationError("line_qty_changes", "qty must be positive")
		}
	}
	for _, c := range input.Changes.LinePriceChanges {
		if !lineIds[c.DetailId] {
			return nil, utils.NewValidationError("line_price_changes", "unknown purchase order line")
		}
		if c.NewUnitPrice.IsNegative() {
			return nil, utils.NewValidationError("line_price_changes", "price must not be negative")
		}
	}
	for _, id := range input.Changes.RemoveLineIds {
		if !lineIds[id] {
			return nil, utils.NewValidationError("remove_line_ids", "unknown purchase order line")
		}
	}

	changesJSON, err := json.Marshal(&input.Changes)
	if err != nil {
		return nil, err
	}

	amendment := PurchaseAmendment{
		BusinessId:      businessId,
		PurchaseOrderId: input.PurchaseOrderId,
		Status:          AmendmentStatusPending,
		Changes:         changesJSON,
		Reason:          input.Reason,
		CreatedBy:       userId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&amendment).Error; err != nil {
		return nil, err
	}
	return &amendment, nil
}

func GetPurchaseAmendment(ctx context.Context, id int) (*PurchaseAmendment, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	amendment, err := utils.FetchModel[PurchaseAmendment](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("purchase amendment", "")
	}
	return amendment, nil
}

func ListPurchaseAmendments(ctx context.Context, purchaseOrderId int) ([]*PurchaseAmendment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if purchaseOrderId > 0 {
		dbCtx = dbCtx.Where("purchase_order_id = ?", purchaseOrderId)
	}
	var amendments []*PurchaseAmendment
	if err := dbCtx.Order("id desc").Find(&amendments).Error; err != nil {
		return nil, err
	}
	return amendments, nil
}
