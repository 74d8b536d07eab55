package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// TransferOrder moves stock between two warehouses through
// Draft -> Checked -> InTransit -> PartiallyReceived/Completed, with
// Cancelled reachable from any non-terminal state. Once StockDeducted is
// set the flag is never reverted; cancellation after deduction creates
// compensating ledger movements instead.
type TransferOrder struct {
	ID                     int                 `gorm:"primary_key" json:"id"`
	BusinessId             string              `gorm:"index;not null" json:"business_id"`
	SequenceNo             int64               `gorm:"index" json:"sequence_no"`
	TransferNumber         string              `gorm:"size:50;index" json:"transfer_number"`
	SourceWarehouseId      int                 `gorm:"index;not null" json:"source_warehouse_id"`
	DestinationWarehouseId int                 `gorm:"index;not null" json:"destination_warehouse_id"`
	Status                 TransferOrderStatus `gorm:"size:30;not null;default:'Draft'" json:"status"`
	StockDeducted          *bool               `gorm:"not null;default:false" json:"stock_deducted"`
	Notes                  string              `gorm:"type:text" json:"notes"`

	CreatedBy    int        `gorm:"not null" json:"created_by"`
	CheckedBy    *int       `json:"checked_by"`
	CheckedAt    *time.Time `json:"checked_at"`
	SentBy       *int       `json:"sent_by"`
	SentAt       *time.Time `json:"sent_at"`
	ReceivedBy   *int       `json:"received_by"`
	ReceivedAt   *time.Time `json:"received_at"`
	CancelledBy  *int       `json:"cancelled_by"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Details []TransferOrderDetail `gorm:"foreignKey:TransferOrderId" json:"details"`
}

type TransferOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	TransferOrderId int             `gorm:"index;not null" json:"transfer_order_id"`
	VariantId       int             `gorm:"index;not null" json:"variant_id"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	QtyReceived     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"qty_received"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Shortfall is the sent-but-unreceived quantity, tracked explicitly and
// never silently dropped on partial receipt.
func (d *TransferOrderDetail) Shortfall() decimal.Decimal {
	return d.Qty.Sub(d.QtyReceived)
}

// ActorInSlot exposes the recorded actor history to the SOD validator.
// Zero means the slot is not yet filled.
func (t *TransferOrder) ActorInSlot(slot ActorSlot) int {
	switch slot {
	case ActorSlotCreatedBy:
		return t.CreatedBy
	case ActorSlotCheckedBy:
		return utils.DereferencePtr(t.CheckedBy)
	case ActorSlotSentBy:
		return utils.DereferencePtr(t.SentBy)
	case ActorSlotReceivedBy:
		return utils.DereferencePtr(t.ReceivedBy)
	default:
		return 0
	}
}

type NewTransferOrder struct {
	SourceWarehouseId      int                      `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseId int                      `json:"destination_warehouse_id" binding:"required"`
	Notes                  string                   `json:"notes"`
	Details                []NewTransferOrderDetail `json:"details" binding:"required,min=1"`
}

type NewTransferOrderDetail struct {
	VariantId int             `json:"variant_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

func (input *NewTransferOrder) validate(ctx context.Context, businessId string) error {
	if input.SourceWarehouseId == input.DestinationWarehouseId {
		return utils.NewValidationError("destination_warehouse_id", "source and destination must differ")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.SourceWarehouseId); err != nil {
		return errors.New("source warehouse not found")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.DestinationWarehouseId); err != nil {
		return errors.New("destination warehouse not found")
	}
	variantIds := make([]int, 0, len(input.Details))
	for _, d := range input.Details {
		if !d.Qty.IsPositive() {
			return utils.NewValidationError("qty", "must be positive")
		}
		variantIds = append(variantIds, d.VariantId)
	}
	if err := utils.ValidateResourcesId[ProductVariant, int](ctx, businessId, variantIds); err != nil {
		return errors.New("product variant not found")
	}
	return nil
}

func CreateTransferOrder(ctx context.Context, input *NewTransferOrder) (*TransferOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[TransferOrder](ctx, businessId)
	if err != nil {
		return nil, err
	}
	transferNumber, err := FormatDocumentNumber(ctx, branchId, ModuleNameTransferOrder, seqNo)
	if err != nil {
		return nil, err
	}

	order := TransferOrder{
		BusinessId:             businessId,
		SequenceNo:             seqNo,
		TransferNumber:         transferNumber,
		SourceWarehouseId:      input.SourceWarehouseId,
		DestinationWarehouseId: input.DestinationWarehouseId,
		Status:                 TransferOrderStatusDraft,
		StockDeducted:          utils.NewFalse(),
		Notes:                  input.Notes,
		CreatedBy:              userId,
	}
	for _, d := range input.Details {
		order.Details = append(order.Details, TransferOrderDetail{
			VariantId: d.VariantId,
			Qty:       d.Qty,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetTransferOrder(ctx context.Context, id int) (*TransferOrder, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	order, err := utils.FetchModel[TransferOrder](ctx, businessId, id, "Details")
	if err != nil {
		return nil, utils.NewNotFoundError("transfer order", "")
	}
	return order, nil
}

func ListTransferOrders(ctx context.Context, status TransferOrderStatus) ([]*TransferOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Details").Where("business_id = ?", businessId)
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	var orders []*TransferOrder
	if err := dbCtx.Order("id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
