package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseOrder struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	BusinessId     string              `gorm:"index;not null" json:"business_id"`
	SequenceNo     int64               `gorm:"index" json:"sequence_no"`
	OrderNumber    string              `gorm:"size:50;index" json:"order_number"`
	WarehouseId    int                 `gorm:"index;not null" json:"warehouse_id"`
	SupplierName   string              `gorm:"size:100" json:"supplier_name"`
	Status         PurchaseOrderStatus `gorm:"size:20;not null;default:'Draft'" json:"status"`
	OrderDate      time.Time           `gorm:"not null" json:"order_date"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	PayableBalance decimal.Decimal     `gorm:"type:decimal(20,2);not null;default:0" json:"payable_balance"`
	CreatedBy      int                 `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Details []PurchaseOrderDetail `gorm:"foreignKey:PurchaseOrderId" json:"details"`
}

type PurchaseOrderDetail struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	VariantId       int             `gorm:"index;not null" json:"variant_id"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	QtyReceived     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"qty_received"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *PurchaseOrderDetail) LineTotal() decimal.Decimal {
	return d.Qty.Mul(d.UnitPrice).Round(2)
}

func (po *PurchaseOrder) RecalculateTotals() {
	total := decimal.Zero
	for i := range po.Details {
		total = total.Add(po.Details[i].LineTotal())
	}
	po.TotalAmount = total
}

type NewPurchaseOrder struct {
	WarehouseId  int                      `json:"warehouse_id" binding:"required"`
	SupplierName string                   `json:"supplier_name"`
	OrderDate    time.Time                `json:"order_date"`
	Details      []NewPurchaseOrderDetail `json:"details" binding:"required,min=1"`
}

type NewPurchaseOrderDetail struct {
	VariantId int             `json:"variant_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (input *NewPurchaseOrder) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return errors.New("warehouse not found")
	}
	variantIds := make([]int, 0, len(input.Details))
	for _, d := range input.Details {
		if !d.Qty.IsPositive() {
			return utils.NewValidationError("qty", "must be positive")
		}
		if d.UnitPrice.IsNegative() {
			return utils.NewValidationError("unit_price", "must not be negative")
		}
		variantIds = append(variantIds, d.VariantId)
	}
	if err := utils.ValidateResourcesId[ProductVariant, int](ctx, businessId, variantIds); err != nil {
		return errors.New("product variant not found")
	}
	return nil
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx, businessId)
	if err != nil {
		return nil, err
	}
	orderNumber, err := FormatDocumentNumber(ctx, branchId, ModuleNamePurchaseOrder, seqNo)
	if err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	order := PurchaseOrder{
		BusinessId:   businessId,
		SequenceNo:   seqNo,
		OrderNumber:  orderNumber,
		WarehouseId:  input.WarehouseId,
		SupplierName: input.SupplierName,
		Status:       PurchaseOrderStatusDraft,
		OrderDate:    orderDate,
		CreatedBy:    userId,
	}
	for _, d := range input.Details {
		order.Details = append(order.Details, PurchaseOrderDetail{
			VariantId: d.VariantId,
			Qty:       d.Qty,
			UnitPrice: d.UnitPrice,
		})
	}
	order.RecalculateTotals()
	order.PayableBalance = order.TotalAmount

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	order, err := utils.FetchModel[PurchaseOrder](ctx, businessId, id, "Details")
	if err != nil {
		return nil, utils.NewNotFoundError("purchase order", "")
	}
	return order, nil
}

func ListPurchaseOrders(ctx context.Context, status PurchaseOrderStatus) ([]*PurchaseOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Details").Where("business_id = ?", businessId)
	if status != "" {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	var orders []*PurchaseOrder
	if err := dbCtx.Order("id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
