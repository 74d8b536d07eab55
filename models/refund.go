package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// Refund returns sold items to stock via customer_return movements. Refund
// quantities can never exceed the invoice line's sold-minus-already-refunded
// quantity; the workflow enforces that inside the posting transaction.
type Refund struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	SequenceNo     int64           `gorm:"index" json:"sequence_no"`
	RefundNumber   string          `gorm:"size:50;index" json:"refund_number"`
	SalesInvoiceId int             `gorm:"index;not null" json:"sales_invoice_id"`
	WarehouseId    int             `gorm:"index;not null" json:"warehouse_id"`
	ShiftId        int             `gorm:"index" json:"shift_id"`
	Status         RefundStatus    `gorm:"size:20;not null;default:'Draft'" json:"status"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	Reason         string          `gorm:"type:text" json:"reason"`
	CreatedBy      int             `gorm:"not null" json:"created_by"`
	ApprovedBy     *int            `json:"approved_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Details []RefundDetail `gorm:"foreignKey:RefundId" json:"details"`
}

type RefundDetail struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	RefundId             int             `gorm:"index;not null" json:"refund_id"`
	SalesInvoiceDetailId int             `gorm:"index;not null" json:"sales_invoice_detail_id"`
	VariantId            int             `gorm:"index;not null" json:"variant_id"`
	Qty                  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Refund) ActorInSlot(slot ActorSlot) int {
	switch slot {
	case ActorSlotCreatedBy:
		return r.CreatedBy
	case ActorSlotApprovedBy:
		return utils.DereferencePtr(r.ApprovedBy)
	default:
		return 0
	}
}

type NewRefund struct {
	SalesInvoiceId int               `json:"sales_invoice_id" binding:"required"`
	ShiftId        int               `json:"shift_id"`
	Reason         string            `json:"reason"`
	Details        []NewRefundDetail `json:"details" binding:"required,min=1"`
}

type NewRefundDetail struct {
	SalesInvoiceDetailId int             `json:"sales_invoice_detail_id" binding:"required"`
	Qty                  decimal.Decimal `json:"qty" binding:"required"`
}

// CreateRefund drafts a refund against a confirmed invoice. The refundable
// ceiling is checked here for early feedback and again under lock when the
// refund confirms.
func CreateRefund(ctx context.Context, input *NewRefund) (*Refund, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	invoice, err := GetSalesInvoice(ctx, input.SalesInvoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status != SalesInvoiceStatusConfirmed && invoice.Status != SalesInvoiceStatusRefunded {
		return nil, utils.NewConflictError("sales invoice is not refundable in its current state")
	}

	invoiceLines := make(map[int]*SalesInvoiceDetail, len(invoice.Details))
	for i := range invoice.Details {
		invoiceLines[invoice.Details[i].ID] = &invoice.Details[i]
	}

	seqNo, err := utils.GetSequence[Refund](ctx, businessId)
	if err != nil {
		return nil, err
	}
	refundNumber, err := FormatDocumentNumber(ctx, branchId, ModuleNameRefund, seqNo)
	if err != nil {
		return nil, err
	}

	refund := Refund{
		BusinessId:     businessId,
		SequenceNo:     seqNo,
		RefundNumber:   refundNumber,
		SalesInvoiceId: invoice.ID,
		WarehouseId:    invoice.WarehouseId,
		ShiftId:        input.ShiftId,
		Status:         RefundStatusDraft,
		Reason:         input.Reason,
		CreatedBy:      userId,
	}
	total := decimal.Zero
	for _, d := range input.Details {
		line, ok := invoiceLines[d.SalesInvoiceDetailId]
		if !ok {
			return nil, utils.NewValidationError("details", "unknown sales invoice line")
		}
		if !d.Qty.IsPositive() {
			return nil, utils.NewValidationError("qty", "must be positive")
		}
		if d.Qty.GreaterThan(line.RefundableQty()) {
			return nil, utils.NewValidationError("qty", "exceeds refundable quantity for line")
		}
		refund.Details = append(refund.Details, RefundDetail{
			SalesInvoiceDetailId: d.SalesInvoiceDetailId,
			VariantId:            line.VariantId,
			Qty:                  d.Qty,
			UnitPrice:            line.UnitPrice,
		})
		total = total.Add(d.Qty.Mul(line.UnitPrice))
	}
	refund.TotalAmount = total.Round(2)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func GetRefund(ctx context.Context, id int) (*Refund, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	refund, err := utils.FetchModel[Refund](ctx, businessId, id, "Details")
	if err != nil {
		return nil, utils.NewNotFoundError("refund", "")
	}
	return refund, nil
}

func ListRefunds(ctx context.Context, salesInvoiceId int) ([]*Refund, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Details").Where("business_id = ?", businessId)
	if salesInvoiceId > 0 {
		dbCtx = dbCtx.Where("sales_invoice_id = ?", salesInvoiceId)
	}
	var refunds []*Refund
	if err := dbCtx.Order("id desc").Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
