package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type SalesInvoice struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index;not null" json:"business_id"`
	SequenceNo    int64              `gorm:"index" json:"sequence_no"`
	InvoiceNumber string             `gorm:"size:50;index" json:"invoice_number"`
	WarehouseId   int                `gorm:"index;not null" json:"warehouse_id"`
	ShiftId       int                `gorm:"index" json:"shift_id"`
	Status        SalesInvoiceStatus `gorm:"size:20;not null;default:'Draft'" json:"status"`
	InvoiceDate   time.Time          `gorm:"not null" json:"invoice_date"`
	TotalAmount   decimal.Decimal    `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	CashAmount    decimal.Decimal    `gorm:"type:decimal(20,2);not null;default:0" json:"cash_amount"`
	CreatedBy     int                `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	Details []SalesInvoiceDetail `gorm:"foreignKey:SalesInvoiceId" json:"details"`
}

// RefundedQty is maintained as refunds confirm so the refundable quantity is
// a column comparison, not a scan over refund documents.
type SalesInvoiceDetail struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SalesInvoiceId int             `gorm:"index;not null" json:"sales_invoice_id"`
	VariantId      int             `gorm:"index;not null" json:"variant_id"`
	Qty            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	RefundedQty    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"refunded_qty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *SalesInvoiceDetail) RefundableQty() decimal.Decimal {
	return d.Qty.Sub(d.RefundedQty)
}

type NewSalesInvoice struct {
	WarehouseId int                     `json:"warehouse_id" binding:"required"`
	ShiftId     int                     `json:"shift_id"`
	InvoiceDate time.Time               `json:"invoice_date"`
	CashAmount  decimal.Decimal         `json:"cash_amount"`
	Details     []NewSalesInvoiceDetail `json:"details" binding:"required,min=1"`
}

type NewSalesInvoiceDetail struct {
	VariantId int             `json:"variant_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (input *NewSalesInvoice) validate(ctx context.Context, businessId string) error {
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
	if input.CashAmount.IsNegative() {
		return utils.NewValidationError("cash_amount", "must not be negative")
	}
	return nil
}

func CreateSalesInvoice(ctx context.Context, input *NewSalesInvoice) (*SalesInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	branchId, _ := utils.GetBranchIdFromContext(ctx)

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[SalesInvoice](ctx, businessId)
	if err != nil {
		return nil, err
	}
	invoiceNumber, err := FormatDocumentNumber(ctx, branchId, ModuleNameSalesInvoice, seqNo)
	if err != nil {
		return nil, err
	}

	invoiceDate := input.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}
	invoice := SalesInvoice{
		BusinessId:    businessId,
		SequenceNo:    seqNo,
		InvoiceNumber: invoiceNumber,
		WarehouseId:   input.WarehouseId,
		ShiftId:       input.ShiftId,
		Status:        SalesInvoiceStatusDraft,
		InvoiceDate:   invoiceDate,
		CashAmount:    input.CashAmount.Round(2),
		CreatedBy:     userId,
	}
	total := decimal.Zero
	for _, d := range input.Details {
		invoice.Details = append(invoice.Details, SalesInvoiceDetail{
			VariantId: d.VariantId,
			Qty:       d.Qty,
			UnitPrice: d.UnitPrice,
		})
		total = total.Add(d.Qty.Mul(d.UnitPrice))
	}
	invoice.TotalAmount = total.Round(2)
	if invoice.CashAmount.GreaterThan(invoice.TotalAmount) {
		return nil, utils.NewValidationError("cash_amount", "cannot exceed invoice total")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func GetSalesInvoice(ctx context.Context, id int) (*SalesInvoice, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	invoice, err := utils.FetchModel[SalesInvoice](ctx, businessId, id, "Details")
	if err != nil {
		return nil, utils.NewNotFoundError("sales invoice", "")
	}
	return invoice, nil
}

func ListSalesInvoices(ctx context.Context, shiftId int) ([]*SalesInvoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Details").Where("business_id = ?", businessId)
	if shiftId > 0 {
		dbCtx = dbCtx.Where("shift_id = ?", shiftId)
	}
	var invoices []*SalesInvoice
	if err := dbCtx.Order("id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
