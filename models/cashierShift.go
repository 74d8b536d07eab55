package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// CashierShift carries running counters that are incremented per event as it
// commits, never recomputed by replaying history during normal operation.
// Close-time fields stay zero until the shift closes.
type CashierShift struct {
	ID          int         `gorm:"primary_key" json:"id"`
	BusinessId  string      `gorm:"index;not null" json:"business_id"`
	BranchId    int         `gorm:"index;not null" json:"branch_id"`
	CashierId   int         `gorm:"index;not null" json:"cashier_id"`
	SequenceNo  int64       `gorm:"index" json:"sequence_no"`
	ShiftNumber string      `gorm:"size:50;index" json:"shift_number"`
	Status      ShiftStatus `gorm:"size:20;not null;default:'Open'" json:"status"`

	BeginningCash decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"beginning_cash"`

	// running counters
	GrossSales       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"gross_sales"`
	CashSales        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_sales"`
	NonCashSales     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"non_cash_sales"`
	Discounts        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"discounts"`
	Voids            decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"voids"`
	CashInTotal      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_in_total"`
	CashOutTotal     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_out_total"`
	ArCashPayments   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"ar_cash_payments"`
	TransactionCount int             `gorm:"not null;default:0" json:"transaction_count"`

	// populated at close
	ExpectedCash     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"expected_cash"`
	CountedCash      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"counted_cash"`
	Variance         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"variance"`
	CashOver         decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_over"`
	CashShort        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"cash_short"`
	IsForceClosed    *bool           `gorm:"not null;default:false" json:"is_force_closed"`
	ForceCloseReason string          `gorm:"type:text" json:"force_close_reason"`
	ClosedBy         int             `json:"closed_by"`
	ClosedAt         *time.Time      `json:"closed_at"`

	OpenedAt  time.Time `gorm:"not null" json:"opened_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SystemExpectedCash reproduces the fixed reconciliation formula. This is
// the only place overpayment/change and AR collections reconcile.
func (s *CashierShift) SystemExpectedCash() decimal.Decimal {
	return s.BeginningCash.
		Add(s.CashSales).
		Add(s.CashInTotal).
		Sub(s.CashOutTotal).
		Add(s.ArCashPayments)
}

// ShiftEvent is the audit record behind each counter increment. The counters
// on CashierShift are authoritative for reconciliation; events exist for
// tracing, not for replay during normal operation.
type ShiftEvent struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	ShiftId       int             `gorm:"index;not null" json:"shift_id"`
	Kind          ShiftEventKind  `gorm:"size:30;not null" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	ReferenceType string          `gorm:"size:50" json:"reference_type"`
	ReferenceId   int             `json:"reference_id"`
	CreatedBy     int             `gorm:"not null" json:"created_by"`
	CorrelationId string          `gorm:"size:36;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetCashierShift(ctx context.Context, id int) (*CashierShift, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	shift, err := utils.FetchModel[CashierShift](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("cashier shift", "")
	}
	return shift, nil
}

// GetOpenShiftForCashier returns the cashier's current open shift, if any.
func GetOpenShiftForCashier(ctx context.Context, cashierId int) (*CashierShift, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var shift CashierShift
	err := db.WithContext(ctx).
		Where("business_id = ? AND cashier_id = ? AND status = ?", businessId, cashierId, ShiftStatusOpen).
		First(&shift).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &shift, nil
}

func ListShiftEvents(ctx context.Context, shiftId int) ([]*ShiftEvent, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	db := config.GetDB()
	var events []*ShiftEvent
	err := db.WithContext(ctx).
		Where("business_id = ? AND shift_id = ?", businessId, shiftId).
		Order("id asc").
		Find(&events).Error
	return events, err
}
