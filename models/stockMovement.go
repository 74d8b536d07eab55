package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is one immutable ledger row. Qty is stored unsigned; the
// movement type alone decides direction. BalanceAfter is the running balance
// for the (warehouse, variant) pair at the time this row was written.
type StockMovement struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index:idx_stock_key,priority:1;not null" json:"business_id"`
	WarehouseId   int                `gorm:"index:idx_stock_key,priority:2;not null" json:"warehouse_id"`
	VariantId     int                `gorm:"index:idx_stock_key,priority:3;not null" json:"variant_id"`
	MovementType  MovementType       `gorm:"size:30;not null" json:"movement_type"`
	Qty           decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"qty"`
	BalanceAfter  decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	MovementDate  time.Time          `gorm:"index;not null" json:"movement_date"`
	ReferenceType StockReferenceType `gorm:"size:10;not null" json:"reference_type"`
	ReferenceId   int                `gorm:"index" json:"reference_id"`
	Reason        string             `gorm:"type:text" json:"reason"`
	CreatedBy     int                `gorm:"not null" json:"created_by"`
	CorrelationId string             `gorm:"size:36;index" json:"correlation_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave enforces ledger row invariants.
//
// We ensure:
// - MovementType is one of the known types (direction table is total)
// - Qty is strictly positive (direction lives in the type, never the sign)
// - correction rows carry a written reason
func (m *StockMovement) BeforeSave(tx *gorm.DB) error {
	_ = tx // signature required by gorm; tx may be nil in tests
	if m == nil {
		return nil
	}
	if !m.MovementType.IsValid() {
		return errors.New("unknown movement type")
	}
	if !m.Qty.IsPositive() {
		return errors.New("movement qty must be positive")
	}
	if m.MovementType.IsCorrection() && m.Reason == "" {
		return errors.New("correction movement requires a reason")
	}
	return nil
}

// The ledger is append-only.
func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	_ = tx
	return errors.New("stock movements are immutable")
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	_ = tx
	return errors.New("stock movements are immutable")
}

// SignedQty is the quantity with the type's direction applied.
func (m *StockMovement) SignedQty() decimal.Decimal {
	return m.MovementType.SignedQty(m.Qty)
}

// ListStockMovements returns the ordered history for one (warehouse, variant)
// pair, oldest first, which is the fold order for balance recomputation.
func ListStockMovements(ctx context.Context, warehouseId int, variantId int, limit int) ([]*StockMovement, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		Order("movement_date asc, id asc")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	var movements []*StockMovement
	if err := dbCtx.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func ListMovementsByReference(ctx context.Context, referenceType StockReferenceType, referenceId int) ([]*StockMovement, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	db := config.GetDB()
	var movements []*StockMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Order("id asc").
		Find(&movements).Error
	return movements, err
}
