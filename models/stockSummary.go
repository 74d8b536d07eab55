package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// StockSummary is the materialized current-balance projection, maintained in
// the same transaction as each ledger append. It is a cache of the ledger,
// never a second source of truth: RecomputeBalance folding the movement
// history is always authoritative, and a disagreement beyond epsilon is
// drift to be reported, not patched here.
type StockSummary struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"uniqueIndex:uq_stock_summary,priority:1;not null" json:"business_id"`
	WarehouseId    int             `gorm:"uniqueIndex:uq_stock_summary,priority:2;not null" json:"warehouse_id"`
	VariantId      int             `gorm:"uniqueIndex:uq_stock_summary,priority:3;not null" json:"variant_id"`
	CurrentQty     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_qty"`
	LastMovementId int             `gorm:"index" json:"last_movement_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetStockSummary(ctx context.Context, warehouseId int, variantId int) (*StockSummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var summary StockSummary
	err := db.WithContext(ctx).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		First(&summary).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &summary, nil
}

func ListStockSummaries(ctx context.Context, warehouseId int) ([]*StockSummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if warehouseId > 0 {
		dbCtx = dbCtx.Where("warehouse_id = ?", warehouseId)
	}
	var summaries []*StockSummary
	if err := dbCtx.Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}
