package workflow

import (
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RebuildResult struct {
	MovementsScanned int
	RowsRepaired     int
	FinalBalance     decimal.Decimal
}

// RebuildLedgerForKey re-folds the full movement history for one stock key:
// every row's balance-after is recomputed from the ordered history and the
// summary projection is reset to the final balance. The caller must already
// hold the stock key advisory lock for (warehouse, variant) so no append can
// interleave with the re-fold. Movement rows are otherwise immutable; the
// repair writes go through raw SQL on purpose so the model hooks keep
// blocking ordinary mutation paths.
func RebuildLedgerForKey(tx *gorm.DB, logger *logrus.Logger, businessId string, warehouseId int, variantId int) (*RebuildResult, error) {

	var movements []models.StockMovement
	if err := tx.Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		Order("movement_date asc, id asc").
		Find(&movements).Error; err != nil {
		return nil, err
	}

	result := &RebuildResult{MovementsScanned: len(movements)}
	balance := decimal.Zero
	lastMovementId := 0
	for i := range movements {
		m := &movements[i]
		balance = balance.Add(m.SignedQty())
		lastMovementId = m.ID
		if m.BalanceAfter.Equal(balance) {
			continue
		}
		if err := tx.Exec("UPDATE stock_movements SET balance_after = ? WHERE id = ?", balance, m.ID).Error; err != nil {
			config.LogError(logger, "rebuild.go", "RebuildLedgerForKey", "RepairBalanceAfter", m.ID, err)
			return nil, err
		}
		result.RowsRepaired++
	}
	result.FinalBalance = balance

	if len(movements) == 0 {
		if err := tx.Exec("DELETE FROM stock_summaries WHERE business_id = ? AND warehouse_id = ? AND variant_id = ?",
			businessId, warehouseId, variantId).Error; err != nil {
			return nil, err
		}
		return result, nil
	}

	updated := tx.Model(&models.StockSummary{}).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		Updates(map[string]interface{}{
			"current_qty":      balance,
			"last_movement_id": lastMovementId,
		})
	if updated.Error != nil {
		return nil, updated.Error
	}
	if updated.RowsAffected == 0 {
		summary := models.StockSummary{
			BusinessId:     businessId,
			WarehouseId:    warehouseId,
			VariantId:      variantId,
			CurrentQty:     balance,
			LastMovementId: lastMovementId,
		}
		if err := tx.Create(&summary).Error; err != nil {
			return nil, err
		}
	}
	return result, nil
}

type StockKey struct {
	WarehouseId int
	VariantId   int
}

// DiscoverStockKeys lists every (warehouse, variant) pair with ledger history
// for a business.
func DiscoverStockKeys(db *gorm.DB, businessId string) ([]StockKey, error) {
	var keys []StockKey
	err := db.Model(&models.StockMovement{}).
		Select("warehouse_id, variant_id").
		Where("business_id = ?", businessId).
		Group("warehouse_id, variant_id").
		Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

type ShiftCounterMismatch struct {
	Column   string
	Counter  decimal.Decimal
	Replayed decimal.Decimal
}

type ShiftVerifyResult struct {
	ShiftId        int
	EventsReplayed int
	Mismatches     []ShiftCounterMismatch
}

// VerifyShiftCounters replays a shift's event history from scratch and
// compares the folded totals against the running counters. Read only: normal
// operation trusts the counters, this is the periodic cross-check.
func VerifyShiftCounters(db *gorm.DB, businessId string, shiftId int) (*ShiftVerifyResult, error) {

	var shift models.CashierShift
	if err := db.Where("business_id = ? AND id = ?", businessId, shiftId).
		First(&shift).Error; err != nil {
		return nil, err
	}

	var events []models.ShiftEvent
	if err := db.Where("business_id = ? AND shift_id = ?", businessId, shiftId).
		Order("id asc").
		Find(&events).Error; err != nil {
		return nil, err
	}

	totals := map[string]decimal.Decimal{}
	for _, e := range events {
		column, ok := shiftCounterColumns[e.Kind]
		if !ok {
			continue
		}
		totals[column] = totals[column].Add(e.Amount)
	}

	counters := map[string]decimal.Decimal{
		"cash_sales":       shift.CashSales,
		"non_cash_sales":   shift.NonCashSales,
		"cash_in_total":    shift.CashInTotal,
		"cash_out_total":   shift.CashOutTotal,
		"ar_cash_payments": shift.ArCashPayments,
		"discounts":        shift.Discounts,
		"voids":            shift.Voids,
	}

	result := &ShiftVerifyResult{ShiftId: shiftId, EventsReplayed: len(events)}
	for column, counter := range counters {
		if replayed := totals[column]; !counter.Equal(replayed) {
			result.Mismatches = append(result.Mismatches, ShiftCounterMismatch{
				Column:   column,
				Counter:  counter,
				Replayed: replayed,
			})
		}
	}
	return result, nil
}

// DiscoverShiftIds lists every shift for a business, oldest first.
func DiscoverShiftIds(db *gorm.DB, businessId string) ([]int, error) {
	var ids []int
	err := db.Model(&models.CashierShift{}).
		Where("business_id = ?", businessId).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
