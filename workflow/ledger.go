package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DriftEpsilon absorbs decimal rounding when comparing the cached projection
// against a recomputed balance. Anything beyond it is drift.
var DriftEpsilon = decimal.NewFromFloat(0.0001)

type AppendMovementInput struct {
	BusinessId    string
	WarehouseId   int
	VariantId     int
	MovementType  models.MovementType
	Qty           decimal.Decimal
	MovementDate  time.Time
	ReferenceType models.StockReferenceType
	ReferenceId   int
	Reason        string
	CreatedBy     int
	CorrelationId string
	// AllowNegative lets the resulting balance go below zero. The anomaly is
	// still reported on the result; the ledger never hides it.
	AllowNegative bool
}

type AppendResult struct {
	Movement   *models.StockMovement
	NewBalance decimal.Decimal
	// Anomaly is set when the append drove the balance negative and
	// AllowNegative permitted it.
	Anomaly *utils.InsufficientBalanceAnomaly
}

// AppendMovement writes one ledger row and maintains the StockSummary
// projection in the caller's transaction. The caller must already hold the
// stock key advisory lock for (warehouse, variant); every movement for a
// key folds in a single total order.
func AppendMovement(tx *gorm.DB, logger *logrus.Logger, input AppendMovementInput) (*AppendResult, error) {

	if !input.MovementType.IsValid() {
		return nil, utils.NewValidationError("movement_type", "unknown movement type")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.NewValidationError("qty", "must be positive")
	}
	if input.MovementType.IsCorrection() && input.Reason == "" {
		return nil, utils.NewValidationError("reason", "correction movement requires a reason")
	}

	currentBalance, err := currentBalanceForUpdate(tx, input.BusinessId, input.WarehouseId, input.VariantId)
	if err != nil {
		config.LogError(logger, "ledger.go", "AppendMovement", "currentBalanceForUpdate", input, err)
		return nil, err
	}

	signedQty := input.MovementType.SignedQty(input.Qty)
	newBalance := currentBalance.Add(signedQty)

	var anomaly *utils.InsufficientBalanceAnomaly
	if newBalance.IsNegative() {
		anomaly = &utils.InsufficientBalanceAnomaly{
			WarehouseId: input.WarehouseId,
			VariantId:   input.VariantId,
			Balance:     currentBalance.String(),
			Requested:   input.Qty.String(),
		}
		if !input.AllowNegative {
			return nil, anomaly
		}
	}

	movementDate := input.MovementDate
	if movementDate.IsZero() {
		movementDate = time.Now()
	}
	movement := models.StockMovement{
		BusinessId:    input.BusinessId,
		WarehouseId:   input.WarehouseId,
		VariantId:     input.VariantId,
		MovementType:  input.MovementType,
		Qty:           input.Qty,
		BalanceAfter:  newBalance,
		MovementDate:  movementDate,
		ReferenceType: input.ReferenceType,
		ReferenceId:   input.ReferenceId,
		Reason:        input.Reason,
		CreatedBy:     input.CreatedBy,
		CorrelationId: input.CorrelationId,
	}
	if err := tx.Create(&movement).Error; err != nil {
		config.LogError(logger, "ledger.go", "AppendMovement", "CreateMovement", input, err)
		return nil, err
	}

	if err := upsertSummary(tx, &movement, signedQty); err != nil {
		config.LogError(logger, "ledger.go", "AppendMovement", "UpsertSummary", input, err)
		return nil, err
	}

	return &AppendResult{
		Movement:   &movement,
		NewBalance: newBalance,
		Anomaly:    anomaly,
	}, nil
}

// currentBalanceForUpdate reads the projection row with a row lock; a missing
// row means no movements yet, balance zero.
func currentBalanceForUpdate(tx *gorm.DB, businessId string, warehouseId int, variantId int) (decimal.Decimal, error) {
	var summary models.StockSummary
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return summary.CurrentQty, nil
}

func upsertSummary(tx *gorm.DB, movement *models.StockMovement, signedQty decimal.Decimal) error {
	result := tx.Model(&models.StockSummary{}).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?",
			movement.BusinessId, movement.WarehouseId, movement.VariantId).
		Updates(map[string]interface{}{
			"current_qty":      gorm.Expr("current_qty + ?", signedQty),
			"last_movement_id": movement.ID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	// first movement for this key
	summary := models.StockSummary{
		BusinessId:     movement.BusinessId,
		WarehouseId:    movement.WarehouseId,
		VariantId:      movement.VariantId,
		CurrentQty:     signedQty,
		LastMovementId: movement.ID,
	}
	return tx.Create(&summary).Error
}

// CurrentBalance reads the cached projection. Zero when the key has never
// moved. This value may drift; RecomputeBalance is authoritative.
func CurrentBalance(ctx context.Context, warehouseId int, variantId int) (decimal.Decimal, error) {
	summary, err := models.GetStockSummary(ctx, warehouseId, variantId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return summary.CurrentQty, nil
}

// RecomputeBalance folds the full ordered movement history for one key.
// The direction table is rendered into SQL so the database applies the same
// sign the ledger used at append time.
func RecomputeBalance(tx *gorm.DB, businessId string, warehouseId int, variantId int) (decimal.Decimal, error) {
	inbound := models.InboundMovementTypes()
	inboundNames := make([]string, 0, len(inbound))
	for _, t := range inbound {
		inboundNames = append(inboundNames, string(t))
	}

	var balance decimal.NullDecimal
	err := tx.Model(&models.StockMovement{}).
		Select("SUM(CASE WHEN movement_type IN ? THEN qty ELSE -qty END)", inboundNames).
		Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		Scan(&balance).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !balance.Valid {
		return decimal.Zero, nil
	}
	return balance.Decimal, nil
}

// CheckDrift compares the cached projection against the recomputed balance.
// A mismatch beyond DriftEpsilon is returned as LedgerDriftError: reported,
// never auto-corrected; repair requires an explicit correction movement.
func CheckDrift(tx *gorm.DB, businessId string, warehouseId int, variantId int) (*utils.LedgerDriftError, error) {
	recomputed, err := RecomputeBalance(tx, businessId, warehouseId, variantId)
	if err != nil {
		return nil, err
	}

	var summary models.StockSummary
	cached := decimal.Zero
	err = tx.Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, warehouseId, variantId).
		First(&summary).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		cached = summary.CurrentQty
	}

	if cached.Sub(recomputed).Abs().GreaterThan(DriftEpsilon) {
		return &utils.LedgerDriftError{
			WarehouseId: warehouseId,
			VariantId:   variantId,
			Cached:      cached.String(),
			Recomputed:  recomputed.String(),
		}, nil
	}
	return nil, nil
}

type CorrectionInput struct {
	WarehouseId int             `json:"warehouse_id" binding:"required"`
	VariantId   int             `json:"variant_id" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	Increase    bool            `json:"increase"`
	Reason      string          `json:"reason" binding:"required"`
}

// AppendCorrection posts an explicit, audited correction movement. This is
// the only sanctioned way to bring a drifted projection back in line with
// reality: the correction goes through the ledger like any other movement.
func AppendCorrection(ctx context.Context, logger *logrus.Logger, input *CorrectionInput) (*AppendResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if !models.HasPermission(ctx, userId, models.PermissionAppendCorrection) {
		return nil, utils.NewValidationError("user", "not permitted to append corrections")
	}
	if input.Reason == "" {
		return nil, utils.NewValidationError("reason", "correction requires a written reason")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.NewValidationError("qty", "must be positive")
	}

	movementType := models.MovementTypeCorrectionDecrease
	if input.Increase {
		movementType = models.MovementTypeCorrectionIncrease
	}

	var result *AppendResult
	err := RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.StockKey(tx, input.WarehouseId, input.VariantId); err != nil {
			return err
		}

		var err error
		result, err = AppendMovement(tx, logger, AppendMovementInput{
			BusinessId:    businessId,
			WarehouseId:   input.WarehouseId,
			VariantId:     input.VariantId,
			MovementType:  movementType,
			Qty:           input.Qty,
			ReferenceType: models.StockReferenceTypeCorrection,
			Reason:        input.Reason,
			CreatedBy:     userId,
			CorrelationId: models.CorrelationIdFromContextOrNew(ctx),
			AllowNegative: true,
		})
		if err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "stock_correction", string(models.NotificationReferenceStockMovement), result.Movement.ID, map[string]interface{}{
			"warehouse_id": input.WarehouseId,
			"variant_id":   input.VariantId,
			"qty":          input.Qty.String(),
			"increase":     input.Increase,
			"reason":       input.Reason,
			"new_balance":  result.NewBalance.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	PublishMovementNotification(ctx, logger, result.Movement, models.PubSubMessageActionCreate)
	return result, nil
}
