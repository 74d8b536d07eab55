package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type OpeningStockLine struct {
	VariantId int             `json:"variant_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
}

type OpeningStockInput struct {
	WarehouseId int                `json:"warehouse_id" binding:"required"`
	Lines       []OpeningStockLine `json:"lines" binding:"required,min=1"`
}

// PostOpeningStock seeds the ledger for a warehouse. A key that already has
// movements cannot receive opening stock; its history starts where it starts.
func PostOpeningStock(ctx context.Context, logger *logrus.Logger, input *OpeningStockInput) ([]*AppendResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	if err := utils.ValidateResourceId[models.Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return nil, utils.NewNotFoundError("warehouse", "")
	}

	var results []*AppendResult
	err := RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		for _, line := range input.Lines {
			if !line.Qty.IsPositive() {
				return utils.NewValidationError("qty", "must be positive")
			}
			if err := locks.StockKey(tx, input.WarehouseId, line.VariantId); err != nil {
				return err
			}

			var count int64
			if err := tx.Model(&models.StockMovement{}).
				Where("business_id = ? AND warehouse_id = ? AND variant_id = ?", businessId, input.WarehouseId, line.VariantId).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return utils.NewConflictError("stock key already has movements, opening stock not allowed")
			}

			result, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   input.WarehouseId,
				VariantId:     line.VariantId,
				MovementType:  models.MovementTypeOpeningStock,
				Qty:           line.Qty,
				ReferenceType: models.StockReferenceTypeOpeningStock,
				CreatedBy:     userId,
				CorrelationId: correlationId,
			})
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		PublishMovementNotification(ctx, logger, result.Movement, models.PubSubMessageActionCreate)
	}
	return results, nil
}

type AdjustmentInput struct {
	WarehouseId int             `json:"warehouse_id" binding:"required"`
	VariantId   int             `json:"variant_id" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	Increase    bool            `json:"increase"`
	Reason      string          `json:"reason" binding:"required"`
}

// PostAdjustment records a physical count discrepancy (damage, loss, found
// stock) as an adjustment movement. Distinct from corrections, which repair
// bookkeeping drift and carry a stricter permission.
func PostAdjustment(ctx context.Context, logger *logrus.Logger, input *AdjustmentInput) (*AppendResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if input.Reason == "" {
		return nil, utils.NewValidationError("reason", "adjustment requires a reason")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.NewValidationError("qty", "must be positive")
	}

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	allowNegative := business.RejectNegativeStock != nil && !*business.RejectNegativeStock

	movementType := models.MovementTypeAdjustmentDecrease
	if input.Increase {
		movementType = models.MovementTypeAdjustmentIncrease
	}

	var result *AppendResult
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
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
			ReferenceType: models.StockReferenceTypeAdjustment,
			Reason:        input.Reason,
			CreatedBy:     userId,
			CorrelationId: models.CorrelationIdFromContextOrNew(ctx),
			AllowNegative: allowNegative,
		})
		if err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "stock_adjustment", string(models.NotificationReferenceStockMovement), result.Movement.ID, map[string]interface{}{
			"warehouse_id": input.WarehouseId,
			"variant_id":   input.VariantId,
			"qty":          input.Qty.String(),
			"increase":     input.Increase,
			"reason":       input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishMovementNotification(ctx, logger, result.Movement, models.PubSubMessageActionCreate)
	return result, nil
}
