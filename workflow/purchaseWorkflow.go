package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfirmPurchaseOrder moves Draft -> Confirmed. No stock moves yet; goods
// enter the ledger only when they physically arrive.
func ConfirmPurchaseOrder(ctx context.Context, logger *logrus.Logger, orderId int) (*models.PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var order *models.PurchaseOrder
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = utils.FetchModelForUpdate[models.PurchaseOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("purchase order", "")
		}
		if order.Status != models.PurchaseOrderStatusDraft {
			return utils.NewConflictError("purchase order is not in draft")
		}
		order.Status = models.PurchaseOrderStatusConfirmed
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type ReceivePurchaseInput struct {
	Lines []ReceivePurchaseLine `json:"lines" binding:"required,min=1"`
}

type ReceivePurchaseLine struct {
	DetailId    int             `json:"detail_id" binding:"required"`
	QtyReceived decimal.Decimal `json:"qty_received" binding:"required"`
}

// ReceivePurchaseOrder posts purchase movements for goods that arrived. A
// line can be received across several deliveries; the order reaches Received
// when every line is fully in.
func ReceivePurchaseOrder(ctx context.Context, logger *logrus.Logger, orderId int, input *ReceivePurchaseInput) (*models.PurchaseOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	var order *models.PurchaseOrder
	err := RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		var err error
		order, err = utils.FetchModelForUpdate[models.PurchaseOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("purchase order", "")
		}
		if order.Status != models.PurchaseOrderStatusConfirmed {
			return utils.NewConflictError("purchase order must be confirmed before receiving")
		}
		if err := tx.Where("purchase_order_id = ?", order.ID).Find(&order.Details).Error; err != nil {
			return err
		}
		details := make(map[int]*models.PurchaseOrderDetail, len(order.Details))
		for i := range order.Details {
			details[order.Details[i].ID] = &order.Details[i]
		}

		for _, line := range input.Lines {
			detail, ok := details[line.DetailId]
			if !ok {
				return utils.NewValidationError("detail_id", "unknown purchase order line")
			}
			if !line.QtyReceived.IsPositive() {
				return utils.NewValidationError("qty_received", "must be positive")
			}
			outstanding := detail.Qty.Sub(detail.QtyReceived)
			if line.QtyReceived.GreaterThan(outstanding) {
				return utils.NewValidationError("qty_received", "exceeds outstanding quantity for line")
			}

			if err := locks.StockKey(tx, order.WarehouseId, detail.VariantId); err != nil {
				return err
			}
			if _, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   order.WarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypePurchase,
				Qty:           line.QtyReceived,
				ReferenceType: models.StockReferenceTypePurchaseOrder,
				ReferenceId:   order.ID,
				CreatedBy:     userId,
				CorrelationId: correlationId,
			}); err != nil {
				return err
			}

			detail.QtyReceived = detail.QtyReceived.Add(line.QtyReceived)
			if err := tx.Model(&models.PurchaseOrderDetail{}).
				Where("id = ?", detail.ID).
				Update("qty_received", detail.QtyReceived).Error; err != nil {
				return err
			}
		}

		fullyReceived := true
		for i := range order.Details {
			if order.Details[i].Qty.GreaterThan(order.Details[i].QtyReceived) {
				fullyReceived = false
				break
			}
		}
		if fullyReceived {
			order.Status = models.PurchaseOrderStatusReceived
			if err := tx.Save(order).Error; err != nil {
				return err
			}
		}

		return models.RecordAudit(ctx, tx, "purchase_receive", string(models.StockReferenceTypePurchaseOrder), order.ID, map[string]interface{}{
			"fully_received": fullyReceived,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type SupplierReturnInput struct {
	DetailId int             `json:"detail_id" binding:"required"`
	Qty      decimal.Decimal `json:"qty" binding:"required"`
	Reason   string          `json:"reason" binding:"required"`
}

// ReturnToSupplier sends previously received goods back: a supplier_return
// movement leaves the warehouse and the line's received quantity rolls back,
// so a replacement delivery can still be received against the same line.
func ReturnToSupplier(ctx context.Context, logger *logrus.Logger, orderId int, input *SupplierReturnInput) (*AppendResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	if input.Reason == "" {
		return nil, utils.NewValidationError("reason", "supplier return requires a reason")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.NewValidationError("qty", "must be positive")
	}

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	allowNegative := business.RejectNegativeStock != nil && !*business.RejectNegativeStock

	var result *AppendResult
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		order, err := utils.FetchModelForUpdate[models.PurchaseOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("purchase order", "")
		}

		var detail models.PurchaseOrderDetail
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND purchase_order_id = ?", input.DetailId, order.ID).
			First(&detail).Error; err != nil {
			return utils.NewValidationError("detail_id", "unknown purchase order line")
		}
		if input.Qty.GreaterThan(detail.QtyReceived) {
			return utils.NewValidationError("qty", "exceeds quantity received for line")
		}

		if err := locks.StockKey(tx, order.WarehouseId, detail.VariantId); err != nil {
			return err
		}
		result, err = AppendMovement(tx, logger, AppendMovementInput{
			BusinessId:    businessId,
			WarehouseId:   order.WarehouseId,
			VariantId:     detail.VariantId,
			MovementType:  models.MovementTypeSupplierReturn,
			Qty:           input.Qty,
			ReferenceType: models.StockReferenceTypePurchaseOrder,
			ReferenceId:   order.ID,
			Reason:        input.Reason,
			CreatedBy:     userId,
			CorrelationId: correlationId,
			AllowNegative: allowNegative,
		})
		if err != nil {
			return err
		}

		if err := tx.Model(&models.PurchaseOrderDetail{}).
			Where("id = ?", detail.ID).
			Update("qty_received", detail.QtyReceived.Sub(input.Qty)).Error; err != nil {
			return err
		}
		if order.Status == models.PurchaseOrderStatusReceived {
			if err := tx.Model(&models.PurchaseOrder{}).
				Where("id = ?", order.ID).
				Update("status", models.PurchaseOrderStatusConfirmed).Error; err != nil {
				return err
			}
		}

		return models.RecordAudit(ctx, tx, "supplier_return", string(models.StockReferenceTypePurchaseOrder), order.ID, map[string]interface{}{
			"detail_id": detail.ID,
			"qty":       input.Qty.String(),
			"reason":    input.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishMovementNotification(ctx, logger, result.Movement, models.PubSubMessageActionCreate)
	return result, nil
}
