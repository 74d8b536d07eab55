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
)

// CheckTransferOrder moves Draft -> Checked. The checker must satisfy the
// business's SOD rules against the recorded creator.
func CheckTransferOrder(ctx context.Context, logger *logrus.Logger, orderId int) (*models.TransferOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)

	rules, err := models.ListSODRules(ctx, models.SODEntityTransferOrder)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var order *models.TransferOrder
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err = utils.FetchModelForUpdate[models.TransferOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("transfer order", "")
		}
		if order.Status != models.TransferOrderStatusDraft {
			return utils.NewConflictError("transfer order is not in draft")
		}

		if err := ValidateSeparation(order, models.ActorSlotCheckedBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		now := time.Now()
		order.Status = models.TransferOrderStatusChecked
		order.CheckedBy = &userId
		order.CheckedAt = &now
		return tx.Save(order).Error
	})
	if err != nil {
		return nil, err
	}

	PublishTransferNotification(ctx, logger, order, models.PubSubMessageActionStateChange)
	return order, nil
}

// SendTransferOrder moves Checked -> InTransit: validates SOD, appends a
// transfer_out movement at the origin for every line, and flags the order
// stock-deducted, all in one transaction. The flag is never reverted; a
// later cancellation compensates through the ledger instead.
func SendTransferOrder(ctx context.Context, logger *logrus.Logger, orderId int) (*models.TransferOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	allowNegative := business.RejectNegativeStock != nil && !*business.RejectNegativeStock

	rules, err := models.ListSODRules(ctx, models.SODEntityTransferOrder)
	if err != nil {
		return nil, err
	}

	var order *models.TransferOrder
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		order, err = utils.FetchModelForUpdate[models.TransferOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("transfer order", "")
		}
		if order.Status != models.TransferOrderStatusChecked {
			return utils.NewConflictError("transfer order must be checked before sending")
		}

		if err := ValidateSeparation(order, models.ActorSlotSentBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		if err := tx.Where("transfer_order_id = ?", order.ID).Find(&order.Details).Error; err != nil {
			return err
		}
		for _, detail := range order.Details {
			if err := locks.StockKey(tx, order.SourceWarehouseId, detail.VariantId); err != nil {
				return err
			}
			result, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   order.SourceWarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypeTransferOut,
				Qty:           detail.Qty,
				ReferenceType: models.StockReferenceTypeTransferOrder,
				ReferenceId:   order.ID,
				CreatedBy:     userId,
				CorrelationId: correlationId,
				AllowNegative: allowNegative,
			})
			if err != nil {
				return err
			}
			if result.Anomaly != nil {
				config.LogWarn(logger, "transferWorkflow.go", "SendTransferOrder", "NegativeBalance", result.Anomaly, result.Anomaly.Error())
			}
		}

		now := time.Now()
		order.Status = models.TransferOrderStatusInTransit
		order.StockDeducted = utils.NewTrue()
		order.SentBy = &userId
		order.SentAt = &now
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "transfer_send", string(models.NotificationReferenceTransferOrder), order.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	PublishTransferNotification(ctx, logger, order, models.PubSubMessageActionStateChange)
	return order, nil
}

type ReceiveTransferInput struct {
	Lines []ReceiveTransferLine `json:"lines" binding:"required,min=1"`
}

type ReceiveTransferLine struct {
	DetailId    int             `json:"detail_id" binding:"required"`
	QtyReceived decimal.Decimal `json:"qty_received" binding:"required"`
}

// ReceiveTransferOrder appends transfer_in movements at the destination.
// Quantities received may be less than sent; the shortfall stays tracked on
// the lines and the order lands in PartiallyReceived, never silently
// Completed.
func ReceiveTransferOrder(ctx context.Context, logger *logrus.Logger, orderId int, input *ReceiveTransferInput) (*models.TransferOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	rules, err := models.ListSODRules(ctx, models.SODEntityTransferOrder)
	if err != nil {
		return nil, err
	}

	var order *models.TransferOrder
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		order, err = utils.FetchModelForUpdate[models.TransferOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("transfer order", "")
		}
		if order.Status != models.TransferOrderStatusInTransit && order.Status != models.TransferOrderStatusPartiallyReceived {
			return utils.NewConflictError("transfer order is not in transit")
		}

		if err := ValidateSeparation(order, models.ActorSlotReceivedBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		if err := tx.Where("transfer_order_id = ?", order.ID).Find(&order.Details).Error; err != nil {
			return err
		}
		details := make(map[int]*models.TransferOrderDetail, len(order.Details))
		for i := range order.Details {
			details[order.Details[i].ID] = &order.Details[i]
		}

		for _, line := range input.Lines {
			detail, ok := details[line.DetailId]
			if !ok {
				return utils.NewValidationError("detail_id", "unknown transfer line")
			}
			if !line.QtyReceived.IsPositive() {
				return utils.NewValidationError("qty_received", "must be positive")
			}
			if line.QtyReceived.GreaterThan(detail.Shortfall()) {
				return utils.NewValidationError("qty_received", "exceeds outstanding quantity for line")
			}

			if err := locks.StockKey(tx, order.DestinationWarehouseId, detail.VariantId); err != nil {
				return err
			}
			if _, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   order.DestinationWarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypeTransferIn,
				Qty:           line.QtyReceived,
				ReferenceType: models.StockReferenceTypeTransferOrder,
				ReferenceId:   order.ID,
				CreatedBy:     userId,
				CorrelationId: correlationId,
			}); err != nil {
				return err
			}

			detail.QtyReceived = detail.QtyReceived.Add(line.QtyReceived)
			if err := tx.Model(&models.TransferOrderDetail{}).
				Where("id = ?", detail.ID).
				Update("qty_received", detail.QtyReceived).Error; err != nil {
				return err
			}
		}

		fullyReceived := true
		for i := range order.Details {
			if order.Details[i].Shortfall().IsPositive() {
				fullyReceived = false
				break
			}
		}

		now := time.Now()
		if fullyReceived {
			order.Status = models.TransferOrderStatusCompleted
		} else {
			order.Status = models.TransferOrderStatusPartiallyReceived
		}
		order.ReceivedBy = &userId
		order.ReceivedAt = &now
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "transfer_receive", string(models.NotificationReferenceTransferOrder), order.ID, map[string]interface{}{
			"fully_received": fullyReceived,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishTransferNotification(ctx, logger, order, models.PubSubMessageActionStateChange)
	return order, nil
}

// CancelTransferOrder cancels from any non-terminal state. When stock was
// already deducted, the undelivered quantity comes back to the source via
// compensating transfer_in movements; the stockDeducted flag is never
// reverted. Quantities already received stay at the destination.
func CancelTransferOrder(ctx context.Context, logger *logrus.Logger, orderId int, reason string) (*models.TransferOrder, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	if reason == "" {
		return nil, utils.NewValidationError("reason", "cancellation requires a reason")
	}
	if !models.HasPermission(ctx, userId, models.PermissionCancelTransfer) {
		return nil, utils.NewValidationError("user", "not permitted to cancel transfers")
	}

	var order *models.TransferOrder
	err := RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		var err error
		order, err = utils.FetchModelForUpdate[models.TransferOrder](tx, businessId, orderId)
		if err != nil {
			return utils.NewNotFoundError("transfer order", "")
		}
		if order.Status.IsTerminal() {
			return utils.NewConflictError("transfer order is already in a terminal state")
		}

		if order.StockDeducted != nil && *order.StockDeducted {
			if err := tx.Where("transfer_order_id = ?", order.ID).Find(&order.Details).Error; err != nil {
				return err
			}
			for _, detail := range order.Details {
				outstanding := detail.Shortfall()
				if !outstanding.IsPositive() {
					continue
				}
				if err := locks.StockKey(tx, order.SourceWarehouseId, detail.VariantId); err != nil {
					return err
				}
				if _, err := AppendMovement(tx, logger, AppendMovementInput{
					BusinessId:    businessId,
					WarehouseId:   order.SourceWarehouseId,
					VariantId:     detail.VariantId,
					MovementType:  models.MovementTypeTransferIn,
					Qty:           outstanding,
					ReferenceType: models.StockReferenceTypeTransferOrder,
					ReferenceId:   order.ID,
					Reason:        "transfer cancelled: " + reason,
					CreatedBy:     userId,
					CorrelationId: correlationId,
				}); err != nil {
					return err
				}
			}
		}

		now := time.Now()
		order.Status = models.TransferOrderStatusCancelled
		order.CancelledBy = &userId
		order.CancelledAt = &now
		order.CancelReason = reason
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "transfer_cancel", string(models.NotificationReferenceTransferOrder), order.ID, map[string]interface{}{
			"reason":         reason,
			"stock_deducted": order.StockDeducted,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishTransferNotification(ctx, logger, order, models.PubSubMessageActionStateChange)
	return order, nil
}
