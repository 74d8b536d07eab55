package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConfirmRefund posts a draft refund: the refundable ceiling is re-checked
// per invoice line under FOR UPDATE, customer_return movements bring the
// items back to stock, the invoice lines' refunded quantity advances, and the
// cash leaves the drawer as a shift cash-out, all in one transaction.
func ConfirmRefund(ctx context.Context, logger *logrus.Logger, refundId int) (*models.Refund, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	rules, err := models.ListSODRules(ctx, models.SODEntityRefund)
	if err != nil {
		return nil, err
	}

	var refund *models.Refund
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		refund, err = utils.FetchModelForUpdate[models.Refund](tx, businessId, refundId)
		if err != nil {
			return utils.NewNotFoundError("refund", "")
		}
		if refund.Status != models.RefundStatusDraft {
			return utils.NewConflictError("refund is not in draft")
		}

		if err := ValidateSeparation(refund, models.ActorSlotApprovedBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		if err := tx.Where("refund_id = ?", refund.ID).Find(&refund.Details).Error; err != nil {
			return err
		}

		invoice, err := utils.FetchModelForUpdate[models.SalesInvoice](tx, businessId, refund.SalesInvoiceId)
		if err != nil {
			return utils.NewNotFoundError("sales invoice", "")
		}
		if invoice.Status != models.SalesInvoiceStatusConfirmed && invoice.Status != models.SalesInvoiceStatusRefunded {
			return utils.NewConflictError("sales invoice is not refundable in its current state")
		}
		if err := tx.Where("sales_invoice_id = ?", invoice.ID).Find(&invoice.Details).Error; err != nil {
			return err
		}
		invoiceLines := make(map[int]*models.SalesInvoiceDetail, len(invoice.Details))
		for i := range invoice.Details {
			invoiceLines[invoice.Details[i].ID] = &invoice.Details[i]
		}

		for _, detail := range refund.Details {
			line, ok := invoiceLines[detail.SalesInvoiceDetailId]
			if !ok {
				return utils.NewValidationError("details", "unknown sales invoice line")
			}
			if detail.Qty.GreaterThan(line.RefundableQty()) {
				return utils.NewValidationError("qty", "exceeds refundable quantity for line")
			}

			if err := locks.StockKey(tx, refund.WarehouseId, detail.VariantId); err != nil {
				return err
			}
			if _, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   refund.WarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypeCustomerReturn,
				Qty:           detail.Qty,
				ReferenceType: models.StockReferenceTypeRefund,
				ReferenceId:   refund.ID,
				CreatedBy:     userId,
				CorrelationId: correlationId,
			}); err != nil {
				return err
			}

			line.RefundedQty = line.RefundedQty.Add(detail.Qty)
			if err := tx.Model(&models.SalesInvoiceDetail{}).
				Where("id = ?", line.ID).
				Update("refunded_qty", line.RefundedQty).Error; err != nil {
				return err
			}
		}

		fullyRefunded := true
		for i := range invoice.Details {
			if invoice.Details[i].RefundableQty().IsPositive() {
				fullyRefunded = false
				break
			}
		}
		if fullyRefunded {
			if err := tx.Model(&models.SalesInvoice{}).
				Where("id = ?", invoice.ID).
				Update("status", models.SalesInvoiceStatusRefunded).Error; err != nil {
				return err
			}
		}

		if refund.ShiftId > 0 && refund.TotalAmount.IsPositive() {
			if err := ApplyShiftEvent(tx, logger, businessId, refund.ShiftId, models.ShiftEventCashOut, refund.TotalAmount,
				string(models.NotificationReferenceRefund), refund.ID, userId, correlationId, false); err != nil {
				return err
			}
		}

		now := time.Now()
		refund.Status = models.RefundStatusConfirmed
		refund.ApprovedBy = &userId
		refund.UpdatedAt = now
		if err := tx.Save(refund).Error; err != nil {
			config.LogError(logger, "refundWorkflow.go", "ConfirmRefund", "SaveRefund", refund.ID, err)
			return err
		}

		return models.RecordAudit(ctx, tx, "refund_confirm", string(models.NotificationReferenceRefund), refund.ID, map[string]interface{}{
			"sales_invoice_id": refund.SalesInvoiceId,
			"total_amount":     refund.TotalAmount.String(),
			"fully_refunded":   fullyRefunded,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishRefundNotification(ctx, logger, refund, models.PubSubMessageActionStateChange)
	return refund, nil
}

// CancelRefund discards a draft refund. Confirmed refunds are immutable; the
// items are back in stock and any reversal is a new business document.
func CancelRefund(ctx context.Context, logger *logrus.Logger, refundId int, reason string) (*models.Refund, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if reason == "" {
		return nil, utils.NewValidationError("reason", "cancellation requires a reason")
	}

	db := config.GetDB()
	var refund *models.Refund
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		refund, err = utils.FetchModelForUpdate[models.Refund](tx, businessId, refundId)
		if err != nil {
			return utils.NewNotFoundError("refund", "")
		}
		if refund.Status != models.RefundStatusDraft {
			return utils.NewConflictError("only a draft refund can be cancelled")
		}

		refund.Status = models.RefundStatusCancelled
		refund.Reason = reason
		if err := tx.Save(refund).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "refund_cancel", string(models.NotificationReferenceRefund), refund.ID, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishRefundNotification(ctx, logger, refund, models.PubSubMessageActionStateChange)
	return refund, nil
}
