package workflow

import (
	"context"
	"errors"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConfirmSalesInvoice posts a draft invoice: one sale movement per line and
// the shift counter increments commit in the same transaction, so the shift's
// running totals can never disagree with the invoices that produced them.
func ConfirmSalesInvoice(ctx context.Context, logger *logrus.Logger, invoiceId int) (*models.SalesInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	business, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	allowNegative := business.RejectNegativeStock != nil && !*business.RejectNegativeStock

	var invoice *models.SalesInvoice
	err = RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		invoice, err = utils.FetchModelForUpdate[models.SalesInvoice](tx, businessId, invoiceId)
		if err != nil {
			return utils.NewNotFoundError("sales invoice", "")
		}
		if invoice.Status != models.SalesInvoiceStatusDraft {
			return utils.NewConflictError("sales invoice is not in draft")
		}
		if err := tx.Where("sales_invoice_id = ?", invoice.ID).Find(&invoice.Details).Error; err != nil {
			return err
		}

		for _, detail := range invoice.Details {
			if err := locks.StockKey(tx, invoice.WarehouseId, detail.VariantId); err != nil {
				return err
			}
			result, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   invoice.WarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypeSale,
				Qty:           detail.Qty,
				ReferenceType: models.StockReferenceTypeSalesInvoice,
				ReferenceId:   invoice.ID,
				CreatedBy:     userId,
				CorrelationId: correlationId,
				AllowNegative: allowNegative,
			})
			if err != nil {
				return err
			}
			if result.Anomaly != nil {
				config.LogWarn(logger, "salesWorkflow.go", "ConfirmSalesInvoice", "NegativeBalance", result.Anomaly, result.Anomaly.Error())
			}
		}

		if invoice.ShiftId > 0 {
			// a split-payment sale posts two events but is one transaction
			if invoice.CashAmount.IsPositive() {
				if err := ApplyShiftEvent(tx, logger, businessId, invoice.ShiftId, models.ShiftEventCashSale, invoice.CashAmount,
					string(models.NotificationReferenceSalesInvoice), invoice.ID, userId, correlationId, true); err != nil {
					return err
				}
			}
			nonCash := invoice.TotalAmount.Sub(invoice.CashAmount)
			if nonCash.IsPositive() {
				if err := ApplyShiftEvent(tx, logger, businessId, invoice.ShiftId, models.ShiftEventNonCashSale, nonCash,
					string(models.NotificationReferenceSalesInvoice), invoice.ID, userId, correlationId,
					!invoice.CashAmount.IsPositive()); err != nil {
					return err
				}
			}
		}

		invoice.Status = models.SalesInvoiceStatusConfirmed
		if err := tx.Save(invoice).Error; err != nil {
			config.LogError(logger, "salesWorkflow.go", "ConfirmSalesInvoice", "SaveInvoice", invoice.ID, err)
			return err
		}

		return models.RecordAudit(ctx, tx, "invoice_confirm", string(models.NotificationReferenceSalesInvoice), invoice.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	PublishInvoiceNotification(ctx, logger, invoice, models.PubSubMessageActionStateChange)
	return invoice, nil
}

// VoidSalesInvoice reverses a confirmed invoice through compensating
// customer_return movements and a void shift event. Refunded invoices cannot
// be voided; the refunds already account for the returned stock.
func VoidSalesInvoice(ctx context.Context, logger *logrus.Logger, invoiceId int, reason string) (*models.SalesInvoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId := models.CorrelationIdFromContextOrNew(ctx)

	if reason == "" {
		return nil, utils.NewValidationError("reason", "void requires a reason")
	}

	var invoice *models.SalesInvoice
	err := RunLockedTransaction(ctx, businessId, func(tx *gorm.DB, locks *AdvisoryLocks) error {
		if err := locks.Posting(tx); err != nil {
			return err
		}

		var err error
		invoice, err = utils.FetchModelForUpdate[models.SalesInvoice](tx, businessId, invoiceId)
		if err != nil {
			return utils.NewNotFoundError("sales invoice", "")
		}
		if invoice.Status != models.SalesInvoiceStatusConfirmed {
			return utils.NewConflictError("only a confirmed invoice can be voided")
		}
		if err := tx.Where("sales_invoice_id = ?", invoice.ID).Find(&invoice.Details).Error; err != nil {
			return err
		}
		for _, detail := range invoice.Details {
			if detail.RefundedQty.IsPositive() {
				return utils.NewConflictError("invoice has refunds, void is not available")
			}
		}

		for _, detail := range invoice.Details {
			if err := locks.StockKey(tx, invoice.WarehouseId, detail.VariantId); err != nil {
				return err
			}
			if _, err := AppendMovement(tx, logger, AppendMovementInput{
				BusinessId:    businessId,
				WarehouseId:   invoice.WarehouseId,
				VariantId:     detail.VariantId,
				MovementType:  models.MovementTypeCustomerReturn,
				Qty:           detail.Qty,
				ReferenceType: models.StockReferenceTypeSalesInvoice,
				ReferenceId:   invoice.ID,
				Reason:        "invoice voided: " + reason,
				CreatedBy:     userId,
				CorrelationId: correlationId,
			}); err != nil {
				return err
			}
		}

		if invoice.ShiftId > 0 {
			if err := ApplyShiftEvent(tx, logger, businessId, invoice.ShiftId, models.ShiftEventVoid, invoice.TotalAmount,
				string(models.NotificationReferenceSalesInvoice), invoice.ID, userId, correlationId, false); err != nil {
				return err
			}
			// cash taken at the register goes back out of the drawer
			if invoice.CashAmount.IsPositive() {
				if err := ApplyShiftEvent(tx, logger, businessId, invoice.ShiftId, models.ShiftEventCashOut, invoice.CashAmount,
					string(models.NotificationReferenceSalesInvoice), invoice.ID, userId, correlationId, false); err != nil {
					return err
				}
			}
		}

		invoice.Status = models.SalesInvoiceStatusVoided
		if err := tx.Save(invoice).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "invoice_void", string(models.NotificationReferenceSalesInvoice), invoice.ID, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishInvoiceNotification(ctx, logger, invoice, models.PubSubMessageActionStateChange)
	return invoice, nil
}
