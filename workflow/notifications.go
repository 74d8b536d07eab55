package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/sirupsen/logrus"
)

// Notifications are emitted after commit and are best-effort: a delivery
// failure is logged, never propagated, and never rolls back the change it
// describes.

func publishNotification(ctx context.Context, logger *logrus.Logger, businessId string, referenceType models.NotificationReferenceType, referenceId int, action models.PubSubMessageAction, payload any) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		config.LogError(logger, "notifications.go", "publishNotification", "Marshal", referenceType, err)
		return
	}

	msg := config.PubSubMessage{
		BusinessId:          businessId,
		TransactionDateTime: time.Now(),
		ReferenceId:         referenceId,
		ReferenceType:       string(referenceType),
		Action:              string(action),
		Payload:             payloadJSON,
		CorrelationId:       models.CorrelationIdFromContextOrNew(ctx),
	}

	go func() {
		if err := config.PublishDomainEvent(businessId, msg); err != nil {
			config.LogError(logger, "notifications.go", "publishNotification", "PublishDomainEvent", msg.ReferenceType, err)
		}
	}()
}

func PublishMovementNotification(ctx context.Context, logger *logrus.Logger, movement *models.StockMovement, action models.PubSubMessageAction) {
	if movement == nil {
		return
	}
	publishNotification(ctx, logger, movement.BusinessId, models.NotificationReferenceStockMovement, movement.ID, action, movement)
}

func PublishTransferNotification(ctx context.Context, logger *logrus.Logger, order *models.TransferOrder, action models.PubSubMessageAction) {
	if order == nil {
		return
	}
	publishNotification(ctx, logger, order.BusinessId, models.NotificationReferenceTransferOrder, order.ID, action, order)
}

func PublishAmendmentNotification(ctx context.Context, logger *logrus.Logger, amendment *models.PurchaseAmendment, action models.PubSubMessageAction) {
	if amendment == nil {
		return
	}
	publishNotification(ctx, logger, amendment.BusinessId, models.NotificationReferenceAmendment, amendment.ID, action, amendment)
}

func PublishInvoiceNotification(ctx context.Context, logger *logrus.Logger, invoice *models.SalesInvoice, action models.PubSubMessageAction) {
	if invoice == nil {
		return
	}
	publishNotification(ctx, logger, invoice.BusinessId, models.NotificationReferenceSalesInvoice, invoice.ID, action, invoice)
}

func PublishRefundNotification(ctx context.Context, logger *logrus.Logger, refund *models.Refund, action models.PubSubMessageAction) {
	if refund == nil {
		return
	}
	publishNotification(ctx, logger, refund.BusinessId, models.NotificationReferenceRefund, refund.ID, action, refund)
}

func PublishShiftNotification(ctx context.Context, logger *logrus.Logger, shift *models.CashierShift, action models.PubSubMessageAction) {
	if shift == nil {
		return
	}
	publishNotification(ctx, logger, shift.BusinessId, models.NotificationReferenceShift, shift.ID, action, shift)
}

// PublishDriftNotification surfaces detected drift to operational tooling.
func PublishDriftNotification(ctx context.Context, logger *logrus.Logger, businessId string, warehouseId int, variantId int, detail any) {
	publishNotification(ctx, logger, businessId, models.NotificationReferenceDrift, variantId, models.PubSubMessageActionCreate, map[string]interface{}{
		"warehouse_id": warehouseId,
		"variant_id":   variantId,
		"detail":       detail,
	})
}
