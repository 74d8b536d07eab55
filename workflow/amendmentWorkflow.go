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

// ApproveAmendment applies the amendment's stored change set to the purchase
// order atomically: line mutations, total recalculation, and the payable
// balance delta all commit together with the status flip to Approved.
// The approver must differ from the proposer per the business's SOD rules.
func ApproveAmendment(ctx context.Context, logger *logrus.Logger, amendmentId int) (*models.PurchaseAmendment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)

	if !models.HasPermission(ctx, userId, models.PermissionApproveAmendment) {
		return nil, utils.NewValidationError("user", "not permitted to approve amendments")
	}

	rules, err := models.ListSODRules(ctx, models.SODEntityPurchaseAmendment)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var amendment *models.PurchaseAmendment
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		amendment, err = utils.FetchModelForUpdate[models.PurchaseAmendment](tx, businessId, amendmentId)
		if err != nil {
			return utils.NewNotFoundError("purchase amendment", "")
		}
		if amendment.Status != models.AmendmentStatusPending {
			return utils.NewConflictError("amendment is already decided")
		}

		if err := ValidateSeparation(amendment, models.ActorSlotApprovedBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		order, err := utils.FetchModelForUpdate[models.PurchaseOrder](tx, businessId, amendment.PurchaseOrderId)
		if err != nil {
			return utils.NewNotFoundError("purchase order", "")
		}
		if order.Status == models.PurchaseOrderStatusCancelled || order.Status == models.PurchaseOrderStatusClosed {
			return utils.NewConflictError("purchase order is not amendable in its current state")
		}
		if err := tx.Where("purchase_order_id = ?", order.ID).Find(&order.Details).Error; err != nil {
			return err
		}

		changes, err := amendment.ChangeSet()
		if err != nil {
			return utils.NewValidationError("changes", "stored change set is unreadable")
		}

		previousTotal := order.TotalAmount
		if err := applyChangeSet(tx, order, changes); err != nil {
			return err
		}

		order.RecalculateTotals()
		order.PayableBalance = order.PayableBalance.Add(order.TotalAmount.Sub(previousTotal))
		if err := tx.Save(order).Error; err != nil {
			config.LogError(logger, "amendmentWorkflow.go", "ApproveAmendment", "SaveOrder", order.ID, err)
			return err
		}

		now := time.Now()
		amendment.Status = models.AmendmentStatusApproved
		amendment.ApprovedBy = &userId
		amendment.DecidedAt = &now
		if err := tx.Save(amendment).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "amendment_approve", string(models.NotificationReferenceAmendment), amendment.ID, map[string]interface{}{
			"purchase_order_id": order.ID,
			"previous_total":    previousTotal.String(),
			"new_total":         order.TotalAmount.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	PublishAmendmentNotification(ctx, logger, amendment, models.PubSubMessageActionStateChange)
	return amendment, nil
}

// applyChangeSet mutates the loaded order lines per the typed diff. Lines
// with received quantity cannot be removed, and a quantity can never drop
// below what was already received.
func applyChangeSet(tx *gorm.DB, order *models.PurchaseOrder, changes *models.PurchaseOrderChangeSet) error {

	details := make(map[int]*models.PurchaseOrderDetail, len(order.Details))
	for i := range order.Details {
		details[order.Details[i].ID] = &order.Details[i]
	}

	for _, c := range changes.LineQtyChanges {
		detail, ok := details[c.DetailId]
		if !ok {
			return utils.NewValidationError("line_qty_changes", "unknown purchase order line")
		}
		if c.NewQty.LessThan(detail.QtyReceived) {
			return utils.NewValidationError("line_qty_changes", "qty cannot drop below quantity already received")
		}
		detail.Qty = c.NewQty
		if err := tx.Model(&models.PurchaseOrderDetail{}).
			Where("id = ?", detail.ID).
			Update("qty", c.NewQty).Error; err != nil {
			return err
		}
	}

	for _, c := range changes.LinePriceChanges {
		detail, ok := details[c.DetailId]
		if !ok {
			return utils.NewValidationError("line_price_changes", "unknown purchase order line")
		}
		detail.UnitPrice = c.NewUnitPrice
		if err := tx.Model(&models.PurchaseOrderDetail{}).
			Where("id = ?", detail.ID).
			Update("unit_price", c.NewUnitPrice).Error; err != nil {
			return err
		}
	}

	for _, id := range changes.RemoveLineIds {
		detail, ok := details[id]
		if !ok {
			return utils.NewValidationError("remove_line_ids", "unknown purchase order line")
		}
		if detail.QtyReceived.IsPositive() {
			return utils.NewValidationError("remove_line_ids", "cannot remove a line with received quantity")
		}
		if err := tx.Delete(&models.PurchaseOrderDetail{}, "id = ?", id).Error; err != nil {
			return err
		}
		delete(details, id)
		for i := range order.Details {
			if order.Details[i].ID == id {
				order.Details = append(order.Details[:i], order.Details[i+1:]...)
				break
			}
		}
	}

	for _, line := range changes.AddLines {
		if !line.Qty.IsPositive() {
			return utils.NewValidationError("add_lines", "qty must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return utils.NewValidationError("add_lines", "price must not be negative")
		}
		detail := models.PurchaseOrderDetail{
			PurchaseOrderId: order.ID,
			VariantId:       line.VariantId,
			Qty:             line.Qty,
			UnitPrice:       line.UnitPrice,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return err
		}
		order.Details = append(order.Details, detail)
	}

	if changes.SupplierName != nil {
		order.SupplierName = *changes.SupplierName
	}
	return nil
}

// RejectAmendment closes a pending amendment without touching the purchase
// order. The decision reason is mandatory.
func RejectAmendment(ctx context.Context, logger *logrus.Logger, amendmentId int, reason string) (*models.PurchaseAmendment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userRole, _ := utils.GetUserRoleFromContext(ctx)

	if reason == "" {
		return nil, utils.NewValidationError("reason", "rejection requires a reason")
	}

	rules, err := models.ListSODRules(ctx, models.SODEntityPurchaseAmendment)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var amendment *models.PurchaseAmendment
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		amendment, err = utils.FetchModelForUpdate[models.PurchaseAmendment](tx, businessId, amendmentId)
		if err != nil {
			return utils.NewNotFoundError("purchase amendment", "")
		}
		if amendment.Status != models.AmendmentStatusPending {
			return utils.NewConflictError("amendment is already decided")
		}

		if err := ValidateSeparation(amendment, models.ActorSlotApprovedBy, userId, models.UserRole(userRole), rules); err != nil {
			return err
		}

		now := time.Now()
		amendment.Status = models.AmendmentStatusRejected
		amendment.ApprovedBy = &userId
		amendment.DecidedAt = &now
		amendment.RejectReason = reason
		if err := tx.Save(amendment).Error; err != nil {
			return err
		}

		return models.RecordAudit(ctx, tx, "amendment_reject", string(models.NotificationReferenceAmendment), amendment.ID, map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	PublishAmendmentNotification(ctx, logger, amendment, models.PubSubMessageActionStateChange)
	return amendment, nil
}
