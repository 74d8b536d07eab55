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

type OpenShiftInput struct {
	BranchId      int             `json:"branch_id" binding:"required"`
	BeginningCash decimal.Decimal `json:"beginning_cash"`
}

func OpenShift(ctx context.Context, logger *logrus.Logger, input *OpenShiftInput) (*models.CashierShift, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if input.BeginningCash.IsNegative() {
		return nil, utils.NewValidationError("beginning_cash", "must not be negative")
	}
	if err := utils.ValidateResourceId[models.Branch](ctx, businessId, input.BranchId); err != nil {
		return nil, utils.NewNotFoundError("branch", "")
	}

	// one open shift per cashier
	if _, err := models.GetOpenShiftForCashier(ctx, userId); err == nil {
		return nil, utils.NewConflictError("cashier already has an open shift")
	}

	seqNo, err := utils.GetSequence[models.CashierShift](ctx, businessId)
	if err != nil {
		return nil, err
	}
	shiftNumber, err := models.FormatDocumentNumber(ctx, input.BranchId, models.ModuleNameCashierShift, seqNo)
	if err != nil {
		return nil, err
	}

	shift := models.CashierShift{
		BusinessId:    businessId,
		BranchId:      input.BranchId,
		CashierId:     userId,
		SequenceNo:    seqNo,
		ShiftNumber:   shiftNumber,
		Status:        models.ShiftStatusOpen,
		BeginningCash: input.BeginningCash.Round(2),
		IsForceClosed: utils.NewFalse(),
		OpenedAt:      time.Now(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&shift).Error; err != nil {
		config.LogError(logger, "shift.go", "OpenShift", "CreateShift", input, err)
		return nil, err
	}
	return &shift, nil
}

// shiftCounterColumns maps an event kind to the counter it increments.
// Every kind increments exactly one column, in O(1), via a relative UPDATE.
var shiftCounterColumns = map[models.ShiftEventKind]string{
	models.ShiftEventCashSale:      "cash_sales",
	models.ShiftEventNonCashSale:   "non_cash_sales",
	models.ShiftEventCashIn:        "cash_in_total",
	models.ShiftEventCashOut:       "cash_out_total",
	models.ShiftEventArCashPayment: "ar_cash_payments",
	models.ShiftEventDiscount:      "discounts",
	models.ShiftEventVoid:          "voids",
}

// shiftCounterUpdates builds the relative UPDATE for one event. Sales events
// also bump gross sales; the transaction count moves only when the event opens
// a new transaction, so an invoice split across cash and non-cash still counts
// once.
func shiftCounterUpdates(kind models.ShiftEventKind, amount decimal.Decimal, newTransaction bool) (map[string]interface{}, error) {
	column, ok := shiftCounterColumns[kind]
	if !ok {
		return nil, utils.NewValidationError("kind", "unknown shift event kind")
	}
	updates := map[string]interface{}{
		column: gorm.Expr(column+" + ?", amount),
	}
	if kind == models.ShiftEventCashSale || kind == models.ShiftEventNonCashSale {
		updates["gross_sales"] = gorm.Expr("gross_sales + ?", amount)
		if newTransaction {
			updates["transaction_count"] = gorm.Expr("transaction_count + 1")
		}
	}
	return updates, nil
}

// ApplyShiftEvent increments one running counter inside the caller's
// transaction, so the counter commits atomically with the business document
// that caused the event. Never re-scans shift history.
func ApplyShiftEvent(tx *gorm.DB, logger *logrus.Logger, businessId string, shiftId int, kind models.ShiftEventKind, amount decimal.Decimal, referenceType string, referenceId int, createdBy int, correlationId string, newTransaction bool) error {

	if amount.IsNegative() {
		return utils.NewValidationError("amount", "must not be negative")
	}
	amount = amount.Round(2)

	updates, err := shiftCounterUpdates(kind, amount, newTransaction)
	if err != nil {
		return err
	}

	result := tx.Model(&models.CashierShift{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, shiftId, models.ShiftStatusOpen).
		Updates(updates)
	if result.Error != nil {
		config.LogError(logger, "shift.go", "ApplyShiftEvent", "IncrementCounter", shiftId, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewConflictError("shift is not open")
	}

	event := models.ShiftEvent{
		BusinessId:    businessId,
		ShiftId:       shiftId,
		Kind:          kind,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		CreatedBy:     createdBy,
		CorrelationId: correlationId,
	}
	return tx.Create(&event).Error
}

type CloseShiftResult struct {
	Shift      *models.CashierShift `json:"shift"`
	Variance   decimal.Decimal      `json:"variance"`
	IsBalanced bool                 `json:"is_balanced"`
}

// CloseShift reconciles counted cash against the running counters and closes
// the shift. Variance is reported, not a blocking condition.
func CloseShift(ctx context.Context, logger *logrus.Logger, shiftId int, countedCash decimal.Decimal) (*CloseShiftResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if countedCash.IsNegative() {
		return nil, utils.NewValidationError("counted_cash", "must not be negative")
	}

	db := config.GetDB()
	var result *CloseShiftResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift, err := utils.FetchModelForUpdate[models.CashierShift](tx, businessId, shiftId)
		if err != nil {
			return utils.NewNotFoundError("cashier shift", "")
		}
		if shift.Status != models.ShiftStatusOpen {
			return utils.NewConflictError("shift is already closed")
		}

		expected := shift.SystemExpectedCash()
		variance := countedCash.Round(2).Sub(expected)
		now := time.Now()

		shift.Status = models.ShiftStatusClosed
		shift.ExpectedCash = expected
		shift.CountedCash = countedCash.Round(2)
		shift.Variance = variance
		shift.CashOver = decimal.Max(variance, decimal.Zero)
		shift.CashShort = decimal.Max(variance.Neg(), decimal.Zero)
		shift.ClosedBy = userId
		shift.ClosedAt = &now

		if err := tx.Save(shift).Error; err != nil {
			config.LogError(logger, "shift.go", "CloseShift", "SaveShift", shiftId, err)
			return err
		}

		if err := models.RecordAudit(ctx, tx, "shift_close", string(models.NotificationReferenceShift), shift.ID, map[string]interface{}{
			"expected_cash": expected.String(),
			"counted_cash":  shift.CountedCash.String(),
			"variance":      variance.String(),
		}); err != nil {
			return err
		}

		result = &CloseShiftResult{
			Shift:      shift,
			Variance:   variance,
			IsBalanced: variance.IsZero(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	PublishShiftNotification(ctx, logger, result.Shift, models.PubSubMessageActionStateChange)
	return result, nil
}

// ForceCloseShift is the exceptional path for shifts that cannot close
// normally. It auto-accepts the system-computed cash as counted (variance
// forced to zero), requires a privileged actor and a written reason, and is
// flagged distinctly from a normal close. It intentionally skips the
// compliance reading a normal close produces.
func ForceCloseShift(ctx context.Context, logger *logrus.Logger, shiftId int, reason string) (*CloseShiftResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	if reason == "" {
		return nil, utils.NewValidationError("reason", "force close requires a written justification")
	}
	if !models.HasPermission(ctx, userId, models.PermissionForceCloseShift) {
		return nil, utils.NewValidationError("user", "not permitted to force close shifts")
	}

	db := config.GetDB()
	var result *CloseShiftResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift, err := utils.FetchModelForUpdate[models.CashierShift](tx, businessId, shiftId)
		if err != nil {
			return utils.NewNotFoundError("cashier shift", "")
		}
		if shift.Status != models.ShiftStatusOpen {
			return utils.NewConflictError("shift is already closed")
		}

		expected := shift.SystemExpectedCash()
		now := time.Now()

		shift.Status = models.ShiftStatusClosed
		shift.ExpectedCash = expected
		shift.CountedCash = expected
		shift.Variance = decimal.Zero
		shift.CashOver = decimal.Zero
		shift.CashShort = decimal.Zero
		shift.IsForceClosed = utils.NewTrue()
		shift.ForceCloseReason = reason
		shift.ClosedBy = userId
		shift.ClosedAt = &now

		if err := tx.Save(shift).Error; err != nil {
			config.LogError(logger, "shift.go", "ForceCloseShift", "SaveShift", shiftId, err)
			return err
		}

		if err := models.RecordAudit(ctx, tx, "shift_force_close", string(models.NotificationReferenceShift), shift.ID, map[string]interface{}{
			"expected_cash": expected.String(),
			"reason":        reason,
		}); err != nil {
			return err
		}

		result = &CloseShiftResult{
			Shift:      shift,
			Variance:   decimal.Zero,
			IsBalanced: true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	PublishShiftNotification(ctx, logger, result.Shift, models.PubSubMessageActionStateChange)
	return result, nil
}
