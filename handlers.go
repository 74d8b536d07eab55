package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/mmdatafocus/retail_backend/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func respondError(c *gin.Context, err error) {
	c.JSON(utils.HTTPStatus(err), gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func requireAuth(c *gin.Context) bool {
	businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
	if !ok || businessId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

// idempotentJSON guards a mutating handler behind the Idempotency-Key header.
// The raw body is hashed so a reused key with a different payload is detected;
// the stored response replays verbatim with an idempotent-replayed header.
func idempotentJSON[T any](c *gin.Context, handler func(ctx context.Context, input *T) (any, error)) {
	logger := config.GetLogger()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var input T
	if len(body) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	hash := ""
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		hash = hex.EncodeToString(sum[:])
	}
	key, _ := utils.GetIdempotencyKeyFromContext(c.Request.Context())
	endpoint := c.Request.Method + " " + c.Request.URL.Path

	result, err := workflow.Execute(c.Request.Context(), logger, endpoint, key, hash, func(ctx context.Context) (int, []byte, error) {
		out, err := handler(ctx, &input)
		if err != nil {
			if utils.IsDefinitive(err) {
				errBody, _ := json.Marshal(gin.H{"error": err.Error()})
				return utils.HTTPStatus(err), errBody, err
			}
			return 0, nil, err
		}
		respBody, err := json.Marshal(out)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, respBody, nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.Data(result.StatusCode, "application/json", result.Body)
}

// --- tenancy and master data ---

func createBusinessHandler(c *gin.Context) {
	if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var input models.NewBusiness
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	business, err := models.CreateBusiness(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, business)
}

func createBranchHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	var input models.NewBranch
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	branch, err := models.CreateBranch(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func listBranchesHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	branches, err := models.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

func createUserHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func listUsersHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	users, err := models.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func createWarehouseHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	var input models.NewWarehouse
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func updateWarehouseHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewWarehouse
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func listWarehousesHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	warehouses, err := models.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func createVariantHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	var input models.NewProductVariant
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	variant, err := models.CreateProductVariant(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variant)
}

func listVariantsHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	variants, err := models.ListProductVariants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variants)
}

// --- stock ledger ---

func postOpeningStockHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.OpeningStockInput) (any, error) {
		return workflow.PostOpeningStock(ctx, logger, input)
	})
}

func postAdjustmentHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.AdjustmentInput) (any, error) {
		return workflow.PostAdjustment(ctx, logger, input)
	})
}

func postCorrectionHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.CorrectionInput) (any, error) {
		return workflow.AppendCorrection(ctx, logger, input)
	})
}

func listStockMovementsHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	movements, err := models.ListStockMovements(c.Request.Context(), queryInt(c, "warehouse_id"), queryInt(c, "variant_id"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func listStockSummariesHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	summaries, err := models.ListStockSummaries(c.Request.Context(), queryInt(c, "warehouse_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func stockBalanceHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	warehouseId := queryInt(c, "warehouse_id")
	variantId := queryInt(c, "variant_id")
	if warehouseId <= 0 || variantId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "warehouse_id and variant_id are required"})
		return
	}
	balance, err := workflow.CurrentBalance(c.Request.Context(), warehouseId, variantId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"warehouse_id": warehouseId,
		"variant_id":   variantId,
		"balance":      balance,
	})
}

func stockDriftHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
	warehouseId := queryInt(c, "warehouse_id")
	variantId := queryInt(c, "variant_id")
	if warehouseId <= 0 || variantId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "warehouse_id and variant_id are required"})
		return
	}

	logger := config.GetLogger()
	db := config.GetDB()
	drift, err := workflow.CheckDrift(db.WithContext(c.Request.Context()), businessId, warehouseId, variantId)
	if err != nil {
		respondError(c, err)
		return
	}
	if drift != nil {
		workflow.PublishDriftNotification(c.Request.Context(), logger, businessId, warehouseId, variantId, drift)
		c.JSON(http.StatusOK, gin.H{
			"drift":      true,
			"cached":     drift.Cached,
			"recomputed": drift.Recomputed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drift": false})
}

// --- transfer orders ---

func createTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	idempotentJSON(c, func(ctx context.Context, input *models.NewTransferOrder) (any, error) {
		return models.CreateTransferOrder(ctx, input)
	})
}

func getTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetTransferOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func listTransferOrdersHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	orders, err := models.ListTransferOrders(c.Request.Context(), models.TransferOrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func checkTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := workflow.CheckTransferOrder(c.Request.Context(), config.GetLogger(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func sendTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, _ *struct{}) (any, error) {
		return workflow.SendTransferOrder(ctx, logger, id)
	})
}

func receiveTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.ReceiveTransferInput) (any, error) {
		return workflow.ReceiveTransferOrder(ctx, logger, id, input)
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func cancelTransferOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *reasonRequest) (any, error) {
		return workflow.CancelTransferOrder(ctx, logger, id, input.Reason)
	})
}

// --- purchase orders and amendments ---

func createPurchaseOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	idempotentJSON(c, func(ctx context.Context, input *models.NewPurchaseOrder) (any, error) {
		return models.CreatePurchaseOrder(ctx, input)
	})
}

func getPurchaseOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func listPurchaseOrdersHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	orders, err := models.ListPurchaseOrders(c.Request.Context(), models.PurchaseOrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func confirmPurchaseOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := workflow.ConfirmPurchaseOrder(c.Request.Context(), config.GetLogger(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func receivePurchaseOrderHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.ReceivePurchaseInput) (any, error) {
		return workflow.ReceivePurchaseOrder(ctx, logger, id, input)
	})
}

func returnToSupplierHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.SupplierReturnInput) (any, error) {
		return workflow.ReturnToSupplier(ctx, logger, id, input)
	})
}

func createAmendmentHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	idempotentJSON(c, func(ctx context.Context, input *models.NewPurchaseAmendment) (any, error) {
		return models.CreatePurchaseAmendment(ctx, input)
	})
}

func listAmendmentsHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	amendments, err := models.ListPurchaseAmendments(c.Request.Context(), queryInt(c, "purchase_order_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, amendments)
}

func approveAmendmentHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, _ *struct{}) (any, error) {
		return workflow.ApproveAmendment(ctx, logger, id)
	})
}

func rejectAmendmentHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *reasonRequest) (any, error) {
		return workflow.RejectAmendment(ctx, logger, id, input.Reason)
	})
}

// --- sales invoices and refunds ---

func createSalesInvoiceHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	idempotentJSON(c, func(ctx context.Context, input *models.NewSalesInvoice) (any, error) {
		return models.CreateSalesInvoice(ctx, input)
	})
}

func getSalesInvoiceHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	invoice, err := models.GetSalesInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func listSalesInvoicesHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	invoices, err := models.ListSalesInvoices(c.Request.Context(), queryInt(c, "shift_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func confirmSalesInvoiceHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, _ *struct{}) (any, error) {
		return workflow.ConfirmSalesInvoice(ctx, logger, id)
	})
}

func voidSalesInvoiceHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *reasonRequest) (any, error) {
		return workflow.VoidSalesInvoice(ctx, logger, id, input.Reason)
	})
}

func createRefundHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	idempotentJSON(c, func(ctx context.Context, input *models.NewRefund) (any, error) {
		return models.CreateRefund(ctx, input)
	})
}

func getRefundHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	refund, err := models.GetRefund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}

func confirmRefundHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, _ *struct{}) (any, error) {
		return workflow.ConfirmRefund(ctx, logger, id)
	})
}

func cancelRefundHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *reasonRequest) (any, error) {
		return workflow.CancelRefund(ctx, logger, id, input.Reason)
	})
}

// --- cashier shifts ---

func openShiftHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *workflow.OpenShiftInput) (any, error) {
		return workflow.OpenShift(ctx, logger, input)
	})
}

func getShiftHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	shift, err := models.GetCashierShift(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

func listShiftEventsHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	events, err := models.ListShiftEvents(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type shiftEventRequest struct {
	Kind   string          `json:"kind" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note"`
}

// shiftEventHandler records drawer operations that have no backing document
// (petty cash in/out, AR cash collected at the register).
func shiftEventHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *shiftEventRequest) (any, error) {
		kind, err := models.ParseShiftEventKind(input.Kind)
		if err != nil {
			return nil, utils.NewValidationError("kind", err.Error())
		}
		switch kind {
		case models.ShiftEventCashIn, models.ShiftEventCashOut, models.ShiftEventArCashPayment, models.ShiftEventDiscount:
		default:
			return nil, utils.NewValidationError("kind", "event kind is posted by its owning document, not directly")
		}

		businessId, _ := utils.GetBusinessIdFromContext(ctx)
		userId, _ := utils.GetUserIdFromContext(ctx)
		correlationId := models.CorrelationIdFromContextOrNew(ctx)

		db := config.GetDB()
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return workflow.ApplyShiftEvent(tx, logger, businessId, id, kind, input.Amount, "Manual", 0, userId, correlationId, false)
		})
		if err != nil {
			return nil, err
		}
		return models.GetCashierShift(ctx, id)
	})
}

type closeShiftRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash"`
}

func closeShiftHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *closeShiftRequest) (any, error) {
		return workflow.CloseShift(ctx, logger, id, input.CountedCash)
	})
}

func forceCloseShiftHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	logger := config.GetLogger()
	idempotentJSON(c, func(ctx context.Context, input *reasonRequest) (any, error) {
		return workflow.ForceCloseShift(ctx, logger, id, input.Reason)
	})
}

// --- SOD rules ---

func requireSODAdmin(c *gin.Context) bool {
	if !requireAuth(c) {
		return false
	}
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	if !models.HasPermission(c.Request.Context(), userId, models.PermissionManageSODRules) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func createSODRuleHandler(c *gin.Context) {
	if !requireSODAdmin(c) {
		return
	}
	var input models.NewSODRule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := models.CreateSODRule(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func updateSODRuleHandler(c *gin.Context) {
	if !requireSODAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewSODRule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := models.UpdateSODRule(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func listSODRulesHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	rules, err := models.ListSODRules(c.Request.Context(), models.SODEntityType(c.Query("entity_type")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// --- audit ---

func listAuditLogsHandler(c *gin.Context) {
	if !requireAuth(c) {
		return
	}
	logs, err := models.ListAuditLogs(c.Request.Context(), c.Query("reference_type"), queryInt(c, "reference_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
