package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/middlewares"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func registerRoutes(r *gin.Engine) {
	r.POST("/businesses", createBusinessHandler)
	r.POST("/branches", createBranchHandler)
	r.GET("/branches", listBranchesHandler)
	r.POST("/users", createUserHandler)
	r.GET("/users", listUsersHandler)

	r.POST("/warehouses", createWarehouseHandler)
	r.PUT("/warehouses/:id", updateWarehouseHandler)
	r.GET("/warehouses", listWarehousesHandler)
	r.POST("/variants", createVariantHandler)
	r.GET("/variants", listVariantsHandler)

	r.POST("/stock/opening", postOpeningStockHandler)
	r.POST("/stock/adjustments", postAdjustmentHandler)
	r.POST("/stock/corrections", postCorrectionHandler)
	r.GET("/stock/movements", listStockMovementsHandler)
	r.GET("/stock/summaries", listStockSummariesHandler)
	r.GET("/stock/balance", stockBalanceHandler)
	r.GET("/stock/drift", stockDriftHandler)

	r.POST("/transfer-orders", createTransferOrderHandler)
	r.GET("/transfer-orders", listTransferOrdersHandler)
	r.GET("/transfer-orders/:id", getTransferOrderHandler)
	r.POST("/transfer-orders/:id/check", checkTransferOrderHandler)
	r.POST("/transfer-orders/:id/send", sendTransferOrderHandler)
	r.POST("/transfer-orders/:id/receive", receiveTransferOrderHandler)
	r.POST("/transfer-orders/:id/cancel", cancelTransferOrderHandler)

	r.POST("/purchase-orders", createPurchaseOrderHandler)
	r.GET("/purchase-orders", listPurchaseOrdersHandler)
	r.GET("/purchase-orders/:id", getPurchaseOrderHandler)
	r.POST("/purchase-orders/:id/confirm", confirmPurchaseOrderHandler)
	r.POST("/purchase-orders/:id/receive", receivePurchaseOrderHandler)
	r.POST("/purchase-orders/:id/supplier-return", returnToSupplierHandler)

	r.POST("/amendments", createAmendmentHandler)
	r.GET("/amendments", listAmendmentsHandler)
	r.POST("/amendments/:id/approve", approveAmendmentHandler)
	r.POST("/amendments/:id/reject", rejectAmendmentHandler)

	r.POST("/sales-invoices", createSalesInvoiceHandler)
	r.GET("/sales-invoices", listSalesInvoicesHandler)
	r.GET("/sales-invoices/:id", getSalesInvoiceHandler)
	r.POST("/sales-invoices/:id/confirm", confirmSalesInvoiceHandler)
	r.POST("/sales-invoices/:id/void", voidSalesInvoiceHandler)

	r.POST("/refunds", createRefundHandler)
	r.GET("/refunds/:id", getRefundHandler)
	r.POST("/refunds/:id/confirm", confirmRefundHandler)
	r.POST("/refunds/:id/cancel", cancelRefundHandler)

	r.POST("/shifts/open", openShiftHandler)
	r.GET("/shifts/:id", getShiftHandler)
	r.GET("/shifts/:id/events", listShiftEventsHandler)
	r.POST("/shifts/:id/events", shiftEventHandler)
	r.POST("/shifts/:id/close", closeShiftHandler)
	r.POST("/shifts/:id/force-close", forceCloseShiftHandler)

	r.POST("/sod-rules", createSODRuleHandler)
	r.PUT("/sod-rules/:id", updateSODRuleHandler)
	r.GET("/sod-rules", listSODRulesHandler)

	r.GET("/audit-logs", listAuditLogsHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; in development allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "Idempotency-Key", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Idempotent-Replayed")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.IdempotencyKeyMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Expired idempotency records are swept in the background; the retention
	// window is long enough that any legitimate replay still hits its record.
	purgeCtx, cancelPurge := context.WithCancel(context.Background())
	defer cancelPurge()
	go runIdempotencyPurge(purgeCtx, logger)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelPurge()

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func runIdempotencyPurge(ctx context.Context, logger *logrus.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := models.PurgeExpiredIdempotencyKeys(ctx)
			if err != nil {
				logger.WithFields(logrus.Fields{"field": "idempotencyPurge"}).Warn("purge failed: " + err.Error())
				continue
			}
			if purged > 0 {
				logger.WithFields(logrus.Fields{
					"field":  "idempotencyPurge",
					"purged": purged,
				}).Info("purged expired idempotency records")
			}
		}
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware is IP based: first hit creates the window key, later
// hits increment it, and the request is rejected once the count passes the
// limit.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
