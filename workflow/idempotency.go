package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// staleness bound for STARTED rows whose holder died mid-flight
const idempotencyStaleAfter = 5 * time.Minute

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// ExecuteFunc performs the guarded operation and returns its HTTP-equivalent
// status and response body. A returned error classified as definitive (see
// utils.IsDefinitive) is memoized like a success; transient errors are not.
type ExecuteFunc func(ctx context.Context) (statusCode int, body []byte, err error)

type ExecuteResult struct {
	StatusCode int
	Body       []byte
	// Replayed is true when the response came from a stored record rather
	// than a fresh execution.
	Replayed bool
}

// Execute runs fn at most once per (business, endpoint, key). A stored
// terminal outcome replays bit-for-bit; an in-flight duplicate is rejected
// with ConflictError rather than executed concurrently. Empty key disables
// deduplication entirely.
func Execute(ctx context.Context, logger *logrus.Logger, endpoint string, key string, requestHash string, fn ExecuteFunc) (*ExecuteResult, error) {

	if key == "" {
		statusCode, body, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return &ExecuteResult{StatusCode: statusCode, Body: body}, nil
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// The in-flight critical section: a process-wide mutex keyed by
	// (business, endpoint, key), held for the duration of fn. The DB STARTED
	// row backs this up across instances and process crashes.
	lockKey := fmt.Sprintf("idem:%s:%s:%s", businessId, endpoint, key)
	lock, err := utils.ObtainNamedLock(ctx, lockKey, 2*time.Minute, "idempotency.go", "Execute")
	if err != nil {
		var conflict *utils.ConflictError
		if errors.As(err, &conflict) {
			return nil, utils.NewConflictError("request with this idempotency key is in flight, retry later")
		}
		return nil, err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	db := config.GetDB().WithContext(ctx)

	existing, err := beginIdempotency(db, businessId, endpoint, key, requestHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// stored terminal outcome: replay verbatim
		return &ExecuteResult{
			StatusCode: existing.ResponseCode,
			Body:       existing.ResponseBody,
			Replayed:   true,
		}, nil
	}

	statusCode, body, fnErr := fn(ctx)

	if fnErr != nil && !utils.IsDefinitive(fnErr) {
		// Transient failure: release the reservation so a legitimate retry
		// with the same key re-executes. Never memoize infrastructure errors.
		if derr := db.Where("business_id = ? AND endpoint = ? AND `key` = ?", businessId, endpoint, key).
			Delete(&models.IdempotencyKey{}).Error; derr != nil {
			config.LogError(logger, "idempotency.go", "Execute", "ReleaseReservation", key, derr)
		}
		return nil, fnErr
	}

	status := models.IdempotencyStatusSucceeded
	var lastError *string
	if fnErr != nil {
		status = models.IdempotencyStatusRejected
		msg := fnErr.Error()
		lastError = &msg
	}
	now := time.Now()
	if err := db.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND endpoint = ? AND `key` = ?", businessId, endpoint, key).
		Updates(map[string]interface{}{
			"status":        status,
			"response_body": body,
			"response_code": statusCode,
			"last_error":    lastError,
			"completed_at":  &now,
		}).Error; err != nil {
		config.LogError(logger, "idempotency.go", "Execute", "MarkTerminal", key, err)
		return nil, err
	}

	if fnErr != nil {
		return nil, fnErr
	}
	return &ExecuteResult{StatusCode: statusCode, Body: body}, nil
}

// beginIdempotency reserves the key by inserting STARTED. Returns the
// existing record when a terminal outcome is already stored.
func beginIdempotency(db *gorm.DB, businessId string, endpoint string, key string, requestHash string) (*models.IdempotencyKey, error) {
	record := models.IdempotencyKey{
		BusinessId:  businessId,
		Endpoint:    endpoint,
		Key:         key,
		Status:      models.IdempotencyStatusStarted,
		RequestHash: requestHash,
	}
	if err := db.Create(&record).Error; err == nil {
		return nil, nil
	} else if !isDuplicateKeyErr(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := db.Where("business_id = ? AND endpoint = ? AND `key` = ?", businessId, endpoint, key).
		First(&existing).Error; err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded, models.IdempotencyStatusRejected:
		if existing.Expired(time.Now()) {
			// past retention the key is reusable; the purge just has not
			// caught up yet
			if err := db.Delete(&models.IdempotencyKey{}, existing.ID).Error; err != nil {
				return nil, err
			}
			if err := db.Create(&record).Error; err != nil {
				if isDuplicateKeyErr(err) {
					return nil, utils.NewConflictError("request with this idempotency key is in flight, retry later")
				}
				return nil, err
			}
			return nil, nil
		}
		if requestHash != "" && existing.RequestHash != "" && existing.RequestHash != requestHash {
			return nil, utils.NewConflictError("idempotency key reused with a different request payload")
		}
		return &existing, nil
	case models.IdempotencyStatusStarted:
		// If another instance is currently executing, reject and let the
		// client retry. A stale row means its holder died; take it over.
		if time.Since(existing.UpdatedAt) < idempotencyStaleAfter {
			return nil, utils.NewConflictError("request with this idempotency key is in flight, retry later")
		}
		return nil, db.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil, "request_hash": requestHash}).Error
	default:
		return nil, db.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil, "request_hash": requestHash}).Error
	}
}
