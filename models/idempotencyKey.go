package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
)

// IdempotencyKey provides durable, DB-backed at-most-once execution for
// client-retried operations. Unique constraint: (business_id, endpoint, key).
// A SUCCEEDED or REJECTED row stores the response verbatim for replay; a
// STARTED row marks an execution in flight.
type IdempotencyKey struct {
	ID            int               `gorm:"primary_key" json:"id"`
	BusinessId    string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"business_id"`
	Endpoint      string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"endpoint"`
	Key           string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"key"`
	Status        IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	RequestHash   string            `gorm:"size:64" json:"request_hash"`
	ResponseBody  []byte            `gorm:"type:mediumblob" json:"response_body"`
	ResponseCode  int               `json:"response_code"`
	LastError     *string           `gorm:"type:text" json:"last_error"`
	CorrelationId string            `gorm:"size:36" json:"correlation_id"`
	CompletedAt   *time.Time        `json:"completed_at"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IdempotencyRetention bounds how long a key stays reserved. After expiry the
// key is purged and becomes reusable; results already returned are unaffected.
const IdempotencyRetention = 24 * time.Hour

// Expired reports whether the record has outlived the retention window. An
// expired record must not replay even if the purge has not removed it yet.
func (k *IdempotencyKey) Expired(now time.Time) bool {
	return now.Sub(k.CreatedAt) >= IdempotencyRetention
}

// PurgeExpiredIdempotencyKeys deletes records older than the retention
// window. Run periodically; tenant scope is intentionally bypassed.
func PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	db := config.GetDB()
	cutoff := time.Now().Add(-IdempotencyRetention)
	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&IdempotencyKey{})
	return result.RowsAffected, result.Error
}
