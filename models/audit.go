package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"gorm.io/gorm"
)

// AuditLog is the append-only trail for privileged and exceptional actions:
// corrections, force-closes, cancellations after deduction, SOD overrides.
type AuditLog struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	UserId        int             `gorm:"index;not null" json:"user_id"`
	Action        string          `gorm:"size:100;not null" json:"action"`
	ReferenceType string          `gorm:"size:50;index" json:"reference_type"`
	ReferenceId   int             `gorm:"index" json:"reference_id"`
	Detail        json.RawMessage `gorm:"type:json" json:"detail"`
	CorrelationId string          `gorm:"size:36;index" json:"correlation_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// RecordAudit writes the audit row inside the caller's transaction so the
// trail commits or rolls back with the action it describes.
func RecordAudit(ctx context.Context, tx *gorm.DB, action string, referenceType string, referenceId int, detail any) error {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)

	var detailJSON json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		detailJSON = b
	}

	record := AuditLog{
		BusinessId:    businessId,
		UserId:        userId,
		Action:        action,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		Detail:        detailJSON,
		CorrelationId: CorrelationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func ListAuditLogs(ctx context.Context, referenceType string, referenceId int) ([]*AuditLog, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	db := config.GetDB()
	var logs []*AuditLog
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Order("id asc").
		Find(&logs).Error
	return logs, err
}
