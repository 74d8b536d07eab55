package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
)

func itoa(n int) string {
	return fmt.Sprint(n)
}

func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// get transactionPrefix for module, redis or db
func getTransactionPrefix(ctx context.Context, branchId int, moduleName string) (string, error) {
	transactionPrefixes := make(map[string]string, 0) // moduleName => prefix
	redisKey := "tnsPrefixMap:" + fmt.Sprint(branchId)
	exists, err := config.GetRedisObject(redisKey, &transactionPrefixes)
	if err != nil {
		return "", err
	}
	if !exists {

		// retrieves moduleName:prefix map of the branch from db
		db := config.GetDB()
		var tnsId int
		if err := db.WithContext(ctx).Model(&Branch{}).
			Where("id = ?", branchId).Select("transaction_number_series_id").Scan(&tnsId).Error; err != nil {
			return "", err
		}
		var tnsModules []*TransactionNumberSeriesModule
		if err := db.WithContext(ctx).Model(&TransactionNumberSeriesModule{}).
			Where("series_id = ?", tnsId).Find(&tnsModules).Error; err != nil {
			return "", err
		}

		for _, modulePrefix := range tnsModules {
			transactionPrefixes[modulePrefix.ModuleName] = modulePrefix.Prefix
		}
		if err := config.SetRedisObject(redisKey, &transactionPrefixes, 0); err != nil {
			return "", err
		}
	}

	prefix, ok := transactionPrefixes[moduleName]
	if !ok || prefix == "" {
		return "", nil
	}
	return prefix, nil
}

// FormatDocumentNumber renders "PREFIX-000042" style numbers from the branch
// prefix map and an allocated sequence number.
func FormatDocumentNumber(ctx context.Context, branchId int, moduleName string, sequenceNo int64) (string, error) {
	prefix, err := getTransactionPrefix(ctx, branchId, moduleName)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return fmt.Sprintf("%06d", sequenceNo), nil
	}
	return fmt.Sprintf("%s-%06d", prefix, sequenceNo), nil
}
