package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
)

type TransactionNumberSeries struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsDefault  *bool     `gorm:"not null;default:false" json:"is_default"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Modules []TransactionNumberSeriesModule `gorm:"foreignKey:SeriesId" json:"modules"`
}

type TransactionNumberSeriesModule struct {
	ID         int    `gorm:"primary_key" json:"id"`
	SeriesId   int    `gorm:"index;not null" json:"series_id"`
	ModuleName string `gorm:"size:50;not null" json:"module_name"`
	Prefix     string `gorm:"size:20" json:"prefix"`
}

// Module names used for document numbering.
const (
	ModuleNameTransferOrder = "TransferOrder"
	ModuleNamePurchaseOrder = "PurchaseOrder"
	ModuleNameSalesInvoice  = "SalesInvoice"
	ModuleNameRefund        = "Refund"
	ModuleNameCashierShift  = "CashierShift"
)

type NewTransactionNumberSeries struct {
	Name    string                            `json:"name" binding:"required"`
	Modules []NewTransactionNumberSeriesModul `json:"modules"`
}

type NewTransactionNumberSeriesModul struct {
	ModuleName string `json:"module_name" binding:"required"`
	Prefix     string `json:"prefix"`
}

func CreateTransactionNumberSeries(ctx context.Context, input *NewTransactionNumberSeries) (*TransactionNumberSeries, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateUnique[TransactionNumberSeries](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	series := TransactionNumberSeries{
		BusinessId: businessId,
		Name:       input.Name,
		IsDefault:  utils.NewFalse(),
	}
	for _, m := range input.Modules {
		series.Modules = append(series.Modules, TransactionNumberSeriesModule{
			ModuleName: m.ModuleName,
			Prefix:     m.Prefix,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&series).Error; err != nil {
		return nil, err
	}
	return &series, nil
}

func GetTransactionNumberSeries(ctx context.Context, id int) (*TransactionNumberSeries, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	return utils.FetchModel[TransactionNumberSeries](ctx, businessId, id, "Modules")
}
