package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

type ProductVariant struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	Name          string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku           string          `gorm:"size:100;index" json:"sku"`
	Barcode       string          `gorm:"size:100" json:"barcode"`
	Unit          string          `gorm:"size:20" json:"unit"`
	SalesPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sales_price"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProductVariant struct {
	Name          string          `json:"name" binding:"required"`
	Sku           string          `json:"sku"`
	Barcode       string          `json:"barcode"`
	Unit          string          `json:"unit"`
	SalesPrice    decimal.Decimal `json:"sales_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

func (input *NewProductVariant) validate(ctx context.Context, businessId string, id int) error {
	if input.Sku != "" {
		if err := utils.ValidateUnique[ProductVariant](ctx, businessId, "sku", input.Sku, id); err != nil {
			return err
		}
	}
	if input.SalesPrice.IsNegative() || input.PurchasePrice.IsNegative() {
		return utils.NewValidationError("price", "must not be negative")
	}
	return nil
}

func CreateProductVariant(ctx context.Context, input *NewProductVariant) (*ProductVariant, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	variant := ProductVariant{
		BusinessId:    businessId,
		Name:          input.Name,
		Sku:           input.Sku,
		Barcode:       input.Barcode,
		Unit:          input.Unit,
		SalesPrice:    input.SalesPrice,
		PurchasePrice: input.PurchasePrice,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&variant).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[ProductVariant](businessId)
	return &variant, nil
}

func UpdateProductVariant(ctx context.Context, id int, input *NewProductVariant) (*ProductVariant, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	variant, err := utils.FetchModel[ProductVariant](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("product variant", "")
	}

	variant.Name = input.Name
	variant.Sku = input.Sku
	variant.Barcode = input.Barcode
	variant.Unit = input.Unit
	variant.SalesPrice = input.SalesPrice
	variant.PurchasePrice = input.PurchasePrice

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(variant).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[ProductVariant](id)
	_ = utils.RemoveRedisList[ProductVariant](businessId)
	return variant, nil
}

func GetProductVariant(ctx context.Context, id int) (*ProductVariant, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	variant, err := utils.FetchModel[ProductVariant](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("product variant", "")
	}
	return variant, nil
}

func ListProductVariants(ctx context.Context) ([]*ProductVariant, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	results, err := utils.RetrieveRedisList[ProductVariant](businessId)
	if err == nil && results != nil {
		return results, nil
	}
	results, err = utils.FetchAllModels[ProductVariant](ctx, businessId)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[ProductVariant](results, businessId)
	return results, nil
}
