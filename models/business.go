package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"gorm.io/gorm"
)

type Business struct {
	Id       string `gorm:"primary_key;size:36" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name" binding:"required"`
	Country  string `gorm:"size:100" json:"country"`
	City     string `gorm:"size:100" json:"city"`
	Address  string `gorm:"type:text" json:"address"`
	Timezone string `gorm:"size:100" json:"timezone"`
	// RejectNegativeStock makes outbound movements that would drive a balance
	// negative hard failures instead of recorded anomalies.
	RejectNegativeStock *bool     `gorm:"not null;default:true" json:"reject_negative_stock"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name     string `json:"name" binding:"required"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	business := Business{
		Id:                  uuid.NewString(),
		Name:                input.Name,
		Country:             input.Country,
		City:                input.City,
		Address:             input.Address,
		Timezone:            input.Timezone,
		RejectNegativeStock: utils.NewTrue(),
		IsActive:            utils.NewTrue(),
	}

	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		// new businesses start with the baseline separation config
		rules := DefaultSODRules(business.Id)
		return tx.Create(&rules).Error
	})
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetBusinessById reads through a redis cache; business rows change rarely.
func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	var business *Business
	cacheKey := "Business:" + businessId
	exists, err := config.GetRedisObject(cacheKey, &business)
	if err == nil && exists && business != nil {
		return business, nil
	}

	db := config.GetDB()
	var result Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&result).Error; err != nil {
		return nil, utils.NewNotFoundError("business", businessId)
	}
	_ = config.SetRedisObject(cacheKey, &result, utils.GetCacheLifespan())
	return &result, nil
}

func ClearBusinessCache(businessId string) error {
	return config.RemoveRedisKey("Business:" + businessId)
}
