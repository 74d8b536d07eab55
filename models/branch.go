package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
)

type Branch struct {
	ID                        int       `gorm:"primary_key" json:"id"`
	BusinessId                string    `gorm:"index;not null" json:"business_id"`
	Name                      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone                     string    `gorm:"size:20" json:"phone"`
	Address                   string    `gorm:"type:text" json:"address"`
	TransactionNumberSeriesId int       `gorm:"index" json:"transaction_number_series_id"`
	IsActive                  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBranch struct {
	Name                      string `json:"name" binding:"required"`
	Phone                     string `json:"phone"`
	Address                   string `json:"address"`
	TransactionNumberSeriesId int    `json:"transaction_number_series_id"`
}

func (input *NewBranch) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Branch](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.TransactionNumberSeriesId != 0 {
		if err := utils.ValidateResourceId[TransactionNumberSeries](ctx, businessId, input.TransactionNumberSeriesId); err != nil {
			return errors.New("transaction number series not found")
		}
	}
	return nil
}

func CreateBranch(ctx context.Context, input *NewBranch) (*Branch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	branch := Branch{
		BusinessId:                businessId,
		Name:                      input.Name,
		Phone:                     input.Phone,
		Address:                   input.Address,
		TransactionNumberSeriesId: input.TransactionNumberSeriesId,
		IsActive:                  utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func UpdateBranch(ctx context.Context, id int, input *NewBranch) (*Branch, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	branch, err := utils.FetchModel[Branch](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("branch", "")
	}

	branch.Name = input.Name
	branch.Phone = input.Phone
	branch.Address = input.Address
	branch.TransactionNumberSeriesId = input.TransactionNumberSeriesId

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(branch).Error; err != nil {
		return nil, err
	}
	// prefix map is cached per branch
	_ = config.RemoveRedisKey("tnsPrefixMap:" + itoa(id))
	return branch, nil
}

func GetBranch(ctx context.Context, id int) (*Branch, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	return utils.FetchModel[Branch](ctx, businessId, id)
}

func ListBranches(ctx context.Context) ([]*Branch, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[Branch](ctx, businessId)
}
