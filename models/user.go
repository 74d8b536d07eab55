package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email      string    `gorm:"size:100;index" json:"email"`
	Role       UserRole  `gorm:"size:20;not null;default:'Cashier'" json:"role"`
	BranchId   int       `gorm:"index" json:"branch_id"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Permission names consumed by workflows.
const (
	PermissionForceCloseShift  = "force_close_shift"
	PermissionAppendCorrection = "append_correction"
	PermissionApproveAmendment = "approve_amendment"
	PermissionCancelTransfer   = "cancel_transfer"
	PermissionManageSODRules   = "manage_sod_rules"
)

// rolePermissions is flat config: a role maps to the privileged actions it
// may perform. Ordinary posting operations are not listed; any active user
// may perform them subject to SOD.
var rolePermissions = map[UserRole]map[string]bool{
	UserRoleCashier: {},
	UserRoleSupervisor: {
		PermissionForceCloseShift: true,
		PermissionCancelTransfer:  true,
	},
	UserRoleManager: {
		PermissionForceCloseShift:  true,
		PermissionCancelTransfer:   true,
		PermissionAppendCorrection: true,
		PermissionApproveAmendment: true,
	},
	UserRoleAdmin: {
		PermissionForceCloseShift:  true,
		PermissionCancelTransfer:   true,
		PermissionAppendCorrection: true,
		PermissionApproveAmendment: true,
		PermissionManageSODRules:   true,
	},
}

func (r UserRole) HasPermission(permission string) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	return perms[permission]
}

// HasPermission resolves the user and checks the role permission table.
// Errors (including unknown user) read as "no".
func HasPermission(ctx context.Context, userId int, permission string) bool {
	user, err := GetUser(ctx, userId)
	if err != nil {
		return false
	}
	if user.IsActive != nil && !*user.IsActive {
		return false
	}
	return user.Role.HasPermission(permission)
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	BranchId int      `json:"branch_id"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	role := input.Role
	if role == "" {
		role = UserRoleCashier
	}
	if _, ok := rolePermissions[role]; !ok {
		return nil, utils.NewValidationError("role", "unknown role")
	}
	if input.Email != "" {
		if err := utils.ValidateUnique[User](ctx, businessId, "email", input.Email, 0); err != nil {
			return nil, err
		}
	}

	user := User{
		BusinessId: businessId,
		Name:       input.Name,
		Email:      input.Email,
		Role:       role,
		BranchId:   input.BranchId,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	businessId, _ := utils.GetBusinessIdFromContext(ctx)
	user, err := utils.FetchModel[User](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("user", "")
	}
	return user, nil
}

func ListUsers(ctx context.Context) ([]*User, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[User](ctx, businessId)
}
