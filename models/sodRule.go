package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
)

// SODRule is one row of per-business separation-of-duties configuration:
// for an entity type, the named pair of actor slots either must be filled by
// different users or may be the same, with optional role exemptions.
type SODRule struct {
	ID          int           `gorm:"primary_key" json:"id"`
	BusinessId  string        `gorm:"index;not null" json:"business_id"`
	EntityType  SODEntityType `gorm:"size:50;not null" json:"entity_type"`
	ActorSlotA  ActorSlot     `gorm:"size:30;not null" json:"actor_slot_a"`
	ActorSlotB  ActorSlot     `gorm:"size:30;not null" json:"actor_slot_b"`
	Policy      SODPolicy     `gorm:"size:20;not null;default:'MustDiffer'" json:"policy"`
	ExemptRoles string        `gorm:"size:255" json:"exempt_roles"`
	IsActive    *bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSODRule struct {
	EntityType  SODEntityType `json:"entity_type" binding:"required"`
	ActorSlotA  string        `json:"actor_slot_a" binding:"required"`
	ActorSlotB  string        `json:"actor_slot_b" binding:"required"`
	Policy      SODPolicy     `json:"policy"`
	ExemptRoles string        `json:"exempt_roles"`
}

func (input *NewSODRule) validate() error {
	if _, err := ParseActorSlot(input.ActorSlotA); err != nil {
		return utils.NewValidationError("actor_slot_a", "unknown actor slot")
	}
	if _, err := ParseActorSlot(input.ActorSlotB); err != nil {
		return utils.NewValidationError("actor_slot_b", "unknown actor slot")
	}
	if input.ActorSlotA == input.ActorSlotB {
		return utils.NewValidationError("actor_slot_b", "rule must name two distinct slots")
	}
	if input.Policy != "" && input.Policy != SODPolicyMustDiffer && input.Policy != SODPolicyMayBeSame {
		return utils.NewValidationError("policy", "unknown policy")
	}
	return nil
}

func CreateSODRule(ctx context.Context, input *NewSODRule) (*SODRule, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	policy := input.Policy
	if policy == "" {
		policy = SODPolicyMustDiffer
	}
	rule := SODRule{
		BusinessId:  businessId,
		EntityType:  input.EntityType,
		ActorSlotA:  ActorSlot(input.ActorSlotA),
		ActorSlotB:  ActorSlot(input.ActorSlotB),
		Policy:      policy,
		ExemptRoles: input.ExemptRoles,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[SODRule](businessId)
	return &rule, nil
}

func UpdateSODRule(ctx context.Context, id int, input *NewSODRule) (*SODRule, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	rule, err := utils.FetchModel[SODRule](ctx, businessId, id)
	if err != nil {
		return nil, utils.NewNotFoundError("sod rule", "")
	}

	rule.EntityType = input.EntityType
	rule.ActorSlotA = ActorSlot(input.ActorSlotA)
	rule.ActorSlotB = ActorSlot(input.ActorSlotB)
	if input.Policy != "" {
		rule.Policy = input.Policy
	}
	rule.ExemptRoles = input.ExemptRoles

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisList[SODRule](businessId)
	return rule, nil
}

// ListSODRules returns the active rules for one entity type, via the list
// cache; rule edits invalidate it.
func ListSODRules(ctx context.Context, entityType SODEntityType) ([]*SODRule, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	all, err := utils.RetrieveRedisList[SODRule](businessId)
	if err != nil || all == nil {
		all, err = utils.FetchAllModels[SODRule](ctx, businessId)
		if err != nil {
			return nil, err
		}
		_ = utils.StoreRedisList[SODRule](all, businessId)
	}

	var rules []*SODRule
	for _, r := range all {
		if r.EntityType == entityType && (r.IsActive == nil || *r.IsActive) {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// DefaultSODRules seeds the configuration a new business starts with:
// checker, sender and approver must each differ from the creator.
func DefaultSODRules(businessId string) []SODRule {
	mustDiffer := func(entity SODEntityType, a ActorSlot, b ActorSlot) SODRule {
		return SODRule{
			BusinessId: businessId,
			EntityType: entity,
			ActorSlotA: a,
			ActorSlotB: b,
			Policy:     SODPolicyMustDiffer,
			IsActive:   utils.NewTrue(),
		}
	}
	return []SODRule{
		mustDiffer(SODEntityTransferOrder, ActorSlotCreatedBy, ActorSlotCheckedBy),
		mustDiffer(SODEntityTransferOrder, ActorSlotCreatedBy, ActorSlotSentBy),
		mustDiffer(SODEntityPurchaseAmendment, ActorSlotCreatedBy, ActorSlotApprovedBy),
		mustDiffer(SODEntityRefund, ActorSlotCreatedBy, ActorSlotApprovedBy),
	}
}
