package workflow

import (
	"fmt"
	"strings"

	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
)

// ActorHistory exposes the recorded actor slots of a workflow entity.
// Zero means the slot is not yet filled.
type ActorHistory interface {
	ActorInSlot(slot models.ActorSlot) int
}

// ValidateSeparation is a pure function of (recorded actor history, proposed
// assignment, rule set): it decides whether actorId may fill proposedSlot.
// No side effects, so it is safe to call before opening a transaction.
// On denial the error carries the exact rule id and field so the caller can
// point at the configuration to change.
func ValidateSeparation(entity ActorHistory, proposedSlot models.ActorSlot, actorId int, actorRole models.UserRole, rules []*models.SODRule) error {
	for _, rule := range rules {
		if rule.Policy != models.SODPolicyMustDiffer {
			continue
		}
		if rule.IsActive != nil && !*rule.IsActive {
			continue
		}

		var otherSlot models.ActorSlot
		switch proposedSlot {
		case rule.ActorSlotA:
			otherSlot = rule.ActorSlotB
		case rule.ActorSlotB:
			otherSlot = rule.ActorSlotA
		default:
			continue
		}

		if roleIsExempt(actorRole, rule.ExemptRoles) {
			continue
		}

		otherActor := entity.ActorInSlot(otherSlot)
		if otherActor != 0 && otherActor == actorId {
			return &utils.SODViolation{
				RuleId:    rule.ID,
				RuleField: string(otherSlot),
				Message:   fmt.Sprintf("%s must differ from %s", proposedSlot, otherSlot),
			}
		}
	}
	return nil
}

// exemptRoles is stored as a comma-separated list on the rule row.
func roleIsExempt(role models.UserRole, exemptRoles string) bool {
	if exemptRoles == "" || role == "" {
		return false
	}
	for _, r := range strings.Split(exemptRoles, ",") {
		if strings.EqualFold(strings.TrimSpace(r), string(role)) {
			return true
		}
	}
	return false
}
