package workflow

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/retail_backend/models"
	"github.com/mmdatafocus/retail_backend/utils"
)

// NOTE: ValidateSeparation is deliberately pure so the duty-separation policy
// is testable without a database. These tests pin the semantics the posting
// workflows rely on.

type fakeHistory map[models.ActorSlot]int

func (h fakeHistory) ActorInSlot(slot models.ActorSlot) int { return h[slot] }

func mustDifferRule(id int, a, b models.ActorSlot) *models.SODRule {
	active := true
	return &models.SODRule{
		ID:         id,
		EntityType: models.SODEntityTransferOrder,
		ActorSlotA: a,
		ActorSlotB: b,
		Policy:     models.SODPolicyMustDiffer,
		IsActive:   &active,
	}
}

func TestValidateSeparation_SameActorRejected(t *testing.T) {
	rules := []*models.SODRule{
		mustDifferRule(7, models.ActorSlotCreatedBy, models.ActorSlotSentBy),
	}
	entity := fakeHistory{models.ActorSlotCreatedBy: 42}

	err := ValidateSeparation(entity, models.ActorSlotSentBy, 42, models.UserRoleCashier, rules)
	if err == nil {
		t.Fatal("expected violation when creator tries to fill sent_by")
	}
	var violation *utils.SODViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected SODViolation, got %T", err)
	}
	if violation.RuleId != 7 {
		t.Fatalf("violation should carry the rule id, got %d", violation.RuleId)
	}
	if violation.RuleField != string(models.ActorSlotCreatedBy) {
		t.Fatalf("violation should name the conflicting slot, got %q", violation.RuleField)
	}
}

func TestValidateSeparation_DifferentActorPasses(t *testing.T) {
	rules := []*models.SODRule{
		mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotSentBy),
	}
	entity := fakeHistory{models.ActorSlotCreatedBy: 42}

	if err := ValidateSeparation(entity, models.ActorSlotSentBy, 43, models.UserRoleCashier, rules); err != nil {
		t.Fatalf("different actor should pass: %v", err)
	}
}

func TestValidateSeparation_UnfilledSlotPasses(t *testing.T) {
	rules := []*models.SODRule{
		mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotCheckedBy),
	}
	// nothing recorded yet
	entity := fakeHistory{}

	if err := ValidateSeparation(entity, models.ActorSlotCheckedBy, 42, models.UserRoleCashier, rules); err != nil {
		t.Fatalf("empty other slot should pass: %v", err)
	}
}

func TestValidateSeparation_RuleIsSymmetric(t *testing.T) {
	rules := []*models.SODRule{
		mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotCheckedBy),
	}
	// the entity was checked first; the same user now tries to be recorded
	// as creator via the opposite slot of the pair
	entity := fakeHistory{models.ActorSlotCheckedBy: 42}

	if err := ValidateSeparation(entity, models.ActorSlotCreatedBy, 42, models.UserRoleCashier, rules); err == nil {
		t.Fatal("rule must apply in both directions of the slot pair")
	}
}

func TestValidateSeparation_ExemptRoleBypasses(t *testing.T) {
	rule := mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotSentBy)
	rule.ExemptRoles = "Manager, Admin"
	entity := fakeHistory{models.ActorSlotCreatedBy: 42}

	if err := ValidateSeparation(entity, models.ActorSlotSentBy, 42, models.UserRoleManager, []*models.SODRule{rule}); err != nil {
		t.Fatalf("exempt role should bypass the rule: %v", err)
	}
	if err := ValidateSeparation(entity, models.ActorSlotSentBy, 42, models.UserRoleCashier, []*models.SODRule{rule}); err == nil {
		t.Fatal("non-exempt role must still be blocked")
	}
}

func TestValidateSeparation_InactiveAndMayBeSameIgnored(t *testing.T) {
	inactive := mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotSentBy)
	off := false
	inactive.IsActive = &off

	maySame := mustDifferRule(2, models.ActorSlotCreatedBy, models.ActorSlotSentBy)
	maySame.Policy = models.SODPolicyMayBeSame

	entity := fakeHistory{models.ActorSlotCreatedBy: 42}
	if err := ValidateSeparation(entity, models.ActorSlotSentBy, 42, models.UserRoleCashier, []*models.SODRule{inactive, maySame}); err != nil {
		t.Fatalf("inactive and may-be-same rules must not block: %v", err)
	}
}

func TestValidateSeparation_UnrelatedSlotIgnored(t *testing.T) {
	rules := []*models.SODRule{
		mustDifferRule(1, models.ActorSlotCreatedBy, models.ActorSlotCheckedBy),
	}
	entity := fakeHistory{models.ActorSlotCreatedBy: 42}

	// received_by is not part of the rule pair
	if err := ValidateSeparation(entity, models.ActorSlotReceivedBy, 42, models.UserRoleCashier, rules); err != nil {
		t.Fatalf("slot outside the rule pair should pass: %v", err)
	}
}
