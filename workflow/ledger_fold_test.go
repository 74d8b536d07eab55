package workflow

import (
	"testing"

	"github.com/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

// The ledger's core identity: each row's balance-after equals the previous
// balance plus the row's signed quantity, with the sign coming only from the
// movement type's direction. This fold is what AppendMovement performs per
// row and what RebuildLedgerForKey replays for a whole key.

func TestLedgerFold_RunningBalance(t *testing.T) {
	type step struct {
		movementType models.MovementType
		qty          string
		wantBalance  string
	}
	steps := []step{
		{models.MovementTypeOpeningStock, "100", "100"},
		{models.MovementTypePurchase, "50", "150"},
		{models.MovementTypeSale, "30", "120"},
		{models.MovementTypeTransferOut, "20", "100"},
		{models.MovementTypeTransferIn, "5", "105"},
		{models.MovementTypeCustomerReturn, "2", "107"},
		{models.MovementTypeSupplierReturn, "7", "100"},
		{models.MovementTypeAdjustmentDecrease, "0.5", "99.5"},
		{models.MovementTypeCorrectionIncrease, "0.5", "100"},
	}

	balance := decimal.Zero
	for i, s := range steps {
		balance = balance.Add(s.movementType.SignedQty(dec(s.qty)))
		if !balance.Equal(dec(s.wantBalance)) {
			t.Fatalf("step %d (%s): expected balance %s, got %s", i, s.movementType, s.wantBalance, balance)
		}
	}
}

func TestLedgerFold_FractionalQuantities(t *testing.T) {
	balance := decimal.Zero
	balance = balance.Add(models.MovementTypePurchase.SignedQty(dec("1.2345")))
	balance = balance.Add(models.MovementTypeSale.SignedQty(dec("0.2345")))
	if !balance.Equal(dec("1")) {
		t.Fatalf("expected exact decimal arithmetic, got %s", balance)
	}
}

func TestDriftEpsilon_BoundsComparison(t *testing.T) {
	cached := dec("100.00005")
	recomputed := dec("100")
	if cached.Sub(recomputed).Abs().GreaterThan(DriftEpsilon) {
		t.Fatal("difference within epsilon must not count as drift")
	}

	cached = dec("100.001")
	if !cached.Sub(recomputed).Abs().GreaterThan(DriftEpsilon) {
		t.Fatal("difference beyond epsilon must count as drift")
	}
}
