package workflow

import (
	"testing"

	"github.com/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSystemExpectedCash_Formula(t *testing.T) {
	shift := &models.CashierShift{
		BeginningCash:  dec("1000.00"),
		CashSales:      dec("250.00"),
		CashInTotal:    dec("0.00"),
		CashOutTotal:   dec("50.00"),
		ArCashPayments: dec("0.00"),
	}
	if got := shift.SystemExpectedCash(); !got.Equal(dec("1200.00")) {
		t.Fatalf("expected 1200.00, got %s", got)
	}
}

func TestSystemExpectedCash_ArCollectionsCountAsCash(t *testing.T) {
	shift := &models.CashierShift{
		BeginningCash:  dec("500.00"),
		CashSales:      dec("100.00"),
		CashInTotal:    dec("20.00"),
		CashOutTotal:   dec("30.00"),
		ArCashPayments: dec("75.50"),
	}
	if got := shift.SystemExpectedCash(); !got.Equal(dec("665.50")) {
		t.Fatalf("expected 665.50, got %s", got)
	}
}

func TestSystemExpectedCash_NonCashSalesDoNotAffectDrawer(t *testing.T) {
	base := &models.CashierShift{BeginningCash: dec("100.00"), CashSales: dec("40.00")}
	withNonCash := &models.CashierShift{BeginningCash: dec("100.00"), CashSales: dec("40.00"), NonCashSales: dec("999.99")}

	if !base.SystemExpectedCash().Equal(withNonCash.SystemExpectedCash()) {
		t.Fatal("non-cash sales must not change the expected drawer amount")
	}
}

// Variance splits into exactly one of over/short, mirroring how CloseShift
// records the reading.
func TestVariance_OverShortSplit(t *testing.T) {
	cases := []struct {
		counted  string
		expected string
		over     string
		short    string
		balanced bool
	}{
		{"1200.00", "1200.00", "0", "0", true},
		{"1190.00", "1200.00", "0", "10.00", false},
		{"1205.00", "1200.00", "5.00", "0", false},
	}
	for _, tc := range cases {
		variance := dec(tc.counted).Sub(dec(tc.expected))
		over := decimal.Max(variance, decimal.Zero)
		short := decimal.Max(variance.Neg(), decimal.Zero)

		if !over.Equal(dec(tc.over)) {
			t.Fatalf("counted=%s: expected over=%s, got %s", tc.counted, tc.over, over)
		}
		if !short.Equal(dec(tc.short)) {
			t.Fatalf("counted=%s: expected short=%s, got %s", tc.counted, tc.short, short)
		}
		if variance.IsZero() != tc.balanced {
			t.Fatalf("counted=%s: balanced mismatch", tc.counted)
		}
		if over.IsPositive() && short.IsPositive() {
			t.Fatal("variance can never be over and short at once")
		}
	}
}

// An invoice paid partly in cash and partly non-cash posts two events but is
// one sale: both parts feed gross sales, the transaction count moves once.
func TestShiftCounterUpdates_SplitPaymentCountsOneTransaction(t *testing.T) {
	cashPart, err := shiftCounterUpdates(models.ShiftEventCashSale, dec("60.00"), true)
	if err != nil {
		t.Fatalf("cash part: %v", err)
	}
	nonCashPart, err := shiftCounterUpdates(models.ShiftEventNonCashSale, dec("40.00"), false)
	if err != nil {
		t.Fatalf("non-cash part: %v", err)
	}

	for name, updates := range map[string]map[string]interface{}{"cash": cashPart, "non-cash": nonCashPart} {
		if _, ok := updates["gross_sales"]; !ok {
			t.Fatalf("%s part must feed gross_sales", name)
		}
	}
	if _, ok := cashPart["transaction_count"]; !ok {
		t.Fatal("the part opening the transaction must bump transaction_count")
	}
	if _, ok := nonCashPart["transaction_count"]; ok {
		t.Fatal("the second part of a split payment must not bump transaction_count again")
	}
}

func TestShiftCounterUpdates_NonSaleKindsNeverTouchSalesTotals(t *testing.T) {
	for _, kind := range []models.ShiftEventKind{models.ShiftEventCashIn, models.ShiftEventCashOut, models.ShiftEventVoid} {
		updates, err := shiftCounterUpdates(kind, dec("10.00"), true)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if _, ok := updates["gross_sales"]; ok {
			t.Fatalf("%s must not feed gross_sales", kind)
		}
		if _, ok := updates["transaction_count"]; ok {
			t.Fatalf("%s must not bump transaction_count", kind)
		}
	}
}

func TestShiftCounterUpdates_UnknownKind(t *testing.T) {
	if _, err := shiftCounterUpdates(models.ShiftEventKind("bogus"), dec("1.00"), false); err == nil {
		t.Fatal("unknown kind must be rejected")
	}
}

func TestShiftCounterColumns_CoverEveryManualKind(t *testing.T) {
	kinds := []models.ShiftEventKind{
		models.ShiftEventCashSale,
		models.ShiftEventNonCashSale,
		models.ShiftEventCashIn,
		models.ShiftEventCashOut,
		models.ShiftEventArCashPayment,
		models.ShiftEventDiscount,
		models.ShiftEventVoid,
	}
	seen := map[string]models.ShiftEventKind{}
	for _, kind := range kinds {
		column, ok := shiftCounterColumns[kind]
		if !ok {
			t.Fatalf("kind %q has no counter column", kind)
		}
		if prev, dup := seen[column]; dup {
			t.Fatalf("kinds %q and %q share column %q", prev, kind, column)
		}
		seen[column] = kind
	}
}
