package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	warehouseID := flag.Int("warehouse-id", 0, "Optional: rebuild one warehouse only")
	variantID := flag.Int("variant-id", 0, "Optional: rebuild one variant only (requires --warehouse-id)")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing keys and continue rebuilding others")
	shifts := flag.Bool("shifts", false, "Verify shift counters against replayed shift events instead of rebuilding stock keys")
	shiftID := flag.Int("shift-id", 0, "Optional: verify a single shift (with --shifts)")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	if *shifts {
		verifyShifts(db, *businessID, *shiftID, *continueOnError)
		return
	}

	var keys []workflow.StockKey
	if *warehouseID > 0 && *variantID > 0 {
		keys = append(keys, workflow.StockKey{WarehouseId: *warehouseID, VariantId: *variantID})
	} else {
		discovered, err := workflow.DiscoverStockKeys(db, *businessID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover keys: %v\n", err)
			os.Exit(1)
		}
		for _, k := range discovered {
			if *warehouseID > 0 && k.WarehouseId != *warehouseID {
				continue
			}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		fmt.Println("no stock keys found to rebuild")
		return
	}

	repairedTotal := 0
	for _, key := range keys {
		fmt.Printf("Rebuilding business=%s warehouse=%d variant=%d\n", *businessID, key.WarehouseId, key.VariantId)
		var result *workflow.RebuildResult
		if err := workflow.RunLockedTransaction(context.Background(), *businessID, func(tx *gorm.DB, locks *workflow.AdvisoryLocks) error {
			if err := locks.StockKey(tx, key.WarehouseId, key.VariantId); err != nil {
				return err
			}
			var err error
			result, err = workflow.RebuildLedgerForKey(tx, logger, *businessID, key.WarehouseId, key.VariantId)
			return err
		}); err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "rebuild failed (skipping): %v\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  scanned=%d repaired=%d final=%s\n", result.MovementsScanned, result.RowsRepaired, result.FinalBalance.String())
		repairedTotal += result.RowsRepaired
	}
	fmt.Printf("Done. keys=%d rows_repaired=%d\n", len(keys), repairedTotal)
}

func verifyShifts(db *gorm.DB, businessID string, shiftID int, continueOnError bool) {
	var ids []int
	if shiftID > 0 {
		ids = []int{shiftID}
	} else {
		var err error
		ids, err = workflow.DiscoverShiftIds(db, businessID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover shifts: %v\n", err)
			os.Exit(1)
		}
	}
	if len(ids) == 0 {
		fmt.Println("no shifts found to verify")
		return
	}

	mismatched := 0
	for _, id := range ids {
		result, err := workflow.VerifyShiftCounters(db, businessID, id)
		if err != nil {
			if continueOnError {
				fmt.Fprintf(os.Stderr, "verify shift %d failed (skipping): %v\n", id, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "verify shift %d failed: %v\n", id, err)
			os.Exit(1)
		}
		if len(result.Mismatches) == 0 {
			fmt.Printf("shift=%d events=%d OK\n", id, result.EventsReplayed)
			continue
		}
		mismatched++
		for _, m := range result.Mismatches {
			fmt.Printf("shift=%d MISMATCH %s counter=%s replayed=%s\n", id, m.Column, m.Counter.String(), m.Replayed.String())
		}
	}
	fmt.Printf("Done. shifts=%d mismatched=%d\n", len(ids), mismatched)
	if mismatched > 0 {
		os.Exit(2)
	}
}
