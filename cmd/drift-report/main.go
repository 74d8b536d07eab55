package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"github.com/mmdatafocus/retail_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	warehouseID := flag.Int("warehouse-id", 0, "Optional: check one warehouse only")
	publish := flag.Bool("publish", false, "Publish a drift notification for every drifted key")
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
	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)

	keys, err := workflow.DiscoverStockKeys(db, *businessID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover keys: %v\n", err)
		os.Exit(1)
	}

	drifted := 0
	for _, key := range keys {
		if *warehouseID > 0 && key.WarehouseId != *warehouseID {
			continue
		}
		drift, err := workflow.CheckDrift(db, *businessID, key.WarehouseId, key.VariantId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "check failed warehouse=%d variant=%d: %v\n", key.WarehouseId, key.VariantId, err)
			continue
		}
		if drift == nil {
			continue
		}
		drifted++
		fmt.Printf("DRIFT warehouse=%d variant=%d cached=%s recomputed=%s\n",
			key.WarehouseId, key.VariantId, drift.Cached, drift.Recomputed)
		if *publish {
			workflow.PublishDriftNotification(ctx, logger, *businessID, key.WarehouseId, key.VariantId, drift)
		}
	}

	fmt.Printf("Checked %d keys, %d drifted\n", len(keys), drifted)
	if drifted > 0 {
		os.Exit(2)
	}
}
