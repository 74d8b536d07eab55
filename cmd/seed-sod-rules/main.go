// seed-sod-rules installs the default separation-of-duty rule set for a
// business. Existing rules for the same (entity, slot pair) are left alone so
// operator-tuned policies survive reruns.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-sod-rules --business-id=<uuid>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/models"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	created := 0
	for _, rule := range models.DefaultSODRules(*businessID) {
		var count int64
		if err := db.Model(&models.SODRule{}).
			Where("business_id = ? AND entity_type = ? AND actor_slot_a = ? AND actor_slot_b = ?",
				rule.BusinessId, rule.EntityType, rule.ActorSlotA, rule.ActorSlotB).
			Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to check existing rule: %v\n", err)
			os.Exit(1)
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&rule).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create rule: %v\n", err)
			os.Exit(1)
		}
		created++
	}
	fmt.Printf("Seeded %d separation-of-duty rules for business %s\n", created, *businessID)
}
