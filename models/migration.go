package models

import (
	"log"

	"github.com/mmdatafocus/retail_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &Branch{}, &Warehouse{}, &ProductVariant{}, &User{},
		&StockMovement{}, &StockSummary{},
		&IdempotencyKey{},
		&SODRule{},
		&CashierShift{}, &ShiftEvent{},
		&TransferOrder{}, &TransferOrderDetail{},
		&PurchaseOrder{}, &PurchaseOrderDetail{}, &PurchaseAmendment{},
		&SalesInvoice{}, &SalesInvoiceDetail{},
		&Refund{}, &RefundDetail{},
		&TransactionNumberSeries{}, &TransactionNumberSeriesModule{},
		&AuditLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
