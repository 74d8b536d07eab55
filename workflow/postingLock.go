package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/retail_backend/config"
	"github.com/mmdatafocus/retail_backend/utils"
	"gorm.io/gorm"
)

// Advisory-lock wait bounds, in seconds. Large multi-line transfers hold
// their locks longer than a single append, so posting operations get a more
// generous bound than per-key serialization.
const (
	stockKeyLockWaitSeconds = 30
	postingLockWaitSeconds  = 120
)

func stockKeyLockName(businessId string, warehouseId int, variantId int) string {
	return fmt.Sprintf("stock:%s:%d:%d", businessId, warehouseId, variantId)
}

func postingLockName(businessId string) string {
	return fmt.Sprintf("posting:%s", businessId)
}

func acquireNamedLock(tx *gorm.DB, lockName string, waitSeconds int) error {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, ?)", lockName, waitSeconds).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire lock %s", lockName)
	}
	return nil
}

func releaseNamedLock(conn *gorm.DB, lockName string) {
	var _ok int
	_ = conn.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// AdvisoryLocks tracks the GET_LOCK names taken on one pinned connection so
// RunLockedTransaction can release them after the surrounding transaction has
// finished. Locks taken through it are never released mid-transaction.
type AdvisoryLocks struct {
	businessId string
	names      []string
}

// Posting serializes multi-document postings (transfer send/receive/cancel,
// invoice confirm/void, refund confirmation) per business.
func (l *AdvisoryLocks) Posting(tx *gorm.DB) error {
	name := postingLockName(l.businessId)
	if err := acquireNamedLock(tx, name, postingLockWaitSeconds); err != nil {
		return utils.NewConflictError(err.Error())
	}
	l.names = append(l.names, name)
	return nil
}

// StockKey serializes ledger appends per (business, warehouse, variant)
// across instances, so balances fold in a single total order while unrelated
// keys proceed in parallel.
func (l *AdvisoryLocks) StockKey(tx *gorm.DB, warehouseId int, variantId int) error {
	name := stockKeyLockName(l.businessId, warehouseId, variantId)
	if err := acquireNamedLock(tx, name, stockKeyLockWaitSeconds); err != nil {
		return utils.NewConflictError(err.Error())
	}
	l.names = append(l.names, name)
	return nil
}

func (l *AdvisoryLocks) releaseAll(conn *gorm.DB) {
	for i := len(l.names) - 1; i >= 0; i-- {
		releaseNamedLock(conn, l.names[i])
	}
	l.names = nil
}

// LockedTransactionFunc runs inside the transaction; advisory locks taken
// through the lock set stay held until after the transaction finishes.
type LockedTransactionFunc func(tx *gorm.DB, locks *AdvisoryLocks) error

// RunLockedTransaction pins one connection, runs fn in a transaction on it,
// and releases every advisory lock fn took only after the transaction has
// committed or rolled back. GET_LOCK is connection-scoped, not
// transaction-scoped: releasing inside the transaction would drop the lock
// before COMMIT and let a concurrent posting read pre-commit state.
func RunLockedTransaction(ctx context.Context, businessId string, fn LockedTransactionFunc) error {
	db := config.GetDB()
	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		locks := &AdvisoryLocks{businessId: businessId}
		defer locks.releaseAll(conn)
		return conn.Transaction(func(tx *gorm.DB) error {
			return fn(tx, locks)
		})
	})
}
