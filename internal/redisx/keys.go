package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Fulfillment replay guard: idem:fulfill:{reference} -> serialized report.
	// A repeat run for the same order reference returns the stored report
	// instead of creating duplicate ledger/appointment rows.
	KeyFulfillReport = "idem:fulfill:%s"
)

var (
	TTLStatusCache   = 5 * time.Minute
	TTLFulfillReport = 24 * time.Hour
)
