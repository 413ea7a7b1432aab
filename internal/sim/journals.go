package sim

import (
	"fib-pattern-lab/internal/storage"
)

// Journals bundles the persistence targets of one run. Trades, Opens,
// Closed and Snapshots are required; the mirror fields are optional and
// best-effort (a mirror failure is logged, never fatal).
type Journals struct {
	Trades    storage.TradeLog
	Opens     storage.OpenPositionStore
	Closed    storage.ClosedPositionLog
	Snapshots storage.SnapshotLog

	MirrorTrades storage.TradeLog
	MirrorClosed storage.ClosedPositionLog
	Archive      storage.SnapshotArchive
}
