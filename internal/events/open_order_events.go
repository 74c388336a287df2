package events

import "time"

const OpenOrdersImportedName = "open_orders.imported"

// OpenOrdersImportedEvent - импорт выгрузки открытых заказов закоммичен.
type OpenOrdersImportedEvent struct {
	UploadID       uint64
	UploadedBy     string
	SourceFilename string
	UploadedAt     time.Time
	NewCount       int
	CompletedCount int
	ReopenedCount  int
	ChangedCount   int
	SkippedCount   int
}

func (e OpenOrdersImportedEvent) Name() string {
	return OpenOrdersImportedName
}
