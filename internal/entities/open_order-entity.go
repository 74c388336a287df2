package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineStatus - состояние строки заказа относительно последней выгрузки.
type LineStatus string

const (
	LineStatusOpen      LineStatus = "open"
	LineStatusCompleted LineStatus = "completed"
	LineStatusReopened  LineStatus = "reopened"
)

// IsActive - строка считается открытой (open или reopened).
func (s LineStatus) IsActive() bool {
	return s == LineStatusOpen || s == LineStatusReopened
}

// SnapshotEvent - почему был записан снимок строки.
type SnapshotEvent string

const (
	SnapshotCreated   SnapshotEvent = "created"
	SnapshotChanged   SnapshotEvent = "changed"
	SnapshotCompleted SnapshotEvent = "completed"
	SnapshotReopened  SnapshotEvent = "reopened"
)

type OpenOrderUpload struct {
	ID             uint64
	UploadedAt     time.Time
	UploadedBy     string
	SourceFilename string
	ContentHash    *string
	StoredPath     *string
	RowCount       int
	SkippedCount   int
}

// DecimalScale - знаков после запятой в числовых колонках open_order_lines, NUMERIC(18, 4).
const DecimalScale int32 = 4

// OrderLineFields - значения полей строки, которые приходят из файла.
type OrderLineFields struct {
	SONo            string          `json:"so_no"`
	SOState         string          `json:"so_state"`
	CustomerCode    string          `json:"customer_code"`
	CustomerName    string          `json:"customer_name"`
	ItemCode        string          `json:"item_code"`
	ItemDescription string          `json:"item_description"`
	PartNo          string          `json:"part_no"`
	OrderDate       *time.Time      `json:"order_date"`
	ShipBy          *time.Time      `json:"ship_by"`
	QtyOrdered      decimal.Decimal `json:"qty_ordered"`
	QtyShipped      decimal.Decimal `json:"qty_shipped"`
	QtyRemaining    decimal.Decimal `json:"qty_remaining"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

type OpenOrderLine struct {
	ID         uint64
	NaturalKey string
	OrderLineFields
	Status            LineStatus
	FirstSeenUploadID uint64
	FirstSeenAt       time.Time
	LastSeenUploadID  uint64
	LastSeenAt        time.Time
	CompletedAt       *time.Time
	CompletedUploadID *uint64
	ReopenedAt        *time.Time
	ReopenCount       int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OpenOrderLineSnapshot struct {
	ID        uint64
	UploadID  uint64
	LineID    uint64
	Event     SnapshotEvent
	Fields    OrderLineFields
	CreatedAt time.Time
}
