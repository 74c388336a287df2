package dto

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

// OpenOrderListQueryDTO - фильтр списка строк по статусу.
type OpenOrderListQueryDTO struct {
	Status string `query:"status" validate:"omitempty,oneof=open completed all"`
}

type OpenOrderLineDTO struct {
	ID                uint64          `json:"id"`
	NaturalKey        string          `json:"natural_key"`
	SONo              string          `json:"so_no"`
	SOState           string          `json:"so_state"`
	CustomerCode      string          `json:"customer_code"`
	CustomerName      string          `json:"customer_name"`
	ItemCode          string          `json:"item_code"`
	ItemDescription   string          `json:"item_description"`
	PartNo            string          `json:"part_no"`
	OrderDate         null.Time       `json:"order_date"`
	ShipBy            null.Time       `json:"ship_by"`
	QtyOrdered        decimal.Decimal `json:"qty_ordered"`
	QtyShipped        decimal.Decimal `json:"qty_shipped"`
	QtyRemaining      decimal.Decimal `json:"qty_remaining"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Status            string          `json:"status"`
	FirstSeenUploadID uint64          `json:"first_seen_upload_id"`
	FirstSeenAt       time.Time       `json:"first_seen_at"`
	LastSeenUploadID  uint64          `json:"last_seen_upload_id"`
	LastSeenAt        time.Time       `json:"last_seen_at"`
	CompletedAt       null.Time       `json:"completed_at"`
	CompletedUploadID null.Uint64     `json:"completed_upload_id"`
	ReopenedAt        null.Time       `json:"reopened_at"`
	ReopenCount       int             `json:"reopen_count"`
}

type OpenOrderUploadDTO struct {
	ID             uint64      `json:"id"`
	UploadedAt     time.Time   `json:"uploaded_at"`
	UploadedBy     string      `json:"uploaded_by"`
	SourceFilename string      `json:"source_filename"`
	ContentHash    null.String `json:"content_hash"`
	RowCount       int         `json:"row_count"`
	SkippedCount   int         `json:"skipped_count"`
}

type OpenOrderSnapshotDTO struct {
	ID        uint64                 `json:"id"`
	UploadID  uint64                 `json:"upload_id"`
	LineID    uint64                 `json:"line_id"`
	Event     string                 `json:"event"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt time.Time              `json:"created_at"`
}

type SkippedRowDTO struct {
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

type FieldChangeDTO struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type ChangedRowDTO struct {
	NaturalKey string           `json:"natural_key"`
	SONo       string           `json:"so_no"`
	ItemCode   string           `json:"item_code"`
	Changes    []FieldChangeDTO `json:"changes"`
}

// ImportSummaryDTO - итог одной загрузки.
type ImportSummaryDTO struct {
	UploadID          uint64          `json:"upload_id"`
	SourceFilename    string          `json:"source_filename"`
	UploadedBy        string          `json:"uploaded_by"`
	UploadedAt        time.Time       `json:"uploaded_at"`
	TotalRows         int             `json:"total_rows"`
	NewCount          int             `json:"new_count"`
	StillOpenCount    int             `json:"still_open_count"`
	CompletedCount    int             `json:"completed_count"`
	ReopenedCount     int             `json:"reopened_count"`
	ChangedCount      int             `json:"changed_count"`
	SkippedCount      int             `json:"skipped_count"`
	DuplicateRows     int             `json:"duplicate_rows"`
	DuplicateOfUpload null.Uint64     `json:"duplicate_of_upload_id"`
	Skipped           []SkippedRowDTO `json:"skipped"`
	Changed           []ChangedRowDTO `json:"changed"`
}

type OpenOrderStatsDTO struct {
	Open       uint64      `json:"open"`
	Reopened   uint64      `json:"reopened"`
	Completed  uint64      `json:"completed"`
	Total      uint64      `json:"total"`
	LastUpload null.Uint64 `json:"last_upload_id"`
}

type OpenOrderUploadDetailDTO struct {
	Upload    OpenOrderUploadDTO     `json:"upload"`
	Snapshots []OpenOrderSnapshotDTO `json:"snapshots"`
}
