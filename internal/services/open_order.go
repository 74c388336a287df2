package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warehouse-system/internal/dto"
	"warehouse-system/internal/entities"
	"warehouse-system/internal/repositories"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/types"

	"github.com/aarondl/null/v8"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	openOrderStatsCacheKey = "open_orders:stats"
	openOrderStatsCacheTTL = 5 * time.Minute
	openOrderExportSheet   = "Open Orders"
)

type OpenOrderServiceInterface interface {
	GetLines(ctx context.Context, status string, filter types.Filter) ([]dto.OpenOrderLineDTO, uint64, error)
	FindLine(ctx context.Context, id uint64) (*dto.OpenOrderLineDTO, error)
	GetLineHistory(ctx context.Context, id uint64) ([]dto.OpenOrderSnapshotDTO, error)
	GetUploads(ctx context.Context, filter types.Filter) ([]dto.OpenOrderUploadDTO, uint64, error)
	GetUpload(ctx context.Context, id uint64) (*dto.OpenOrderUploadDetailDTO, error)
	GetStats(ctx context.Context) (*dto.OpenOrderStatsDTO, error)
	InvalidateStats(ctx context.Context) error
	ExportLines(ctx context.Context, status string, filter types.Filter) ([]byte, error)
}

type OpenOrderService struct {
	lineRepo     repositories.OpenOrderLineRepositoryInterface
	uploadRepo   repositories.OpenOrderUploadRepositoryInterface
	snapshotRepo repositories.OpenOrderSnapshotRepositoryInterface
	cacheRepo    repositories.CacheRepositoryInterface
	logger       *zap.Logger
}

func NewOpenOrderService(
	lineRepo repositories.OpenOrderLineRepositoryInterface,
	uploadRepo repositories.OpenOrderUploadRepositoryInterface,
	snapshotRepo repositories.OpenOrderSnapshotRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) OpenOrderServiceInterface {
	return &OpenOrderService{
		lineRepo:     lineRepo,
		uploadRepo:   uploadRepo,
		snapshotRepo: snapshotRepo,
		cacheRepo:    cacheRepo,
		logger:       logger,
	}
}

// ParseStatusFilter: пустое значение - open.
func ParseStatusFilter(raw string) (repositories.StatusFilter, error) {
	switch repositories.StatusFilter(raw) {
	case "", repositories.StatusFilterOpen:
		return repositories.StatusFilterOpen, nil
	case repositories.StatusFilterCompleted:
		return repositories.StatusFilterCompleted, nil
	case repositories.StatusFilterAll:
		return repositories.StatusFilterAll, nil
	}
	return "", apperrors.ErrInvalidStatus
}

func (s *OpenOrderService) GetLines(ctx context.Context, status string, filter types.Filter) ([]dto.OpenOrderLineDTO, uint64, error) {
	sf, err := ParseStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	lines, total, err := s.lineRepo.GetLines(ctx, sf, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.OpenOrderLineDTO, 0, len(lines))
	for i := range lines {
		out = append(out, lineToDTO(&lines[i]))
	}
	return out, total, nil
}

func (s *OpenOrderService) FindLine(ctx context.Context, id uint64) (*dto.OpenOrderLineDTO, error) {
	line, err := s.lineRepo.FindLine(ctx, id)
	if err != nil {
		return nil, err
	}
	res := lineToDTO(line)
	return &res, nil
}

func (s *OpenOrderService) GetLineHistory(ctx context.Context, id uint64) ([]dto.OpenOrderSnapshotDTO, error) {
	if _, err := s.lineRepo.FindLine(ctx, id); err != nil {
		return nil, err
	}
	snaps, err := s.snapshotRepo.GetByLine(ctx, id)
	if err != nil {
		return nil, err
	}
	return snapshotsToDTO(snaps), nil
}

func (s *OpenOrderService) GetUploads(ctx context.Context, filter types.Filter) ([]dto.OpenOrderUploadDTO, uint64, error) {
	uploads, total, err := s.uploadRepo.GetUploads(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.OpenOrderUploadDTO, 0, len(uploads))
	for i := range uploads {
		out = append(out, uploadToDTO(&uploads[i]))
	}
	return out, total, nil
}

func (s *OpenOrderService) GetUpload(ctx context.Context, id uint64) (*dto.OpenOrderUploadDetailDTO, error) {
	upload, err := s.uploadRepo.FindUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	snaps, err := s.snapshotRepo.GetByUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.OpenOrderUploadDetailDTO{Upload: uploadToDTO(upload), Snapshots: snapshotsToDTO(snaps)}, nil
}

// GetStats отдаёт счётчики по статусам. Кеш сбрасывается после каждого импорта.
func (s *OpenOrderService) GetStats(ctx context.Context) (*dto.OpenOrderStatsDTO, error) {
	var stats dto.OpenOrderStatsDTO

	cached, errGet := s.cacheRepo.Get(ctx, openOrderStatsCacheKey)
	if errGet == nil {
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
		s.logger.Warn("OpenOrderService: повреждённые счётчики в кеше", zap.String("key", openOrderStatsCacheKey))
	} else if !errors.Is(errGet, repositories.ErrCacheMiss) {
		s.logger.Warn("OpenOrderService: кеш недоступен", zap.Error(errGet))
	}

	counts, err := s.lineRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats = dto.OpenOrderStatsDTO{
		Open:      counts[entities.LineStatusOpen],
		Reopened:  counts[entities.LineStatusReopened],
		Completed: counts[entities.LineStatusCompleted],
	}
	stats.Total = stats.Open + stats.Reopened + stats.Completed

	latest, err := s.uploadRepo.LatestUpload(ctx)
	switch {
	case err == nil:
		stats.LastUpload = null.Uint64From(latest.ID)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if errSet := s.cacheRepo.Set(ctx, openOrderStatsCacheKey, string(data), openOrderStatsCacheTTL); errSet != nil {
			s.logger.Warn("OpenOrderService: не удалось закешировать счётчики", zap.Error(errSet))
		}
	}
	return &stats, nil
}

func (s *OpenOrderService) InvalidateStats(ctx context.Context) error {
	return s.cacheRepo.Del(ctx, openOrderStatsCacheKey)
}

var openOrderExportHeader = []interface{}{
	"SO No", "SO State", "Order Date", "Ship By", "Customer Code", "Customer Name",
	"Item Code", "Item Description", "Part No", "Qty Ordered", "Qty Shipped", "Qty Remaining",
	"Unit Price", "Status", "First Seen", "Last Seen", "Completed At",
}

// ExportLines выгружает отфильтрованный список строк в .xlsx целиком, без пагинации.
func (s *OpenOrderService) ExportLines(ctx context.Context, status string, filter types.Filter) ([]byte, error) {
	sf, err := ParseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	filter.WithPagination = false
	lines, _, err := s.lineRepo.GetLines(ctx, sf, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", openOrderExportSheet); err != nil {
		return nil, err
	}
	sw, err := f.NewStreamWriter(openOrderExportSheet)
	if err != nil {
		return nil, err
	}
	if err := sw.SetRow("A1", openOrderExportHeader); err != nil {
		return nil, err
	}
	for i := range lines {
		l := &lines[i]
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		qo, _ := l.QtyOrdered.Float64()
		qs, _ := l.QtyShipped.Float64()
		qr, _ := l.QtyRemaining.Float64()
		up, _ := l.UnitPrice.Float64()
		row := []interface{}{
			l.SONo, l.SOState, formatDate(l.OrderDate), formatDate(l.ShipBy), l.CustomerCode, l.CustomerName,
			l.ItemCode, l.ItemDescription, l.PartNo, qo, qs, qr,
			up, string(l.Status), l.FirstSeenAt.Format(time.RFC3339), l.LastSeenAt.Format(time.RFC3339), formatTimestamp(l.CompletedAt),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("ошибка записи строки %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(*t)
}

func lineToDTO(l *entities.OpenOrderLine) dto.OpenOrderLineDTO {
	res := dto.OpenOrderLineDTO{
		ID:                l.ID,
		NaturalKey:        l.NaturalKey,
		SONo:              l.SONo,
		SOState:           l.SOState,
		CustomerCode:      l.CustomerCode,
		CustomerName:      l.CustomerName,
		ItemCode:          l.ItemCode,
		ItemDescription:   l.ItemDescription,
		PartNo:            l.PartNo,
		OrderDate:         nullTime(l.OrderDate),
		ShipBy:            nullTime(l.ShipBy),
		QtyOrdered:        l.QtyOrdered,
		QtyShipped:        l.QtyShipped,
		QtyRemaining:      l.QtyRemaining,
		UnitPrice:         l.UnitPrice,
		Status:            string(l.Status),
		FirstSeenUploadID: l.FirstSeenUploadID,
		FirstSeenAt:       l.FirstSeenAt,
		LastSeenUploadID:  l.LastSeenUploadID,
		LastSeenAt:        l.LastSeenAt,
		CompletedAt:       nullTime(l.CompletedAt),
		ReopenedAt:        nullTime(l.ReopenedAt),
		ReopenCount:       l.ReopenCount,
	}
	if l.CompletedUploadID != nil {
		res.CompletedUploadID = null.Uint64From(*l.CompletedUploadID)
	}
	return res
}

func uploadToDTO(u *entities.OpenOrderUpload) dto.OpenOrderUploadDTO {
	return dto.OpenOrderUploadDTO{
		ID:             u.ID,
		UploadedAt:     u.UploadedAt,
		UploadedBy:     u.UploadedBy,
		SourceFilename: u.SourceFilename,
		ContentHash:    null.StringFromPtr(u.ContentHash),
		RowCount:       u.RowCount,
		SkippedCount:   u.SkippedCount,
	}
}

func snapshotsToDTO(snaps []entities.OpenOrderLineSnapshot) []dto.OpenOrderSnapshotDTO {
	out := make([]dto.OpenOrderSnapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, dto.OpenOrderSnapshotDTO{
			ID:        s.ID,
			UploadID:  s.UploadID,
			LineID:    s.LineID,
			Event:     string(s.Event),
			Fields:    snapshotFields(s.Fields),
			CreatedAt: s.CreatedAt,
		})
	}
	return out
}

func snapshotFields(f entities.OrderLineFields) map[string]interface{} {
	return map[string]interface{}{
		"so_no":            f.SONo,
		"so_state":         f.SOState,
		"customer_code":    f.CustomerCode,
		"customer_name":    f.CustomerName,
		"item_code":        f.ItemCode,
		"item_description": f.ItemDescription,
		"part_no":          f.PartNo,
		"order_date":       formatDate(f.OrderDate),
		"ship_by":          formatDate(f.ShipBy),
		"qty_ordered":      f.QtyOrdered.String(),
		"qty_shipped":      f.QtyShipped.String(),
		"qty_remaining":    f.QtyRemaining.String(),
		"unit_price":       f.UnitPrice.String(),
	}
}
