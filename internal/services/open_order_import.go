package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"warehouse-system/internal/dto"
	"warehouse-system/internal/entities"
	"warehouse-system/internal/events"
	"warehouse-system/internal/repositories"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/eventbus"
	"warehouse-system/pkg/filestorage"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const openOrderArchivePrefix = "open_orders"

type ImportRequest struct {
	Filename   string
	Content    []byte
	UploadedBy string
}

// EventPublisher - то, что нужно импорту от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type OpenOrderImportServiceInterface interface {
	Import(ctx context.Context, req ImportRequest) (*dto.ImportSummaryDTO, error)
}

type OpenOrderImportService struct {
	txManager  repositories.TxManagerInterface
	uploadRepo repositories.OpenOrderUploadRepositoryInterface
	lineRepo   repositories.OpenOrderLineRepositoryInterface
	schemaRepo repositories.SchemaRepositoryInterface
	updater    OpenOrderStateUpdaterInterface
	storage    filestorage.FileStorageInterface
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewOpenOrderImportService: storage и publisher могут быть nil (офлайн-импорт без архива и событий).
func NewOpenOrderImportService(
	txManager repositories.TxManagerInterface,
	uploadRepo repositories.OpenOrderUploadRepositoryInterface,
	lineRepo repositories.OpenOrderLineRepositoryInterface,
	schemaRepo repositories.SchemaRepositoryInterface,
	updater OpenOrderStateUpdaterInterface,
	storage filestorage.FileStorageInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) *OpenOrderImportService {
	return &OpenOrderImportService{
		txManager:  txManager,
		uploadRepo: uploadRepo,
		lineRepo:   lineRepo,
		schemaRepo: schemaRepo,
		updater:    updater,
		storage:    storage,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// parsedUpload - результат разбора файла до записи в базу.
type parsedUpload struct {
	totalRows  int
	current    map[string]*NormalizedRow
	skipped    []dto.SkippedRowDTO
	duplicates int
}

func (s *OpenOrderImportService) Import(ctx context.Context, req ImportRequest) (*dto.ImportSummaryDTO, error) {
	uploadedBy := strings.TrimSpace(req.UploadedBy)
	if uploadedBy == "" {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "не указан автор загрузки", apperrors.ErrBadRequest, nil)
	}

	// до любых записей
	if err := s.schemaRepo.CheckColumns(ctx, repositories.RequiredOpenOrderSchema); err != nil {
		if errors.Is(err, apperrors.ErrSchemaOutOfDate) {
			s.logger.Error("Схема БД устарела, импорт отклонён", zap.Error(err))
			return nil, err
		}
		return nil, fmt.Errorf("%w: проверка схемы: %w", apperrors.ErrImportFailed, err)
	}

	sheet, err := ParseOpenOrderSheet(req.Filename, req.Content)
	if err != nil {
		return nil, err
	}
	parsed := normalizeSheet(sheet)
	// иначе все открытые строки были бы закрыты из-за испорченного файла
	if parsed.totalRows > 0 && len(parsed.current) == 0 {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, apperrors.ErrNoValidRows.Error(), apperrors.ErrNoValidRows, parsed.skipped)
	}

	sum := sha256.Sum256(req.Content)
	hash := hex.EncodeToString(sum[:])

	var duplicateOf null.Uint64
	if prev, err := s.uploadRepo.FindByContentHash(ctx, nil, hash); err == nil {
		duplicateOf = null.Uint64From(prev.ID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrImportFailed, err)
	}

	storedPath := s.archive(req)

	upload := &entities.OpenOrderUpload{
		UploadedAt:     s.now().UTC(),
		UploadedBy:     uploadedBy,
		SourceFilename: req.Filename,
		ContentHash:    &hash,
		StoredPath:     storedPath,
		RowCount:       parsed.totalRows,
		SkippedCount:   len(parsed.skipped),
	}

	var diff OpenOrderDiff
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err := s.uploadRepo.CreateUpload(ctx, tx, upload)
		if err != nil {
			return err
		}
		upload.ID = id

		prior, err := s.loadPriorLines(ctx, tx, parsed.current)
		if err != nil {
			return err
		}

		currentFields := make(map[string]entities.OrderLineFields, len(parsed.current))
		for k, row := range parsed.current {
			currentFields[k] = row.OrderLineFields
		}
		diff = DiffOpenOrders(currentFields, prior.activeFields(), prior.completedKeys())

		_, err = s.updater.Apply(ctx, tx, upload, parsed.current, prior, diff)
		return err
	})
	if err != nil {
		s.logger.Error("Импорт открытых заказов откатан", zap.String("file", req.Filename), zap.Error(err))
		if storedPath != nil {
			if delErr := s.storage.Delete(*storedPath); delErr != nil {
				s.logger.Warn("не удалось удалить архив неудачной загрузки", zap.String("path", *storedPath), zap.Error(delErr))
			}
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrImportFailed, err)
	}

	summary := buildImportSummary(upload, parsed, diff, duplicateOf)

	s.logger.Info("Импорт открытых заказов завершён",
		zap.Uint64("upload_id", upload.ID),
		zap.String("file", req.Filename),
		zap.String("by", uploadedBy),
		zap.Int("rows", summary.TotalRows),
		zap.Int("new", summary.NewCount),
		zap.Int("still_open", summary.StillOpenCount),
		zap.Int("completed", summary.CompletedCount),
		zap.Int("reopened", summary.ReopenedCount),
		zap.Int("changed", summary.ChangedCount),
		zap.Int("skipped", summary.SkippedCount),
	)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.OpenOrdersImportedEvent{
			UploadID:       upload.ID,
			UploadedBy:     uploadedBy,
			SourceFilename: req.Filename,
			UploadedAt:     upload.UploadedAt,
			NewCount:       summary.NewCount,
			CompletedCount: summary.CompletedCount,
			ReopenedCount:  summary.ReopenedCount,
			ChangedCount:   summary.ChangedCount,
			SkippedCount:   summary.SkippedCount,
		})
	}
	return summary, nil
}

// loadPriorLines берёт открытые строки и закрытые строки с ключами из выгрузки.
func (s *OpenOrderImportService) loadPriorLines(ctx context.Context, tx pgx.Tx, current map[string]*NormalizedRow) (PriorLines, error) {
	active, err := s.lineRepo.FindActiveLines(ctx, tx)
	if err != nil {
		return PriorLines{}, err
	}

	candidates := make([]string, 0)
	for k := range current {
		if _, ok := active[k]; !ok {
			candidates = append(candidates, k)
		}
	}
	known, err := s.lineRepo.FindLinesByKeys(ctx, tx, candidates)
	if err != nil {
		return PriorLines{}, err
	}

	completed := make(map[string]*entities.OpenOrderLine)
	for k, l := range known {
		if l.Status == entities.LineStatusCompleted {
			completed[k] = l
		}
	}
	return PriorLines{Active: active, Completed: completed}, nil
}

func (s *OpenOrderImportService) archive(req ImportRequest) *string {
	if s.storage == nil {
		return nil
	}
	path, err := s.storage.Save(bytes.NewReader(req.Content), req.Filename, openOrderArchivePrefix)
	if err != nil {
		s.logger.Warn("не удалось сохранить исходный файл", zap.String("file", req.Filename), zap.Error(err))
		return nil
	}
	return &path
}

// normalizeSheet нормализует строки. Повтор ключа в одном файле: берётся первая строка.
func normalizeSheet(sheet *ParsedSheet) parsedUpload {
	out := parsedUpload{
		totalRows: len(sheet.Rows),
		current:   make(map[string]*NormalizedRow, len(sheet.Rows)),
		skipped:   make([]dto.SkippedRowDTO, 0),
	}
	for _, raw := range sheet.Rows {
		row, err := NormalizeRow(raw.Number, raw.Cells, sheet.Header, sheet.NumberFormat)
		if err != nil {
			var rowErr *RowParseError
			if errors.As(err, &rowErr) {
				out.skipped = append(out.skipped, dto.SkippedRowDTO{
					Row:    rowErr.Row,
					Column: string(rowErr.Column),
					Value:  rowErr.Value,
					Reason: rowErr.Reason,
				})
				continue
			}
			out.skipped = append(out.skipped, dto.SkippedRowDTO{Row: raw.Number, Reason: err.Error()})
			continue
		}
		if _, dup := out.current[row.Key]; dup {
			out.duplicates++
			continue
		}
		out.current[row.Key] = row
	}
	return out
}

func buildImportSummary(upload *entities.OpenOrderUpload, parsed parsedUpload, diff OpenOrderDiff, duplicateOf null.Uint64) *dto.ImportSummaryDTO {
	changed := make([]dto.ChangedRowDTO, 0, len(diff.ChangedRows))
	for _, c := range diff.ChangedRows {
		item := dto.ChangedRowDTO{NaturalKey: c.Key, Changes: make([]dto.FieldChangeDTO, 0, len(c.Changes))}
		if row, ok := parsed.current[c.Key]; ok {
			item.SONo = row.SONo
			item.ItemCode = row.ItemCode
		}
		for _, fc := range c.Changes {
			item.Changes = append(item.Changes, dto.FieldChangeDTO{Field: fc.Field, Before: fc.Before, After: fc.After})
		}
		changed = append(changed, item)
	}

	return &dto.ImportSummaryDTO{
		UploadID:          upload.ID,
		SourceFilename:    upload.SourceFilename,
		UploadedBy:        upload.UploadedBy,
		UploadedAt:        upload.UploadedAt,
		TotalRows:         parsed.totalRows,
		NewCount:          len(diff.NewKeys) - len(diff.ReopenedKeys),
		StillOpenCount:    len(diff.StillOpenKeys),
		CompletedCount:    len(diff.CompletedKeys),
		ReopenedCount:     len(diff.ReopenedKeys),
		ChangedCount:      len(diff.ChangedRows),
		SkippedCount:      len(parsed.skipped),
		DuplicateRows:     parsed.duplicates,
		DuplicateOfUpload: duplicateOf,
		Skipped:           parsed.skipped,
		Changed:           changed,
	}
}
