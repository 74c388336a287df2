package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"warehouse-system/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Снимки только добавляются. Методов изменения и удаления нет.
type OpenOrderSnapshotRepositoryInterface interface {
	CreateSnapshot(ctx context.Context, tx pgx.Tx, snap *entities.OpenOrderLineSnapshot) (uint64, error)
	GetByUpload(ctx context.Context, uploadID uint64) ([]entities.OpenOrderLineSnapshot, error)
	GetByLine(ctx context.Context, lineID uint64) ([]entities.OpenOrderLineSnapshot, error)
}

type OpenOrderSnapshotRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOpenOrderSnapshotRepository(storage *pgxpool.Pool, logger *zap.Logger) OpenOrderSnapshotRepositoryInterface {
	return &OpenOrderSnapshotRepository{storage: storage, logger: logger}
}

func (r *OpenOrderSnapshotRepository) CreateSnapshot(ctx context.Context, tx pgx.Tx, snap *entities.OpenOrderLineSnapshot) (uint64, error) {
	payload, err := json.Marshal(snap.Fields)
	if err != nil {
		return 0, fmt.Errorf("CreateSnapshot marshal: %w", err)
	}
	query := `
		INSERT INTO open_order_line_snapshots (upload_id, line_id, event, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id uint64
	err = pick(r.storage, tx).QueryRow(ctx, query, snap.UploadID, snap.LineID, string(snap.Event), payload, snap.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateSnapshot upload=%d line=%d: %w", snap.UploadID, snap.LineID, err)
	}
	return id, nil
}

func (r *OpenOrderSnapshotRepository) GetByUpload(ctx context.Context, uploadID uint64) ([]entities.OpenOrderLineSnapshot, error) {
	return r.list(ctx, `WHERE s.upload_id = $1`, uploadID)
}

func (r *OpenOrderSnapshotRepository) GetByLine(ctx context.Context, lineID uint64) ([]entities.OpenOrderLineSnapshot, error) {
	return r.list(ctx, `WHERE s.line_id = $1`, lineID)
}

func (r *OpenOrderSnapshotRepository) list(ctx context.Context, where string, arg uint64) ([]entities.OpenOrderLineSnapshot, error) {
	query := `SELECT s.id, s.upload_id, s.line_id, s.event, s.payload, s.created_at
		FROM open_order_line_snapshots s ` + where + ` ORDER BY s.created_at ASC, s.id ASC`
	rows, err := r.storage.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимков: %w", err)
	}
	defer rows.Close()

	out := make([]entities.OpenOrderLineSnapshot, 0)
	for rows.Next() {
		var s entities.OpenOrderLineSnapshot
		var event string
		var payload []byte
		if err := rows.Scan(&s.ID, &s.UploadID, &s.LineID, &event, &payload, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования снимка: %w", err)
		}
		s.Event = entities.SnapshotEvent(event)
		if err := json.Unmarshal(payload, &s.Fields); err != nil {
			r.logger.Warn("повреждённый снимок", zap.Uint64("snapshot_id", s.ID), zap.Error(err))
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
