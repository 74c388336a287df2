package services

import (
	"context"
	"fmt"

	"warehouse-system/internal/entities"
	"warehouse-system/internal/repositories"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PriorLines - состояние строк до импорта, загруженное в той же транзакции.
type PriorLines struct {
	Active    map[string]*entities.OpenOrderLine
	Completed map[string]*entities.OpenOrderLine
}

func (p PriorLines) activeFields() map[string]entities.OrderLineFields {
	out := make(map[string]entities.OrderLineFields, len(p.Active))
	for k, l := range p.Active {
		out[k] = l.OrderLineFields
	}
	return out
}

func (p PriorLines) completedKeys() map[string]struct{} {
	out := make(map[string]struct{}, len(p.Completed))
	for k := range p.Completed {
		out[k] = struct{}{}
	}
	return out
}

// StateResult - сколько переходов применено и сколько снимков записано.
type StateResult struct {
	Created   int
	Touched   int
	Changed   int
	Completed int
	Reopened  int
	Snapshots int
}

type OpenOrderStateUpdaterInterface interface {
	Apply(ctx context.Context, tx pgx.Tx, upload *entities.OpenOrderUpload, current map[string]*NormalizedRow, prior PriorLines, diff OpenOrderDiff) (StateResult, error)
}

// OpenOrderStateUpdater переводит строки по результатам сравнения:
// новая -> open, open/reopened -> open, open/reopened -> completed, completed -> reopened.
type OpenOrderStateUpdater struct {
	lineRepo     repositories.OpenOrderLineRepositoryInterface
	snapshotRepo repositories.OpenOrderSnapshotRepositoryInterface
	logger       *zap.Logger
}

func NewOpenOrderStateUpdater(
	lineRepo repositories.OpenOrderLineRepositoryInterface,
	snapshotRepo repositories.OpenOrderSnapshotRepositoryInterface,
	logger *zap.Logger,
) OpenOrderStateUpdaterInterface {
	return &OpenOrderStateUpdater{lineRepo: lineRepo, snapshotRepo: snapshotRepo, logger: logger}
}

func (u *OpenOrderStateUpdater) Apply(
	ctx context.Context,
	tx pgx.Tx,
	upload *entities.OpenOrderUpload,
	current map[string]*NormalizedRow,
	prior PriorLines,
	diff OpenOrderDiff,
) (StateResult, error) {
	var res StateResult
	at := upload.UploadedAt

	reopened := keySet{}
	for _, k := range diff.ReopenedKeys {
		reopened[k] = struct{}{}
	}

	for _, key := range diff.NewKeys {
		row, ok := current[key]
		if !ok {
			return res, fmt.Errorf("строка %s отсутствует в выгрузке", key)
		}

		if reopened.has(key) {
			line := prior.Completed[key]
			if line == nil {
				return res, fmt.Errorf("закрытая строка %s не загружена", key)
			}
			if err := u.lineRepo.MarkReopened(ctx, tx, line.ID, row.OrderLineFields, upload.ID, at); err != nil {
				return res, err
			}
			if err := u.snapshot(ctx, tx, upload, line.ID, entities.SnapshotReopened, row.OrderLineFields); err != nil {
				return res, err
			}
			res.Reopened++
			res.Snapshots++
			continue
		}

		line := &entities.OpenOrderLine{
			NaturalKey:        key,
			OrderLineFields:   row.OrderLineFields,
			Status:            entities.LineStatusOpen,
			FirstSeenUploadID: upload.ID,
			FirstSeenAt:       at,
			LastSeenUploadID:  upload.ID,
			LastSeenAt:        at,
		}
		id, err := u.lineRepo.CreateLine(ctx, tx, line)
		if err != nil {
			return res, err
		}
		if err := u.snapshot(ctx, tx, upload, id, entities.SnapshotCreated, row.OrderLineFields); err != nil {
			return res, err
		}
		res.Created++
		res.Snapshots++
	}

	changed := diff.changedByKey()
	touch := make([]uint64, 0, len(diff.StillOpenKeys))
	for _, key := range diff.StillOpenKeys {
		line := prior.Active[key]
		if line == nil {
			return res, fmt.Errorf("открытая строка %s не загружена", key)
		}
		if _, isChanged := changed[key]; !isChanged {
			touch = append(touch, line.ID)
			continue
		}
		fields := current[key].OrderLineFields
		if err := u.lineRepo.UpdateLineFields(ctx, tx, line.ID, fields, upload.ID, at); err != nil {
			return res, err
		}
		if err := u.snapshot(ctx, tx, upload, line.ID, entities.SnapshotChanged, fields); err != nil {
			return res, err
		}
		res.Changed++
		res.Snapshots++
	}
	if err := u.lineRepo.TouchLines(ctx, tx, touch, upload.ID, at); err != nil {
		return res, err
	}
	res.Touched = len(touch)

	for _, key := range diff.CompletedKeys {
		line := prior.Active[key]
		if line == nil {
			return res, fmt.Errorf("открытая строка %s не загружена", key)
		}
		if err := u.lineRepo.MarkCompleted(ctx, tx, line.ID, upload.ID, at); err != nil {
			return res, err
		}
		// последние известные значения строки
		if err := u.snapshot(ctx, tx, upload, line.ID, entities.SnapshotCompleted, line.OrderLineFields); err != nil {
			return res, err
		}
		res.Completed++
		res.Snapshots++
	}

	u.logger.Debug("переходы строк применены",
		zap.Uint64("upload_id", upload.ID),
		zap.Int("created", res.Created),
		zap.Int("touched", res.Touched),
		zap.Int("changed", res.Changed),
		zap.Int("completed", res.Completed),
		zap.Int("reopened", res.Reopened),
	)
	return res, nil
}

func (u *OpenOrderStateUpdater) snapshot(ctx context.Context, tx pgx.Tx, upload *entities.OpenOrderUpload, lineID uint64, event entities.SnapshotEvent, fields entities.OrderLineFields) error {
	_, err := u.snapshotRepo.CreateSnapshot(ctx, tx, &entities.OpenOrderLineSnapshot{
		UploadID:  upload.ID,
		LineID:    lineID,
		Event:     event,
		Fields:    fields,
		CreatedAt: upload.UploadedAt,
	})
	return err
}
