package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse-system/internal/entities"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const openOrderLineTable = "open_order_lines"

const openOrderLineFields = `l.id, l.natural_key, l.so_no, l.so_state, l.customer_code, l.customer_name,
	l.item_code, l.item_description, l.part_no, l.order_date, l.ship_by,
	l.qty_ordered, l.qty_shipped, l.qty_remaining, l.unit_price, l.status,
	l.first_seen_upload_id, l.first_seen_at, l.last_seen_upload_id, l.last_seen_at,
	l.completed_at, l.completed_upload_id, l.reopened_at, l.reopen_count, l.created_at, l.updated_at`

// Поля для фильтра и сортировки списка
var openOrderLineMap = map[string]string{
	"id":            "l.id",
	"so_no":         "l.so_no",
	"customer_code": "l.customer_code",
	"item_code":     "l.item_code",
	"part_no":       "l.part_no",
	"so_state":      "l.so_state",
	"ship_by":       "l.ship_by",
	"order_date":    "l.order_date",
	"qty_remaining": "l.qty_remaining",
	"last_seen_at":  "l.last_seen_at",
	"completed_at":  "l.completed_at",
	"created_at":    "l.created_at",
}

// StatusFilter - фильтр списка: open включает reopened.
type StatusFilter string

const (
	StatusFilterOpen      StatusFilter = "open"
	StatusFilterCompleted StatusFilter = "completed"
	StatusFilterAll       StatusFilter = "all"
)

type OpenOrderLineRepositoryInterface interface {
	FindActiveLines(ctx context.Context, tx pgx.Tx) (map[string]*entities.OpenOrderLine, error)
	FindLinesByKeys(ctx context.Context, tx pgx.Tx, keys []string) (map[string]*entities.OpenOrderLine, error)
	CreateLine(ctx context.Context, tx pgx.Tx, line *entities.OpenOrderLine) (uint64, error)
	TouchLines(ctx context.Context, tx pgx.Tx, ids []uint64, uploadID uint64, seenAt time.Time) error
	UpdateLineFields(ctx context.Context, tx pgx.Tx, id uint64, fields entities.OrderLineFields, uploadID uint64, seenAt time.Time) error
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uint64, uploadID uint64, at time.Time) error
	MarkReopened(ctx context.Context, tx pgx.Tx, id uint64, fields entities.OrderLineFields, uploadID uint64, at time.Time) error

	GetLines(ctx context.Context, status StatusFilter, filter types.Filter) ([]entities.OpenOrderLine, uint64, error)
	FindLine(ctx context.Context, id uint64) (*entities.OpenOrderLine, error)
	CountByStatus(ctx context.Context) (map[entities.LineStatus]uint64, error)
}

type OpenOrderLineRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOpenOrderLineRepository(storage *pgxpool.Pool, logger *zap.Logger) OpenOrderLineRepositoryInterface {
	return &OpenOrderLineRepository{storage: storage, logger: logger}
}

func scanOpenOrderLine(row pgx.Row) (*entities.OpenOrderLine, error) {
	var l entities.OpenOrderLine
	var status string
	var orderDate, shipBy, completedAt, reopenedAt sql.NullTime
	var completedUploadID sql.NullInt64

	err := row.Scan(
		&l.ID, &l.NaturalKey, &l.SONo, &l.SOState, &l.CustomerCode, &l.CustomerName,
		&l.ItemCode, &l.ItemDescription, &l.PartNo, &orderDate, &shipBy,
		&l.QtyOrdered, &l.QtyShipped, &l.QtyRemaining, &l.UnitPrice, &status,
		&l.FirstSeenUploadID, &l.FirstSeenAt, &l.LastSeenUploadID, &l.LastSeenAt,
		&completedAt, &completedUploadID, &reopenedAt, &l.ReopenCount, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования open_order_line: %w", err)
	}

	l.Status = entities.LineStatus(status)
	if orderDate.Valid {
		l.OrderDate = &orderDate.Time
	}
	if shipBy.Valid {
		l.ShipBy = &shipBy.Time
	}
	if completedAt.Valid {
		l.CompletedAt = &completedAt.Time
	}
	if completedUploadID.Valid {
		id := uint64(completedUploadID.Int64)
		l.CompletedUploadID = &id
	}
	if reopenedAt.Valid {
		l.ReopenedAt = &reopenedAt.Time
	}
	return &l, nil
}

func collectLinesByKey(rows pgx.Rows) (map[string]*entities.OpenOrderLine, error) {
	defer rows.Close()
	out := make(map[string]*entities.OpenOrderLine)
	for rows.Next() {
		l, err := scanOpenOrderLine(rows)
		if err != nil {
			return nil, err
		}
		out[l.NaturalKey] = l
	}
	return out, rows.Err()
}

func (r *OpenOrderLineRepository) FindActiveLines(ctx context.Context, tx pgx.Tx) (map[string]*entities.OpenOrderLine, error) {
	// FOR UPDATE: строки меняются в этой же транзакции
	query := fmt.Sprintf(`SELECT %s FROM %s l WHERE l.status IN ('open', 'reopened') FOR UPDATE`, openOrderLineFields, openOrderLineTable)
	rows, err := pick(r.storage, tx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FindActiveLines: %w", err)
	}
	return collectLinesByKey(rows)
}

func (r *OpenOrderLineRepository) FindLinesByKeys(ctx context.Context, tx pgx.Tx, keys []string) (map[string]*entities.OpenOrderLine, error) {
	if len(keys) == 0 {
		return map[string]*entities.OpenOrderLine{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s l WHERE l.natural_key = ANY($1) FOR UPDATE`, openOrderLineFields, openOrderLineTable)
	rows, err := pick(r.storage, tx).Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("FindLinesByKeys: %w", err)
	}
	return collectLinesByKey(rows)
}

func (r *OpenOrderLineRepository) CreateLine(ctx context.Context, tx pgx.Tx, line *entities.OpenOrderLine) (uint64, error) {
	query := `
		INSERT INTO open_order_lines (
			natural_key, so_no, so_state, customer_code, customer_name, item_code, item_description, part_no,
			order_date, ship_by, qty_ordered, qty_shipped, qty_remaining, unit_price, status,
			first_seen_upload_id, first_seen_at, last_seen_upload_id, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $16, $17)
		RETURNING id`

	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, query,
		line.NaturalKey, line.SONo, line.SOState, line.CustomerCode, line.CustomerName,
		line.ItemCode, line.ItemDescription, line.PartNo, line.OrderDate, line.ShipBy,
		line.QtyOrdered, line.QtyShipped, line.QtyRemaining, line.UnitPrice, string(line.Status),
		line.FirstSeenUploadID, line.FirstSeenAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateLine %s: %w", line.SONo, err)
	}
	return id, nil
}

func (r *OpenOrderLineRepository) TouchLines(ctx context.Context, tx pgx.Tx, ids []uint64, uploadID uint64, seenAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE open_order_lines
		SET status = 'open', last_seen_upload_id = $2, last_seen_at = $3, updated_at = NOW()
		WHERE id = ANY($1)`
	pgIDs := make([]int64, len(ids))
	for i, id := range ids {
		pgIDs[i] = int64(id)
	}
	if _, err := pick(r.storage, tx).Exec(ctx, query, pgIDs, uploadID, seenAt); err != nil {
		return fmt.Errorf("TouchLines: %w", err)
	}
	return nil
}

func (r *OpenOrderLineRepository) UpdateLineFields(ctx context.Context, tx pgx.Tx, id uint64, f entities.OrderLineFields, uploadID uint64, seenAt time.Time) error {
	query := `
		UPDATE open_order_lines
		SET so_state = @so_state, customer_name = @customer_name, item_description = @item_description,
			order_date = @order_date, ship_by = @ship_by,
			qty_ordered = @qty_ordered, qty_shipped = @qty_shipped, qty_remaining = @qty_remaining, unit_price = @unit_price,
			status = 'open', last_seen_upload_id = @upload_id, last_seen_at = @seen_at, updated_at = NOW()
		WHERE id = @id`
	args := lineFieldArgs(f)
	args["id"] = id
	args["upload_id"] = uploadID
	args["seen_at"] = seenAt

	tag, err := pick(r.storage, tx).Exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("UpdateLineFields %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *OpenOrderLineRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, id uint64, uploadID uint64, at time.Time) error {
	query := `
		UPDATE open_order_lines
		SET status = 'completed', completed_at = $2, completed_upload_id = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('open', 'reopened')`
	tag, err := pick(r.storage, tx).Exec(ctx, query, id, at, uploadID)
	if err != nil {
		return fmt.Errorf("MarkCompleted %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *OpenOrderLineRepository) MarkReopened(ctx context.Context, tx pgx.Tx, id uint64, f entities.OrderLineFields, uploadID uint64, at time.Time) error {
	query := `
		UPDATE open_order_lines
		SET so_state = @so_state, customer_name = @customer_name, item_description = @item_description,
			order_date = @order_date, ship_by = @ship_by,
			qty_ordered = @qty_ordered, qty_shipped = @qty_shipped, qty_remaining = @qty_remaining, unit_price = @unit_price,
			status = 'reopened', completed_at = NULL, completed_upload_id = NULL,
			reopened_at = @at, reopen_count = reopen_count + 1,
			last_seen_upload_id = @upload_id, last_seen_at = @at, updated_at = NOW()
		WHERE id = @id AND status = 'completed'`
	args := lineFieldArgs(f)
	args["id"] = id
	args["upload_id"] = uploadID
	args["at"] = at

	tag, err := pick(r.storage, tx).Exec(ctx, query, args)
	if err != nil {
		return fmt.Errorf("MarkReopened %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func lineFieldArgs(f entities.OrderLineFields) pgx.NamedArgs {
	return pgx.NamedArgs{
		"so_state":         f.SOState,
		"customer_name":    f.CustomerName,
		"item_description": f.ItemDescription,
		"order_date":       f.OrderDate,
		"ship_by":          f.ShipBy,
		"qty_ordered":      f.QtyOrdered,
		"qty_shipped":      f.QtyShipped,
		"qty_remaining":    f.QtyRemaining,
		"unit_price":       f.UnitPrice,
	}
}

// applyLineFilter добавляет условия статуса, поиска и фильтров. Неизвестные поля фильтра пропускаются.
func applyLineFilter(b sq.SelectBuilder, status StatusFilter, filter types.Filter) sq.SelectBuilder {
	switch status {
	case StatusFilterOpen, "":
		b = b.Where(sq.Eq{"l.status": []string{string(entities.LineStatusOpen), string(entities.LineStatusReopened)}})
	case StatusFilterCompleted:
		b = b.Where(sq.Eq{"l.status": string(entities.LineStatusCompleted)})
	}
	if filter.Search != "" {
		pat := "%" + filter.Search + "%"
		b = b.Where(sq.Or{
			sq.ILike{"l.so_no": pat},
			sq.ILike{"l.customer_code": pat},
			sq.ILike{"l.customer_name": pat},
			sq.ILike{"l.item_code": pat},
			sq.ILike{"l.part_no": pat},
		})
	}
	for key, val := range filter.Filter {
		col, ok := openOrderLineMap[key]
		if !ok {
			continue
		}
		if s, isStr := val.(string); isStr && strings.Contains(s, ",") {
			b = b.Where(sq.Eq{col: strings.Split(s, ",")})
		} else {
			b = b.Where(sq.Eq{col: val})
		}
	}
	return b
}

func (r *OpenOrderLineRepository) GetLines(ctx context.Context, status StatusFilter, filter types.Filter) ([]entities.OpenOrderLine, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	countQuery, countArgs, err := applyLineFilter(psql.Select("COUNT(*)").From(openOrderLineTable+" l"), status, filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("GetLines count ToSql: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("GetLines count: %w", err)
	}
	if total == 0 {
		return []entities.OpenOrderLine{}, 0, nil
	}

	builder := applyLineFilter(psql.Select(openOrderLineFields).From(openOrderLineTable+" l"), status, filter)
	ordered := false
	for field, dir := range filter.Sort {
		if col, ok := openOrderLineMap[field]; ok {
			builder = builder.OrderBy(fmt.Sprintf("%s %s", col, strings.ToUpper(dir)))
			ordered = true
		}
	}
	if !ordered {
		builder = builder.OrderBy("l.ship_by ASC NULLS LAST", "l.so_no ASC")
	}
	builder = builder.OrderBy("l.id ASC")
	if filter.WithPagination && filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("GetLines ToSql: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("GetLines: %w", err)
	}
	defer rows.Close()

	lines := make([]entities.OpenOrderLine, 0)
	for rows.Next() {
		l, err := scanOpenOrderLine(rows)
		if err != nil {
			return nil, 0, err
		}
		lines = append(lines, *l)
	}
	return lines, total, rows.Err()
}

func (r *OpenOrderLineRepository) FindLine(ctx context.Context, id uint64) (*entities.OpenOrderLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s l WHERE l.id = $1`, openOrderLineFields, openOrderLineTable)
	return scanOpenOrderLine(r.storage.QueryRow(ctx, query, id))
}

func (r *OpenOrderLineRepository) CountByStatus(ctx context.Context) (map[entities.LineStatus]uint64, error) {
	rows, err := r.storage.Query(ctx, `SELECT status, COUNT(*) FROM open_order_lines GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer rows.Close()

	out := make(map[entities.LineStatus]uint64)
	for rows.Next() {
		var status string
		var n uint64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[entities.LineStatus(status)] = n
	}
	return out, rows.Err()
}
