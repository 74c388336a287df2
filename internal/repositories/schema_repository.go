package repositories

import (
	"context"
	"fmt"
	"sort"

	apperrors "warehouse-system/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Колонки, без которых импорт не работает.
var RequiredOpenOrderSchema = map[string][]string{
	"open_order_uploads": {
		"id", "uploaded_at", "uploaded_by", "source_filename", "content_hash", "stored_path", "row_count", "skipped_count",
	},
	"open_order_lines": {
		"id", "natural_key", "so_no", "so_state", "customer_code", "customer_name", "item_code", "item_description",
		"part_no", "order_date", "ship_by", "qty_ordered", "qty_shipped", "qty_remaining", "unit_price", "status",
		"first_seen_upload_id", "first_seen_at", "last_seen_upload_id", "last_seen_at",
		"completed_at", "completed_upload_id", "reopened_at", "reopen_count", "created_at", "updated_at",
	},
	"open_order_line_snapshots": {
		"id", "upload_id", "line_id", "event", "payload", "created_at",
	},
}

type SchemaRepositoryInterface interface {
	// CheckColumns возвращает MissingColumnsError поверх ErrSchemaOutOfDate, если чего-то нет.
	CheckColumns(ctx context.Context, required map[string][]string) error
}

type SchemaRepository struct {
	storage *pgxpool.Pool
}

func NewSchemaRepository(storage *pgxpool.Pool) SchemaRepositoryInterface {
	return &SchemaRepository{storage: storage}
}

func (r *SchemaRepository) CheckColumns(ctx context.Context, required map[string][]string) error {
	tables := make([]string, 0, len(required))
	for t := range required {
		tables = append(tables, t)
	}
	rows, err := r.storage.Query(ctx, `
		SELECT table_name, column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, tables)
	if err != nil {
		return fmt.Errorf("ошибка чтения information_schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]struct{})
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		present[table+"."+column] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return MissingColumns(required, present)
}

// MissingColumns сверяет требуемые колонки с найденными (ключ "table.column").
func MissingColumns(required map[string][]string, present map[string]struct{}) error {
	var missing []string
	for table, cols := range required {
		for _, c := range cols {
			if _, ok := present[table+"."+c]; !ok {
				missing = append(missing, table+"."+c)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return apperrors.NewMissingColumnsError("база данных", missing, apperrors.ErrSchemaOutOfDate)
}
