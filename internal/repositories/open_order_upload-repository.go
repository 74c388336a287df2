package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"warehouse-system/internal/entities"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const openOrderUploadFields = "u.id, u.uploaded_at, u.uploaded_by, u.source_filename, u.content_hash, u.stored_path, u.row_count, u.skipped_count"

var openOrderUploadSort = map[string]string{
	"id":          "u.id",
	"uploaded_at": "u.uploaded_at",
	"uploaded_by": "u.uploaded_by",
	"row_count":   "u.row_count",
}

type OpenOrderUploadRepositoryInterface interface {
	CreateUpload(ctx context.Context, tx pgx.Tx, upload *entities.OpenOrderUpload) (uint64, error)
	FindByContentHash(ctx context.Context, tx pgx.Tx, hash string) (*entities.OpenOrderUpload, error)
	FindUpload(ctx context.Context, id uint64) (*entities.OpenOrderUpload, error)
	GetUploads(ctx context.Context, filter types.Filter) ([]entities.OpenOrderUpload, uint64, error)
	LatestUpload(ctx context.Context) (*entities.OpenOrderUpload, error)
}

type OpenOrderUploadRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOpenOrderUploadRepository(storage *pgxpool.Pool, logger *zap.Logger) OpenOrderUploadRepositoryInterface {
	return &OpenOrderUploadRepository{storage: storage, logger: logger}
}

func scanOpenOrderUpload(row pgx.Row) (*entities.OpenOrderUpload, error) {
	var u entities.OpenOrderUpload
	var hash, path sql.NullString
	err := row.Scan(&u.ID, &u.UploadedAt, &u.UploadedBy, &u.SourceFilename, &hash, &path, &u.RowCount, &u.SkippedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования open_order_upload: %w", err)
	}
	if hash.Valid {
		u.ContentHash = &hash.String
	}
	if path.Valid {
		u.StoredPath = &path.String
	}
	return &u, nil
}

func (r *OpenOrderUploadRepository) CreateUpload(ctx context.Context, tx pgx.Tx, u *entities.OpenOrderUpload) (uint64, error) {
	query := `
		INSERT INTO open_order_uploads (uploaded_at, uploaded_by, source_filename, content_hash, stored_path, row_count, skipped_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id uint64
	err := pick(r.storage, tx).QueryRow(ctx, query,
		u.UploadedAt, u.UploadedBy, u.SourceFilename, u.ContentHash, u.StoredPath, u.RowCount, u.SkippedCount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateUpload: %w", err)
	}
	return id, nil
}

// FindByContentHash - самая ранняя загрузка с тем же содержимым файла.
func (r *OpenOrderUploadRepository) FindByContentHash(ctx context.Context, tx pgx.Tx, hash string) (*entities.OpenOrderUpload, error) {
	query := fmt.Sprintf(`SELECT %s FROM open_order_uploads u WHERE u.content_hash = $1 ORDER BY u.id ASC LIMIT 1`, openOrderUploadFields)
	return scanOpenOrderUpload(pick(r.storage, tx).QueryRow(ctx, query, hash))
}

func (r *OpenOrderUploadRepository) FindUpload(ctx context.Context, id uint64) (*entities.OpenOrderUpload, error) {
	query := fmt.Sprintf(`SELECT %s FROM open_order_uploads u WHERE u.id = $1`, openOrderUploadFields)
	return scanOpenOrderUpload(r.storage.QueryRow(ctx, query, id))
}

func (r *OpenOrderUploadRepository) LatestUpload(ctx context.Context) (*entities.OpenOrderUpload, error) {
	query := fmt.Sprintf(`SELECT %s FROM open_order_uploads u ORDER BY u.id DESC LIMIT 1`, openOrderUploadFields)
	return scanOpenOrderUpload(r.storage.QueryRow(ctx, query))
}

func (r *OpenOrderUploadRepository) GetUploads(ctx context.Context, filter types.Filter) ([]entities.OpenOrderUpload, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	where := sq.And{}
	if filter.Search != "" {
		pat := "%" + filter.Search + "%"
		where = append(where, sq.Or{sq.ILike{"u.source_filename": pat}, sq.ILike{"u.uploaded_by": pat}})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("open_order_uploads u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("GetUploads count ToSql: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("GetUploads count: %w", err)
	}
	if total == 0 {
		return []entities.OpenOrderUpload{}, 0, nil
	}

	builder := psql.Select(openOrderUploadFields).From("open_order_uploads u").Where(where)
	ordered := false
	for field, dir := range filter.Sort {
		if col, ok := openOrderUploadSort[field]; ok {
			builder = builder.OrderBy(fmt.Sprintf("%s %s", col, strings.ToUpper(dir)))
			ordered = true
		}
	}
	if !ordered {
		builder = builder.OrderBy("u.id DESC")
	}
	if filter.WithPagination && filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("GetUploads ToSql: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("GetUploads: %w", err)
	}
	defer rows.Close()

	uploads := make([]entities.OpenOrderUpload, 0)
	for rows.Next() {
		u, err := scanOpenOrderUpload(rows)
		if err != nil {
			return nil, 0, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, total, rows.Err()
}
