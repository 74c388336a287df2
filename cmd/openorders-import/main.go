package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"warehouse-system/internal/repositories"
	"warehouse-system/internal/services"
	"warehouse-system/pkg/config"
	"warehouse-system/pkg/database/postgresql"
	"warehouse-system/pkg/filestorage"
	applogger "warehouse-system/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "", "Путь к .xlsx или .csv с открытыми заказами")
	by := flag.String("by", "cli", "Кто загружает (пишется в журнал загрузок)")
	archive := flag.Bool("archive", true, "Сохранить копию файла в UPLOAD_DIR")
	flag.Parse()

	if *file == "" {
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, "")
	defer logger.Sync()

	content, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("не удалось прочитать файл", zap.String("file", *file), zap.Error(err))
	}

	ctx := context.Background()
	db, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("нет соединения с БД", zap.Error(err))
	}
	defer db.Close()

	var storage filestorage.FileStorageInterface
	if *archive {
		if storage, err = filestorage.NewLocalFileStorage(cfg.Upload.Dir); err != nil {
			logger.Fatal("файловое хранилище", zap.Error(err))
		}
	}

	lineRepo := repositories.NewOpenOrderLineRepository(db, logger)
	importService := services.NewOpenOrderImportService(
		repositories.NewTxManager(db),
		repositories.NewOpenOrderUploadRepository(db, logger),
		lineRepo,
		repositories.NewSchemaRepository(db),
		services.NewOpenOrderStateUpdater(lineRepo, repositories.NewOpenOrderSnapshotRepository(db, logger), logger),
		storage,
		nil,
		logger,
	)

	summary, err := importService.Import(ctx, services.ImportRequest{
		Filename:   filepath.Base(*file),
		Content:    content,
		UploadedBy: *by,
	})
	if err != nil {
		logger.Fatal("импорт не выполнен", zap.Error(err))
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
