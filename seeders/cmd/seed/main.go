package main

import (
	"context"
	"flag"
	"log"

	"warehouse-system/internal/repositories"
	"warehouse-system/pkg/config"
	"warehouse-system/pkg/database/postgresql"
	"warehouse-system/seeders"

	"go.uber.org/zap"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runRoles := flag.Bool("roles", false, "Создать права и роли")
	runAdmin := flag.Bool("admin", false, "Создать суперпользователя (SEED_ADMIN_USERNAME / SEED_ADMIN_PASSWORD)")
	runAll := flag.Bool("all", false, "Запустить все сидеры")
	flag.Parse()

	if !*runRoles && !*runAdmin && !*runAll {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		flag.PrintDefaults()
		log.Println("Пример: go run ./seeders/cmd/seed -all")
		return
	}

	ctx := context.Background()
	cfg := config.New()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer dbPool.Close()

	logger := zap.NewNop()
	txManager := repositories.NewTxManager(dbPool)
	permRepo := repositories.NewPermissionRepository(dbPool, logger)
	userRepo := repositories.NewUserRepository(dbPool, logger)

	if *runAll || *runRoles {
		if err := seeders.SeedRolesAndPermissions(ctx, txManager, permRepo); err != nil {
			log.Fatalf("❌ Ошибка наполнения ролей: %v", err)
		}
	}
	if *runAll || *runAdmin {
		if err := seeders.SeedAdmin(ctx, txManager, permRepo, userRepo, cfg.Seeder); err != nil {
			log.Fatalf("❌ Ошибка создания администратора: %v", err)
		}
	}

	log.Println("✅ Все указанные операции сидирования успешно завершены.")
}
