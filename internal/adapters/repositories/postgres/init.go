package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwtcode/ppmacAdapter/internal/adapters/repositories/postgres/ppmac_controller"
	"github.com/iwtcode/ppmacAdapter/internal/config"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"github.com/iwtcode/ppmacAdapter/internal/middleware/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Служебная база, через которую создается база сервиса.
const maintenanceDB = "postgres"

type Repository struct {
	interfaces.PpmacControllerRepository
}

func NewRepository(cfg *config.AppConfig, appLogger *logging.Logger) (interfaces.PpmacControllerRepository, error) {
	dbLogger := appLogger.WithPrefix("GORM")

	if err := prepareDatabase(cfg.Database, dbLogger); err != nil {
		return nil, err
	}

	appDb, err := gorm.Open(postgres.Open(cfg.Database.DSN(cfg.Database.DBName)), &gorm.Config{Logger: gormLogger(dbLogger)})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных '%s': %w", cfg.Database.DBName, err)
	}

	sqlDB, err := appDb.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := autoMigrate(appDb); err != nil {
		return nil, fmt.Errorf("ошибка выполнения автомиграций: %w", err)
	}

	return &Repository{
		PpmacControllerRepository: ppmac_controller.NewPpmacControllerRepository(appDb),
	}, nil
}

// prepareDatabase подключается к служебной базе и создает базу сервиса, если ее нет.
func prepareDatabase(cfg config.DatabaseConfig, log *logging.Logger) error {
	db, err := gorm.Open(postgres.Open(cfg.DSN(maintenanceDB)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("не удалось подключиться к служебной БД '%s': %w", maintenanceDB, err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	return ensureDatabase(db, cfg.DBName, log)
}

func ensureDatabase(db *gorm.DB, name string, log *logging.Logger) error {
	var exists bool
	if err := db.Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", name).Scan(&exists).Error; err != nil {
		return fmt.Errorf("не удалось проверить существование БД '%s': %w", name, err)
	}
	if exists {
		log.Debug("Database already exists", "db_name", name)
		return nil
	}

	// CREATE DATABASE не принимает параметры, имя экранируется вручную.
	if err := db.Exec("CREATE DATABASE " + quoteIdent(name)).Error; err != nil {
		return fmt.Errorf("не удалось создать БД '%s': %w", name, err)
	}
	log.Info("Database created", "db_name", name)
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// gormLogger пишет медленные запросы и ошибки SQL в общий лог сервиса.
func gormLogger(log *logging.Logger) logger.Interface {
	return logger.New(log.Entry(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entities.PpmacController{})
}
