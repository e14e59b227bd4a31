package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"job-portal/config"
	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

// Connect establishes a database connection and runs migrations when enabled.
func Connect(cfg *config.Config, zapLogger *zap.Logger) (*gorm.DB, error) {
	// Configure GORM logger on top of the application logger
	gormLogger := logger.New(
		zap.NewStdLog(zapLogger.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  getLogLevel(cfg.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), gormConfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to PostgreSQL")
		}
		zapLogger.Info("Connected to PostgreSQL database", zap.String("host", cfg.Database.Host))

		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database instance")
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

	case "sqlite":
		if err := ensureDir(filepath.Dir(cfg.Database.SQLitePath)); err != nil {
			return nil, errors.Wrap(err, "failed to create SQLite directory")
		}

		db, err = gorm.Open(sqlite.Open(cfg.GetDSN()), gormConfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to SQLite")
		}
		zapLogger.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))

		// SQLite allows a single writer; one connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database instance")
		}
		sqlDB.SetMaxOpenConns(1)

		if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}

	default:
		return nil, errors.Newf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if cfg.Dev.AutoMigrate {
		if err := AutoMigrate(db, zapLogger); err != nil {
			return nil, errors.Wrap(err, "auto-migration failed")
		}
		zapLogger.Info("Database auto-migration completed")
	}

	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB, zapLogger *zap.Logger) error {
	if db == nil {
		return errors.New("database not initialized")
	}

	tables := []interface{}{
		&models.User{},
		&models.JobOffer{},
		&models.JobApplication{},
	}
	for _, model := range tables {
		if err := db.AutoMigrate(model); err != nil {
			return errors.Wrapf(err, "failed to migrate %T", model)
		}
	}

	createCustomIndexes(db, zapLogger)
	return backfillSearchColumns(db)
}

// backfillSearchColumns fills the folded search columns of offers stored
// before those columns existed.
func backfillSearchColumns(db *gorm.DB) error {
	var batch []models.JobOffer
	res := db.Model(&models.JobOffer{}).
		Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for _, o := range batch {
				err := db.Model(&models.JobOffer{}).Where("id = ?", o.ID).UpdateColumns(map[string]interface{}{
					"search_text":  models.OfferSearchText(o.Title, o.Company, o.Description),
					"location_key": models.FoldText(o.Location),
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
	return errors.Wrap(res.Error, "backfill offer search columns")
}

// createCustomIndexes adds the composite indexes used by offer listings.
func createCustomIndexes(db *gorm.DB, zapLogger *zap.Logger) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_job_offers_status_expires_at ON job_offers(status, expires_at);",
		"CREATE INDEX IF NOT EXISTS idx_job_offers_publisher_created_at ON job_offers(publisher_id, created_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_job_applications_job_status ON job_applications(job_id, status);",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			zapLogger.Warn("Failed to create index", zap.String("sql", indexSQL), zap.Error(err))
		}
	}
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsHealthy checks if the database connection is healthy
func IsHealthy(db *gorm.DB) error {
	if db == nil {
		return errors.New("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// GetStats returns database connection statistics
func GetStats(db *gorm.DB) map[string]interface{} {
	if db == nil {
		return map[string]interface{}{
			"status": "not_initialized",
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"status":           "connected",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open_conns":   stats.MaxOpenConnections,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration.String(),
	}
}

// Paginate creates a pagination scope for GORM queries
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page <= 0 {
			page = 1
		}
		if pageSize <= 0 {
			pageSize = 10
		}
		if pageSize > jobs.MaxPageSize {
			pageSize = jobs.MaxPageSize
		}

		offset := (page - 1) * pageSize
		return db.Offset(offset).Limit(pageSize)
	}
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CalculatePagination calculates pagination info
func CalculatePagination(page, pageSize int, total int64) PaginationInfo {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return PaginationInfo{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// getLogLevel converts string log level to GORM log level
func getLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn", "info":
		return logger.Warn
	case "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
