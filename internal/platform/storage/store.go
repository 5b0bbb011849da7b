package storage

import (
	"context"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// Store is the SQLite-backed persistence layer for recordings and their
// assessment results.
type Store struct {
	db     *gorm.DB
	logger *logging.Logger
}

// Open creates the database file, runs migrations and returns a ready store.
func Open(cfg config.StorageConfig, logger *logging.Logger) (*Store, error) {
	const op = "storage.open"

	dir := cfg.Dir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "create data directory", err)
	}
	file := cfg.File
	if file == "" {
		file = "ispeak.db"
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, file)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "open database", err)
	}

	manager := NewMigrationManager(db)
	manager.AddMigration(Migration001Initial{})
	manager.AddMigration(Migration002ResultIndexes{})
	if err := manager.RunMigrations(); err != nil {
		return nil, err
	}

	logger.InfoTag("DB", "storage ready at %s", filepath.Join(dir, file))
	return &Store{db: db, logger: logger}, nil
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SaveAssessment upserts the recording row and its result in one transaction.
func (s *Store) SaveAssessment(ctx context.Context, rec *Recording, res *AssessmentResult) error {
	const op = "storage.save"
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rec != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "recording_id"}},
				UpdateAll: true,
			}).Create(rec).Error; err != nil {
				return errors.Wrap(errors.KindStorage, op, "save recording", err)
			}
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recording_id"}},
			UpdateAll: true,
		}).Create(res).Error; err != nil {
			return errors.Wrap(errors.KindStorage, op, "save result", err)
		}
		return nil
	})
}

// GetResult loads the result row for a recording id.
func (s *Store) GetResult(ctx context.Context, recordingID string) (*AssessmentResult, error) {
	const op = "storage.get_result"
	var res AssessmentResult
	err := s.db.WithContext(ctx).Where("recording_id = ?", recordingID).First(&res).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.KindStorage, op, "result not found: "+recordingID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "query result", err)
	}
	return &res, nil
}

// GetRecording loads the recording row for a recording id.
func (s *Store) GetRecording(ctx context.Context, recordingID string) (*Recording, error) {
	const op = "storage.get_recording"
	var rec Recording
	err := s.db.WithContext(ctx).Where("recording_id = ?", recordingID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.KindStorage, op, "recording not found: "+recordingID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "query recording", err)
	}
	return &rec, nil
}

// ListResults pages through results, newest first.
func (s *Store) ListResults(ctx context.Context, limit, offset int) ([]AssessmentResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []AssessmentResult
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.list", "list results", err)
	}
	return results, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
