package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mediahub/internal/util"
	"mediahub/pkg/domain"
)

const migrateLockID int64 = 41514151

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&MediaModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func (s *GormStore) ListMedia(ctx context.Context) ([]domain.MediaItem, error) {
	var models []MediaModel
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	return modelsToMedia(models), nil
}

func (s *GormStore) ListByType(ctx context.Context, mediaType domain.MediaType) ([]domain.MediaItem, error) {
	var models []MediaModel
	if err := s.db.WithContext(ctx).Where("media_type = ?", string(mediaType)).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	return modelsToMedia(models), nil
}

func (s *GormStore) GetMedia(ctx context.Context, id string) (domain.MediaItem, bool, error) {
	var model MediaModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.MediaItem{}, false, nil
	}
	if err != nil {
		return domain.MediaItem{}, false, err
	}
	return modelToMedia(model), true, nil
}

func (s *GormStore) CreateMedia(ctx context.Context, item domain.MediaItem) (domain.MediaItem, error) {
	item.ID = util.NewID()
	stampTimes(&item, time.Now().UTC())
	model := mediaToModel(item)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.MediaItem{}, err
	}
	return item, nil
}

// SaveMedia upserts the full row.
func (s *GormStore) SaveMedia(ctx context.Context, item domain.MediaItem) error {
	model := mediaToModel(item)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "title", "description", "thumbnail_url", "source_url", "media_type",
			"duration", "views", "creator_name", "creator_avatar", "tags", "is_premium",
			"price", "uploaded_at", "file_name", "updated_at",
		}),
	}).Create(&model).Error
}

func (s *GormStore) DeleteMedia(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&MediaModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertMany inserts rows one by one so a bad row does not abort the batch.
func (s *GormStore) InsertMany(ctx context.Context, items []domain.MediaItem) (int, error) {
	inserted := 0
	var firstErr error
	for _, item := range items {
		if _, err := s.CreateMedia(ctx, item); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted++
	}
	if inserted == 0 && firstErr != nil {
		return 0, firstErr
	}
	return inserted, nil
}

func (s *GormStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func modelsToMedia(models []MediaModel) []domain.MediaItem {
	out := make([]domain.MediaItem, 0, len(models))
	for _, m := range models {
		out = append(out, modelToMedia(m))
	}
	return out
}
