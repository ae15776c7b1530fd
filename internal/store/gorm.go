package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Gorm backs the store with postgres. One row per session, upserted on
// every save; events are insert-only.
type Gorm struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&SessionRecord{}, &EventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) SaveSession(ctx context.Context, rec SessionRecord) error {
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "state", "players", "config", "version", "updated_at", "ended_at",
			}),
		}).
		Create(&rec).Error
}

func (g *Gorm) AppendEvents(ctx context.Context, events []EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Create(&events).Error
}

func (g *Gorm) LoadSession(ctx context.Context, id string) (SessionRecord, []EventRecord, error) {
	var rec SessionRecord
	err := g.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionRecord{}, nil, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, nil, err
	}
	var events []EventRecord
	if err := g.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("id asc").
		Find(&events).Error; err != nil {
		return SessionRecord{}, nil, err
	}
	return rec, events, nil
}

func (g *Gorm) ListActive(ctx context.Context) ([]SessionRecord, error) {
	var recs []SessionRecord
	err := g.db.WithContext(ctx).
		Where("status <> ?", "ended").
		Find(&recs).Error
	return recs, err
}
