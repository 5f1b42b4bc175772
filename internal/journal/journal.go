// Package journal persists sync runs and per-item outcomes to a local sqlite
// database for later inspection.
package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbergmann/zot2rm/internal/entities"
)

type Journal struct {
	db *gorm.DB
}

// Open opens (and migrates) the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.AutoMigrate(&entities.SyncRun{}, &entities.ItemRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal database: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BeginRun records the start of a sync run and returns its id.
func (j *Journal) BeginRun(mode string) (string, error) {
	run := entities.SyncRun{
		ID:        uuid.New().String(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
	if err := j.db.Create(&run).Error; err != nil {
		return "", fmt.Errorf("failed to record sync run: %w", err)
	}
	return run.ID, nil
}

// FinishRun closes a run with its counters.
func (j *Journal) FinishRun(runID string, pushed, pulled, failed int) error {
	now := time.Now()
	err := j.db.Model(&entities.SyncRun{}).Where("id = ?", runID).Updates(map[string]any{
		"finished_at": &now,
		"pushed":      pushed,
		"pulled":      pulled,
		"failed":      failed,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	return nil
}

// RecordItem appends one per-item outcome to a run.
func (j *Journal) RecordItem(runID string, direction entities.SyncDirection, itemKey, filename string, outcome entities.ItemOutcome, detail string) error {
	rec := entities.ItemRecord{
		RunID:     runID,
		Direction: direction,
		ItemKey:   itemKey,
		Filename:  filename,
		Outcome:   outcome,
		Detail:    detail,
	}
	if err := j.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record item outcome: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (j *Journal) RecentRuns(limit int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	err := j.db.Order("started_at desc").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}

// ItemsForRun returns the per-item records of one run in insertion order.
func (j *Journal) ItemsForRun(runID string) ([]entities.ItemRecord, error) {
	var items []entities.ItemRecord
	err := j.db.Where("run_id = ?", runID).Order("id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	return items, nil
}
