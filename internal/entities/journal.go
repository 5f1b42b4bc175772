package entities

import "time"

type SyncDirection string

const (
	DirectionPush SyncDirection = "push"
	DirectionPull SyncDirection = "pull"
)

type ItemOutcome string

const (
	OutcomeSynced  ItemOutcome = "synced"
	OutcomeSkipped ItemOutcome = "skipped"
	OutcomeFailed  ItemOutcome = "failed"
)

// SyncRun is one invocation of a push, pull or combined sync.
type SyncRun struct {
	ID         string `gorm:"primaryKey;size:36"`
	Mode       string `gorm:"size:10"`
	StartedAt  time.Time
	FinishedAt *time.Time
	Pushed     int
	Pulled     int
	Failed     int
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// ItemRecord is the per-item outcome of a run.
type ItemRecord struct {
	ID        uint          `gorm:"primaryKey"`
	RunID     string        `gorm:"index;size:36"`
	Direction SyncDirection `gorm:"size:10"`
	ItemKey   string        `gorm:"size:50"`
	Filename  string        `gorm:"size:255"`
	Outcome   ItemOutcome   `gorm:"size:20"`
	Detail    string        `gorm:"size:500"`
	CreatedAt time.Time
}

func (ItemRecord) TableName() string {
	return "item_records"
}
