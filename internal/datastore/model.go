// model.go this code defines the data model for the run journal
package datastore

import "time"

// MixRun represents one completed run of the mixing graph
type MixRun struct {
	ID            uint      `gorm:"primaryKey"`
	RunID         string    `gorm:"uniqueIndex;not null"` // UUID assigned at run start
	StartedAt     time.Time `gorm:"index:idx_mixruns_startedat"`
	Duration      time.Duration
	SampleRate    int
	Channels      int
	Sources       int
	Periods       int64
	FramesMixed   int64
	FramesSilence int64
	Events        []UnderflowEvent `gorm:"foreignKey:MixRunID;constraint:OnDelete:CASCADE"`

	// Virtual field populated from len(Events) when loaded
	Underflows int `gorm:"-"`
}

// UnderflowEvent represents a single underflow gap detected during a run.
// GORM will automatically create table name as 'underflow_events'
type UnderflowEvent struct {
	ID           uint   `gorm:"primaryKey"`
	MixRunID     uint   `gorm:"index;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:MixRunID;references:ID"` // Foreign key to associate with MixRun
	Stage        string `gorm:"index:idx_underflow_stage"`
	PeriodIndex  int64
	MissedFrames int64
	Missed       time.Duration
	DetectedAt   time.Time `gorm:"index"`
}

// StageUnderflowSummary aggregates underflow events per producer stage
type StageUnderflowSummary struct {
	Stage        string
	EventCount   int64
	MissedFrames int64
}
