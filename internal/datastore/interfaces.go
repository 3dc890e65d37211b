// interfaces.go: this code defines the interface for the run journal operations
package datastore

import (
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the run journal.
type Interface interface {
	Open() error
	Save(run *MixRun, events []UnderflowEvent) error
	Delete(id string) error
	Get(id string) (MixRun, error)
	Close() error
	GetAllRuns() ([]MixRun, error)
	GetLastRuns(limit int) ([]MixRun, error)
	GetRun(runID string) (MixRun, error)
	UnderflowsForRun(runID string) ([]UnderflowEvent, error)
	GetUnderflowSummary() ([]StageUnderflowSummary, error)
	CountRuns() (int64, error)
	StartMonitoring(interval time.Duration, quitChan <-chan struct{})
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance

	metrics   *Metrics
	metricsMu sync.RWMutex
}

// New creates a new DataStore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	default:
		// No journal backend enabled
		return nil
	}
}

// SetMetrics attaches a metrics instance to this store. Stores created
// before observability is initialized fall back to the package-level
// instance.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metricsMu.Lock()
	defer ds.metricsMu.Unlock()
	ds.metrics = m
}

// getMetrics returns the instance metrics if set, the global otherwise.
func (ds *DataStore) getMetrics() *Metrics {
	ds.metricsMu.RLock()
	m := ds.metrics
	ds.metricsMu.RUnlock()
	if m != nil {
		return m
	}
	return getGlobalMetrics()
}

// recordTransaction reports a transaction outcome to metrics if available.
func (ds *DataStore) recordTransaction(status string, elapsed time.Duration) {
	if m := ds.getMetrics(); m != nil {
		m.RecordTransaction(status)
		if status == "success" {
			m.RecordTransactionDuration("commit", elapsed.Seconds())
		}
	}
}

// Save stores a run and its underflow events as a single transaction.
func (ds *DataStore) Save(run *MixRun, events []UnderflowEvent) error {
	txStart := time.Now()

	// Begin a transaction
	tx := ds.DB.Begin()
	if tx.Error != nil {
		return stateError(tx.Error, "begin_transaction", "transaction")
	}

	// Roll back the transaction if a panic occurs
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Save the run and its associated events within the transaction
	if err := tx.Create(run).Error; err != nil {
		tx.Rollback()
		ds.recordTransaction("error", time.Since(txStart))
		return dbError(err, "save_mix_run", "", "run_id", run.RunID)
	}

	// Assign the run ID to each event and save them
	for i := range events {
		events[i].MixRunID = run.ID
		if err := tx.Create(&events[i]).Error; err != nil {
			tx.Rollback()
			ds.recordTransaction("error", time.Since(txStart))
			return dbError(err, "save_underflow_event", "",
				"run_id", run.RunID,
				"stage", events[i].Stage)
		}
	}

	// Commit the transaction
	if err := tx.Commit().Error; err != nil {
		ds.recordTransaction("error", time.Since(txStart))
		return stateError(err, "commit_transaction", "transaction", "run_id", run.RunID)
	}

	ds.recordTransaction("success", time.Since(txStart))
	return nil
}

// Get retrieves a run by its numeric ID from the database.
func (ds *DataStore) Get(id string) (MixRun, error) {
	// Convert the id from string to integer
	runID, err := strconv.Atoi(id)
	if err != nil {
		return MixRun{}, validationError("invalid run ID", "id", id)
	}

	var run MixRun
	if err := ds.DB.Preload("Events").First(&run, runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MixRun{}, notFoundError("mix run", id)
		}
		return MixRun{}, dbError(err, "get_mix_run", "", "id", id)
	}
	run.Underflows = len(run.Events)
	return run, nil
}

// GetRun retrieves a run by the UUID assigned at run start.
func (ds *DataStore) GetRun(runID string) (MixRun, error) {
	var run MixRun
	err := ds.DB.Preload("Events").Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MixRun{}, notFoundError("mix run", runID)
		}
		return MixRun{}, dbError(err, "get_mix_run", "", "run_id", runID)
	}
	run.Underflows = len(run.Events)
	return run, nil
}

// Delete removes a run and its associated events from the database.
func (ds *DataStore) Delete(id string) error {
	// Convert the id from string to unsigned integer
	runID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return validationError("invalid run ID", "id", id)
	}

	// Perform the deletion within a transaction
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		// Delete the underflow events associated with the run
		if err := tx.Where("mix_run_id = ?", runID).Delete(&UnderflowEvent{}).Error; err != nil {
			return dbError(err, "delete_underflow_events", "", "id", id)
		}
		// Delete the run itself
		if err := tx.Delete(&MixRun{}, runID).Error; err != nil {
			return dbError(err, "delete_mix_run", "", "id", id)
		}
		return nil
	})
}

// GetAllRuns retrieves all runs from the database.
func (ds *DataStore) GetAllRuns() ([]MixRun, error) {
	var runs []MixRun
	if result := ds.DB.Order("started_at DESC").Find(&runs); result.Error != nil {
		return nil, dbError(result.Error, "get_all_runs", "")
	}
	return runs, nil
}

// GetLastRuns retrieves the most recent runs, newest first.
func (ds *DataStore) GetLastRuns(limit int) ([]MixRun, error) {
	if limit <= 0 {
		return nil, validationError("limit must be positive", "limit", limit)
	}

	var runs []MixRun
	err := ds.DB.Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, dbError(err, "get_last_runs", "", "limit", limit)
	}
	return runs, nil
}

// UnderflowsForRun retrieves all underflow events for a run UUID.
func (ds *DataStore) UnderflowsForRun(runID string) ([]UnderflowEvent, error) {
	var run MixRun
	err := ds.DB.Select("id").Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("mix run", runID)
		}
		return nil, dbError(err, "get_mix_run", "", "run_id", runID)
	}

	var events []UnderflowEvent
	err = ds.DB.Where("mix_run_id = ?", run.ID).Order("detected_at ASC").Find(&events).Error
	if err != nil {
		return nil, dbError(err, "get_underflow_events", "", "run_id", runID)
	}
	return events, nil
}

// GetUnderflowSummary aggregates underflow events per producer stage across
// all recorded runs.
func (ds *DataStore) GetUnderflowSummary() ([]StageUnderflowSummary, error) {
	var summary []StageUnderflowSummary

	err := ds.DB.Table("underflow_events").
		Select("stage", "COUNT(*) as event_count", "SUM(missed_frames) as missed_frames").
		Group("stage").
		Order("event_count DESC").
		Scan(&summary).Error
	if err != nil {
		return nil, dbError(err, "get_underflow_summary", "")
	}

	return summary, nil
}

// CountRuns returns the number of recorded runs.
func (ds *DataStore) CountRuns() (int64, error) {
	var count int64
	if err := ds.DB.Model(&MixRun{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_runs", "")
	}
	return count, nil
}
