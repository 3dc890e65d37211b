// Package datastore provides monitoring functions for database operations
package datastore

import (
	"fmt"
	"time"
)

// journalTables are the tables whose row counts are exported as metrics.
var journalTables = []string{"mix_runs", "underflow_events"}

// startDatabaseMonitoring starts a goroutine that periodically monitors
// database size and table statistics
func (ds *DataStore) startDatabaseMonitoring(interval time.Duration, quitChan <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-quitChan:
				return
			case <-ticker.C:
				ds.collectDatabaseStats()
			}
		}
	}()
}

// collectDatabaseStats gathers size and row count statistics once.
func (ds *DataStore) collectDatabaseStats() {
	m := ds.getMetrics()

	// Update database size metrics
	if dbSize, err := ds.getDatabaseSize(); err == nil && m != nil {
		m.UpdateDatabaseSize(dbSize)
	} else if err != nil {
		getLogger().Error("Failed to get database size",
			"error", err)
	}

	// Update table row counts
	for _, table := range journalTables {
		if count, err := ds.getTableRowCount(table); err == nil && m != nil {
			m.UpdateTableRowCount(table, count)
		} else if err != nil {
			getLogger().Error("Failed to get table row count",
				"table", table,
				"error", err)
		}
	}
}

// getDatabaseSize returns the total size of the database in bytes
func (ds *DataStore) getDatabaseSize() (int64, error) {
	var size int64

	// SQLite-specific query
	if ds.DB.Name() == "sqlite" {
		// For SQLite, we use page_count * page_size
		err := ds.DB.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Row().Scan(&size)
		if err != nil {
			return 0, fmt.Errorf("failed to get SQLite database size: %w", err)
		}
		return size, nil
	}

	return 0, fmt.Errorf("unsupported database type: %s", ds.DB.Name())
}

// getTableRowCount returns the number of rows in a specific table
func (ds *DataStore) getTableRowCount(table string) (int64, error) {
	var count int64
	err := ds.DB.Table(table).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in table %s: %w", table, err)
	}
	return count, nil
}

// StartMonitoring initializes the periodic statistics collection for the
// journal. A non-positive interval disables monitoring.
func (ds *DataStore) StartMonitoring(databaseStatsInterval time.Duration, quitChan <-chan struct{}) {
	if databaseStatsInterval > 0 {
		ds.startDatabaseMonitoring(databaseStatsInterval, quitChan)
		getLogger().Info("Started database statistics monitoring",
			"interval", databaseStatsInterval)
	}
}
