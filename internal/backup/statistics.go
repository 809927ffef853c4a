package backup

import (
	"dbsnap/internal/ledger"
)

// GetBackupStatistics aggregates per-type rollups over the whole ledger:
// attempts, successes, failures, average duration, total bytes and the time
// of the last successful backup. Read-only.
func GetBackupStatistics(store *ledger.Store) ([]ledger.TypeStatistics, error) {
	records, err := store.ListBackupRecords(ledger.BackupFilter{})
	if err != nil {
		return nil, NewLedgerError("failed to list backup records", err)
	}

	byType := make(map[ledger.BackupType]*ledger.TypeStatistics)
	order := []ledger.BackupType{}
	totalDuration := make(map[ledger.BackupType]int64)
	completed := make(map[ledger.BackupType]int64)

	for i := range records {
		rec := &records[i]
		stats, ok := byType[rec.Type]
		if !ok {
			stats = &ledger.TypeStatistics{Type: rec.Type}
			byType[rec.Type] = stats
			order = append(order, rec.Type)
		}

		stats.TotalAttempts++
		switch rec.Status {
		case ledger.StatusCompleted:
			stats.Successful++
			stats.TotalBytes += rec.SizeBytes
			totalDuration[rec.Type] += rec.DurationMs
			completed[rec.Type]++
			if stats.LastSuccessAt == nil || rec.CreatedAt.After(*stats.LastSuccessAt) {
				t := rec.CreatedAt
				stats.LastSuccessAt = &t
			}
		case ledger.StatusFailed:
			stats.Failed++
		}
	}

	result := make([]ledger.TypeStatistics, 0, len(order))
	for _, t := range order {
		stats := byType[t]
		if n := completed[t]; n > 0 {
			stats.AvgDurationMs = float64(totalDuration[t]) / float64(n)
		}
		result = append(result, *stats)
	}
	return result, nil
}
