package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsnap/internal/ledger"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512 B"},
		{"kilobytes", 2048, "2.0 KiB"},
		{"megabytes", 5 * 1024 * 1024, "5.0 MiB"},
		{"gigabytes", 3 * 1024 * 1024 * 1024, "3.0 GiB"},
		{"fractional", 1536, "1.5 KiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatBytes(tt.input))
		})
	}
}

func TestBuildListFilter(t *testing.T) {
	t.Cleanup(func() {
		listType, listStatus, listStartDate, listEndDate = "", "", "", ""
		listLimit = 0
	})

	listType = "full"
	listStatus = "completed"
	listLimit = 5
	listStartDate = "2026-01-01T00:00:00Z"
	listEndDate = ""

	filter, err := buildListFilter()
	require.NoError(t, err)
	assert.Equal(t, ledger.BackupTypeFull, filter.Type)
	assert.Equal(t, ledger.StatusCompleted, filter.Status)
	assert.Equal(t, 5, filter.Limit)
	require.NotNil(t, filter.StartDate)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), filter.StartDate.UTC())
	assert.Nil(t, filter.EndDate)
}

func TestBuildListFilter_InvalidType(t *testing.T) {
	t.Cleanup(func() { listType = "" })

	listType = "hourly"
	_, err := buildListFilter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backup type")
}

func TestBuildListFilter_InvalidDate(t *testing.T) {
	t.Cleanup(func() { listStartDate = "" })

	listStartDate = "yesterday"
	_, err := buildListFilter()
	require.Error(t, err)
}

func TestColorizeStatus_CoversAllStatuses(t *testing.T) {
	for _, status := range []ledger.Status{
		ledger.StatusPending,
		ledger.StatusInProgress,
		ledger.StatusCompleted,
		ledger.StatusFailed,
	} {
		assert.Contains(t, colorizeStatus(status), string(status))
	}
}
