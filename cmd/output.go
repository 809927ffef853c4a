package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"dbsnap/internal/ledger"
)

const defaultDurationUnit = time.Millisecond

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// colorizeStatus renders a backup status with a status-appropriate color.
// fatih/color degrades to plain text when stdout is not a terminal.
func colorizeStatus(status ledger.Status) string {
	switch status {
	case ledger.StatusCompleted:
		return color.GreenString(string(status))
	case ledger.StatusFailed:
		return color.RedString(string(status))
	case ledger.StatusInProgress:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}
