package meter

import (
	"context"
	"time"

	"github.com/penwyp/go-molty-meter/internal/data/billing"
	"github.com/penwyp/go-molty-meter/internal/data/monitoring"
)

// CostReconciler fetches the authoritative month-to-date cost
type CostReconciler interface {
	FetchMonthlyCost(ctx context.Context, cred billing.Credential, cutoff *time.Time) (billing.Result, error)
}

// FileMonitor watches for session log changes
type FileMonitor interface {
	// Events returns a channel of file change events
	Events() <-chan monitoring.FileEvent
	// Close stops monitoring and releases the watch handle
	Close() error
}

// MonitorFactory opens a FileMonitor over the given roots
type MonitorFactory func(paths []string) (FileMonitor, error)

func newFileMonitor(paths []string) (FileMonitor, error) {
	return monitoring.NewFileWatcher(paths)
}
