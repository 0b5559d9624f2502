// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/crucial707/asset-custody/internal/metrics"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/robfig/cron/v3"
)

// DriftChecker lists assets whose custody snapshot disagrees with their open assignments.
type DriftChecker interface {
	Drift(ctx context.Context) ([]models.Drift, error)
}

// maxLoggedDrift caps the per-asset log lines of one run.
const maxLoggedDrift = 20

// IntegrityJob checks the custody snapshot against the ledger and publishes
// the drift count as a metric. It never repairs anything.
type IntegrityJob struct {
	Checker DriftChecker
	Timeout time.Duration
}

// Run implements cron.Job.
func (j *IntegrityJob) Run() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	drift, err := j.Checker.Drift(ctx)
	if err != nil {
		metrics.RecordIntegrityCheckError()
		slog.Error("integrity check failed", "err", err)
		return
	}
	metrics.RecordIntegrityCheck(len(drift))
	if len(drift) == 0 {
		slog.Debug("integrity check passed")
		return
	}
	slog.Warn("custody snapshot drift detected", "assets", len(drift))
	for i, d := range drift {
		if i == maxLoggedDrift {
			break
		}
		slog.Warn("asset snapshot drift", "asset_id", d.AssetID, "state", d.State, "open_events", d.OpenEvents)
	}
}

// Start schedules job on spec and starts the cron runner. An empty spec
// disables the job and returns nil. Overlapping runs are skipped.
func Start(spec string, job cron.Job) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	logger := slogLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	c.Start()
	slog.Info("scheduler started", "spec", spec)
	return c, nil
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
