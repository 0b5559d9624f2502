package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/crucial707/asset-custody/internal/metrics"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	drift []models.Drift
	err   error
	calls int
}

func (f *fakeChecker) Drift(ctx context.Context) ([]models.Drift, error) {
	f.calls++
	return f.drift, f.err
}

func TestIntegrityJob_RecordsDrift(t *testing.T) {
	checker := &fakeChecker{drift: []models.Drift{
		{AssetID: 1, State: "ASSIGNED", OpenEvents: 0},
		{AssetID: 2, State: "FREE", OpenEvents: 1},
	}}
	before := testutil.ToFloat64(metrics.IntegrityChecksTotal.WithLabelValues("drift"))

	(&IntegrityJob{Checker: checker}).Run()

	assert.Equal(t, 1, checker.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SnapshotDrift))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IntegrityChecksTotal.WithLabelValues("drift")))

	checker.drift = nil
	(&IntegrityJob{Checker: checker}).Run()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SnapshotDrift))
}

func TestIntegrityJob_Error(t *testing.T) {
	before := testutil.ToFloat64(metrics.IntegrityChecksTotal.WithLabelValues("error"))

	(&IntegrityJob{Checker: &fakeChecker{err: errors.New("db down")}}).Run()

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IntegrityChecksTotal.WithLabelValues("error")))
}

func TestStart(t *testing.T) {
	c, err := Start("", &IntegrityJob{Checker: &fakeChecker{}})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Start("not a cron spec", &IntegrityJob{Checker: &fakeChecker{}})
	assert.Error(t, err)

	c, err = Start("@every 1h", &IntegrityJob{Checker: &fakeChecker{}})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
