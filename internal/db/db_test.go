package db

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phantom-data/phantom.report/internal/meta"
	"github.com/phantom-data/phantom.report/internal/qa"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "qc_metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testInfo(acqDate string) *meta.ScanInfo {
	return &meta.ScanInfo{
		ScannerSerial: "35355",
		AcqDate:       acqDate,
		FreqMHz:       123.25,
		TRms:          2000,
		NumVolumes:    512,
	}
}

func TestMigrations(t *testing.T) {
	db := testDB(t)
	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, v)

	// idempotent: a second Up is a no-op
	assert.NoError(t, db.MigrateUp())
}

func TestRecordRunAndTrend(t *testing.T) {
	db := testDB(t)

	evs := []qa.Evaluation{
		{Name: "tmean_snr", Value: 160, Lower: 20, Upper: 1e6, Pass: true, Bound: true},
		{Name: "sig_drift_perc", Value: 0.4, Lower: 0, Upper: 3, Pass: true, Bound: true},
	}
	require.NoError(t, db.RecordRun(testInfo("20260113"), "run-1", evs))

	evs[0].Value = 150
	require.NoError(t, db.RecordRun(testInfo("20260114"), "run-2", evs))

	points, err := db.MetricTrend("35355", "tmean_snr")
	require.NoError(t, err)
	require.Len(t, points, 2)

	// ordered by acquisition date
	assert.Equal(t, "20260113", points[0].AcqDate)
	assert.Equal(t, "20260114", points[1].AcqDate)
	assert.Equal(t, 160.0, points[0].Value)
	assert.Equal(t, 150.0, points[1].Value)
	assert.True(t, points[0].Pass)
	assert.True(t, points[1].Pass)

	n, err := db.ScanCount("35355")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordRunReplacesMetrics(t *testing.T) {
	db := testDB(t)
	info := testInfo("20260114")

	evs := []qa.Evaluation{{Name: "tmean_snr", Value: 160, Pass: true}}
	require.NoError(t, db.RecordRun(info, "run-1", evs))

	// reprocessing the same date replaces, not duplicates
	evs[0].Value = 140
	require.NoError(t, db.RecordRun(info, "run-2", evs))

	points, err := db.MetricTrend("35355", "tmean_snr")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 140.0, points[0].Value)

	n, err := db.ScanCount("35355")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNaNMetricsRoundTripAsNull(t *testing.T) {
	db := testDB(t)
	evs := []qa.Evaluation{
		{Name: "spikes_nyquist", Value: math.NaN(), Lower: 0, Upper: 10, Pass: false, Bound: true},
	}
	require.NoError(t, db.RecordRun(testInfo("20260114"), "run-1", evs))

	points, err := db.MetricTrend("35355", "spikes_nyquist")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, math.IsNaN(points[0].Value), "NaN value came back as %g", points[0].Value)
	assert.False(t, points[0].Pass, "inconclusive metric recorded as passing")
}

func TestScanners(t *testing.T) {
	db := testDB(t)

	evs := []qa.Evaluation{{Name: "tmean_snr", Value: 100, Pass: true}}
	require.NoError(t, db.RecordRun(testInfo("20260114"), "run-1", evs))

	other := testInfo("20260114")
	other.ScannerSerial = "12345"
	require.NoError(t, db.RecordRun(other, "run-2", evs))

	serials, err := db.Scanners()
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "35355"}, serials)
}

func TestMetricTrendUnknownScanner(t *testing.T) {
	db := testDB(t)
	points, err := db.MetricTrend("nobody", "tmean_snr")
	require.NoError(t, err)
	assert.Empty(t, points)
}
