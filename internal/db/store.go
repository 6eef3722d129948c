package db

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/phantom-data/phantom.report/internal/meta"
	"github.com/phantom-data/phantom.report/internal/qa"
)

// RecordRun upserts one scan's metadata and its evaluated metrics. Running
// the same scan date again replaces the previous metrics, so reprocessed
// directories do not duplicate trend points. NaN metric values are stored
// as NULL and come back as NaN.
func (db *DB) RecordRun(info *meta.ScanInfo, runID string, evs []qa.Evaluation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scans (scanner_serial, acq_date, rf_freq_mhz, tr_ms, num_volumes, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (scanner_serial, acq_date) DO UPDATE SET
			rf_freq_mhz = excluded.rf_freq_mhz,
			tr_ms = excluded.tr_ms,
			num_volumes = excluded.num_volumes,
			run_id = excluded.run_id
	`, info.ScannerSerial, info.AcqDate, info.FreqMHz, info.TRms, info.NumVolumes, runID)
	if err != nil {
		return fmt.Errorf("upsert scan: %w", err)
	}

	// LastInsertId is unreliable across the insert/update halves of an
	// upsert, so resolve the row id explicitly.
	var scanID int64
	err = tx.QueryRow(
		`SELECT scan_id FROM scans WHERE scanner_serial = ? AND acq_date = ?`,
		info.ScannerSerial, info.AcqDate,
	).Scan(&scanID)
	if err != nil {
		return fmt.Errorf("resolve scan id: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM qc_metrics WHERE scan_id = ?`, scanID); err != nil {
		return fmt.Errorf("clear prior metrics: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO qc_metrics (scan_id, name, value, lower_bound, upper_bound, pass)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		pass := 0
		if ev.Pass {
			pass = 1
		}
		if _, err := stmt.Exec(scanID, ev.Name, toNull(ev.Value), toNull(ev.Lower), toNull(ev.Upper), pass); err != nil {
			return fmt.Errorf("insert metric %s: %w", ev.Name, err)
		}
	}

	return tx.Commit()
}

// TrendPoint is one dated value of a metric for trend plotting.
type TrendPoint struct {
	AcqDate string
	Value   float64
	Pass    bool
}

// MetricTrend returns the dated series of one metric for one scanner,
// ordered by acquisition date.
func (db *DB) MetricTrend(scannerSerial, metric string) ([]TrendPoint, error) {
	rows, err := db.Query(`
		SELECT s.acq_date, m.value, m.pass
		FROM qc_metrics m
		JOIN scans s ON s.scan_id = m.scan_id
		WHERE s.scanner_serial = ? AND m.name = ?
		ORDER BY s.acq_date
	`, scannerSerial, metric)
	if err != nil {
		return nil, fmt.Errorf("query trend %s/%s: %w", scannerSerial, metric, err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		var value sql.NullFloat64
		var pass int
		if err := rows.Scan(&p.AcqDate, &value, &pass); err != nil {
			return nil, err
		}
		p.Value = fromNull(value)
		p.Pass = pass != 0
		points = append(points, p)
	}
	return points, rows.Err()
}

// Scanners lists the scanner serials present in the store.
func (db *DB) Scanners() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT scanner_serial FROM scans ORDER BY scanner_serial`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var serials []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		serials = append(serials, s)
	}
	return serials, rows.Err()
}

// ScanCount returns the number of recorded scans for a scanner.
func (db *DB) ScanCount(scannerSerial string) (int, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM scans WHERE scanner_serial = ?`, scannerSerial,
	).Scan(&n)
	return n, err
}

// toNull maps NaN to NULL for storage; SQLite has no NaN representation.
func toNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
