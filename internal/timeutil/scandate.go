// Package timeutil provides scan-date helpers for the per-scan directory
// naming scheme.
package timeutil

import (
	"fmt"
	"time"
)

// ScanDateLayout is the compact date form used for scan directory names and
// the acquisition-date field of the scan info file.
const ScanDateLayout = "20060102"

// ParseScanDate parses a YYYYMMDD scan date.
func ParseScanDate(s string) (time.Time, error) {
	t, err := time.Parse(ScanDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad scan date %q: %w", s, err)
	}
	return t, nil
}

// FormatScanDate renders a time as a YYYYMMDD scan date.
func FormatScanDate(t time.Time) string {
	return t.Format(ScanDateLayout)
}

// ISODate renders a YYYYMMDD scan date in ISO form (YYYY-MM-DD) for
// reports. Unparseable input is returned unchanged.
func ISODate(s string) string {
	t, err := ParseScanDate(s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
