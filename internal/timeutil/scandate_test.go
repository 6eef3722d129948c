package timeutil

import (
	"testing"
	"time"
)

func TestParseScanDate(t *testing.T) {
	got, err := ParseScanDate("20260114")
	if err != nil {
		t.Fatalf("ParseScanDate: %v", err)
	}
	want := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseScanDate = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "2026-01-14", "20261301", "notadate"} {
		if _, err := ParseScanDate(bad); err == nil {
			t.Errorf("ParseScanDate(%q): expected error", bad)
		}
	}
}

func TestFormatScanDate(t *testing.T) {
	d := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	if got := FormatScanDate(d); got != "20260114" {
		t.Fatalf("FormatScanDate = %q, want 20260114", got)
	}
}

func TestISODate(t *testing.T) {
	if got := ISODate("20260114"); got != "2026-01-14" {
		t.Fatalf("ISODate = %q, want 2026-01-14", got)
	}
	// unparseable input passes through
	if got := ISODate("garbage"); got != "garbage" {
		t.Fatalf("ISODate(garbage) = %q", got)
	}
}
