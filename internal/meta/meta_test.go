package meta

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	info := &ScanInfo{
		ScannerSerial: "35355",
		AcqDate:       "20260114",
		FreqMHz:       123.2625,
		TRms:          2000,
		NumVolumes:    512,
	}
	path := filepath.Join(t.TempDir(), "qc_info.txt")
	if err := Write(path, info); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *info {
		t.Fatalf("round trip = %+v, want %+v", got, info)
	}
}

func TestLoadIgnoresUnknownKeysAndComments(t *testing.T) {
	content := `# exported by dicom converter
scanner_serial 35355
acq_date 20260114
coil_elements 32
rf_freq_mhz 123.25
tr_ms 2000.0
num_volumes 512
`
	path := filepath.Join(t.TempDir(), "qc_info.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.ScannerSerial != "35355" || info.NumVolumes != 512 || info.FreqMHz != 123.25 {
		t.Fatalf("Load = %+v", info)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := []string{
		"tr_ms notanumber\n",
		"num_volumes 3.5\n",
		"loneword\n",
	}
	for _, content := range cases {
		path := filepath.Join(t.TempDir(), "bad.txt")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%q): expected error", content)
		}
	}
}
