package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phantom-data/phantom.report/internal/qa"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	// empty path and missing file both yield defaults
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.json")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.GetPhaseEncodeAxis() != "y" {
			t.Fatalf("default phase axis = %q", cfg.GetPhaseEncodeAxis())
		}
		if cfg.GetWorkers() != 4 {
			t.Fatalf("default workers = %d", cfg.GetWorkers())
		}
		if cfg.GetDatabasePath() != "qc_metrics.db" {
			t.Fatalf("default db path = %q", cfg.GetDatabasePath())
		}
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	_, err := Load("config.yaml")
	if !errors.Is(err, qa.ErrBadConfig) {
		t.Fatalf("err = %v, want ErrBadConfig", err)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"phase_encode_axis": "z", "workers": 8}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetPhaseEncodeAxis() != "z" {
		t.Fatalf("phase axis = %q, want z", cfg.GetPhaseEncodeAxis())
	}
	if cfg.GetWorkers() != 8 {
		t.Fatalf("workers = %d, want 8", cfg.GetWorkers())
	}
	// unset fields keep their defaults
	if cfg.GetDatabasePath() != "qc_metrics.db" {
		t.Fatalf("db path = %q", cfg.GetDatabasePath())
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []string{
		`{"phase_encode_axis": "w"}`,
		`{"erode_radius_mm": -1}`,
		`{"dilate_iterations": 0}`,
		`{"threshold_fraction": 1.5}`,
		`{"percentile": 0}`,
		`{"percentile": 101}`,
		`{"workers": 0}`,
		`{"thresholds": {"tmean_snr": {"lower": 10, "upper": 5}}}`,
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); !errors.Is(err, qa.ErrBadConfig) {
			t.Errorf("Load(%s): err = %v, want ErrBadConfig", content, err)
		}
	}
}

func TestMaskOptions(t *testing.T) {
	path := writeConfig(t, `{"erode_radius_mm": 4.5, "dilate_iterations": 3, "threshold_fraction": 0.2, "percentile": 95}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := cfg.MaskOptions()
	if opts.ErodeRadiusMM != 4.5 || opts.DilateIterations != 3 || opts.ThresholdFraction != 0.2 || opts.Percentile != 95 {
		t.Fatalf("MaskOptions = %+v", opts)
	}

	// an unset config leaves zero values for the mask builder's defaults
	if opts := Default().MaskOptions(); opts != (qa.MaskOptions{}) {
		t.Fatalf("default MaskOptions = %+v, want zero", opts)
	}
}

func TestGetThresholds(t *testing.T) {
	cfg := Default()
	table := cfg.GetThresholds()
	if _, ok := table["tmean_snr"]; !ok {
		t.Fatal("default thresholds missing tmean_snr")
	}

	path := writeConfig(t, `{"thresholds": {"tmean_snr": {"lower": 30, "upper": 500}}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table = cfg.GetThresholds()
	if b := table["tmean_snr"]; b.Lower != 30 || b.Upper != 500 {
		t.Fatalf("configured bounds = %+v", b)
	}
	// a configured table replaces the defaults entirely
	if _, ok := table["sig_drift_perc"]; ok {
		t.Fatal("configured table should not merge with defaults")
	}
}
