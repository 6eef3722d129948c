// Package meta parses the scan acquisition metadata that accompanies each
// phantom scan directory.
package meta

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ScanInfo is the acquisition metadata exported by the DICOM conversion
// step as a plain key/value text file.
type ScanInfo struct {
	ScannerSerial string  // scanner serial number
	AcqDate       string  // acquisition date, YYYYMMDD
	FreqMHz       float64 // RF centre frequency
	TRms          float64 // repetition time in ms
	NumVolumes    int     // acquired frame count
}

// Load reads a scan info file: one "key value" pair per line. Unknown keys
// are ignored so the converter can add fields without breaking older
// readers.
func Load(path string) (*ScanInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &ScanInfo{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("scan info %s line %d: want 'key value', got %q", path, line, text)
		}
		value = strings.TrimSpace(value)

		switch key {
		case "scanner_serial":
			info.ScannerSerial = value
		case "acq_date":
			info.AcqDate = value
		case "rf_freq_mhz":
			info.FreqMHz, err = strconv.ParseFloat(value, 64)
		case "tr_ms":
			info.TRms, err = strconv.ParseFloat(value, 64)
		case "num_volumes":
			info.NumVolumes, err = strconv.Atoi(value)
		}
		if err != nil {
			return nil, fmt.Errorf("scan info %s line %d (%s): %w", path, line, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return info, nil
}

// Write persists a scan info file in the format Load reads.
func Write(path string, info *ScanInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "scanner_serial %s\n", info.ScannerSerial)
	fmt.Fprintf(w, "acq_date %s\n", info.AcqDate)
	fmt.Fprintf(w, "rf_freq_mhz %0.4f\n", info.FreqMHz)
	fmt.Fprintf(w, "tr_ms %0.1f\n", info.TRms)
	fmt.Fprintf(w, "num_volumes %d\n", info.NumVolumes)
	return w.Flush()
}
