// Package moco loads rigid-body motion parameter tables produced by the
// external registration step. Registration itself is not performed here;
// the pipeline only consumes its per-frame parameter output.
package moco

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Params holds per-frame rigid-body motion estimates relative to the
// reference frame (frame 0). Rotations are radians about x/y/z and
// translations are mm along x/y/z, matching the 6-column layout written by
// the registration tool (3 rotation columns followed by 3 translation
// columns). Read-only once loaded.
type Params struct {
	Rotations    [][3]float64
	Translations [][3]float64
}

// NFrames returns the number of frames in the table.
func (p *Params) NFrames() int { return len(p.Translations) }

// Zero returns an all-zero table for n frames, the output of a perfectly
// still acquisition. Used for synthetic phantoms and tests.
func Zero(n int) *Params {
	return &Params{
		Rotations:    make([][3]float64, n),
		Translations: make([][3]float64, n),
	}
}

// MaxAbsTranslation returns the maximum absolute displacement in mm along
// each axis across all frames.
func (p *Params) MaxAbsTranslation() [3]float64 {
	var m [3]float64
	for _, tr := range p.Translations {
		for i := 0; i < 3; i++ {
			if a := math.Abs(tr[i]); a > m[i] {
				m[i] = a
			}
		}
	}
	return m
}

// Load reads a whitespace-delimited 6-column motion parameter table, one
// row per frame.
func Load(path string) (*Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := &Params{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 6 {
			return nil, fmt.Errorf("motion table %s line %d: want 6 columns, got %d", path, line, len(fields))
		}
		var row [6]float64
		for i, fv := range fields {
			row[i], err = strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("motion table %s line %d: %w", path, line, err)
			}
		}
		p.Rotations = append(p.Rotations, [3]float64{row[0], row[1], row[2]})
		p.Translations = append(p.Translations, [3]float64{row[3], row[4], row[5]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Write persists the table in the same 6-column layout Load reads.
func Write(path string, p *Params) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := range p.Translations {
		r, tr := p.Rotations[i], p.Translations[i]
		fmt.Fprintf(w, "%0.6f %0.6f %0.6f %0.6f %0.6f %0.6f\n", r[0], r[1], r[2], tr[0], tr[1], tr[2])
	}
	return w.Flush()
}
