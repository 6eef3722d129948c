package qa

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// DetrendFit is an exponential + linear model fitted to one region series:
//
//	s(t) = A*exp(-t/Tau) + B*t + C
//
// Residuals are the observed minus fitted values. Sigma is a robust
// (MAD-based) estimate of the residual standard deviation, and Spikes
// counts residuals more than 5 sigma from zero. Detrended is the residual
// series with the constant offset restored, suitable for plotting next to
// the raw series.
type DetrendFit struct {
	A, Tau, B, C float64
	Fitted       []float64
	Residuals    []float64
	Detrended    []float64
	Sigma        float64
	Spikes       int
}

// DetrendSeries fits the exp+linear drift model to a series by least
// squares. Series containing NaN (an empty mask region) or shorter than
// four frames cannot be fitted and return ErrInvalidInput.
func DetrendSeries(series []float64) (*DetrendFit, error) {
	n := len(series)
	if n < 4 {
		return nil, fmt.Errorf("detrend needs at least 4 frames, got %d: %w", n, ErrInvalidInput)
	}
	for _, s := range series {
		if math.IsNaN(s) {
			return nil, fmt.Errorf("detrend: series contains NaN: %w", ErrInvalidInput)
		}
	}

	mean := stat.Mean(series, nil)

	// Sum of squared residuals of the demeaned series against
	// a*exp(-t/tau) + b*t. Non-positive tau is rejected outright.
	sse := func(x []float64) float64 {
		a, tau, b := x[0], x[1], x[2]
		if tau <= 1e-9 {
			return math.Inf(1)
		}
		var ss float64
		for t := 0; t < n; t++ {
			ft := a*math.Exp(-float64(t)/tau) + b*float64(t)
			d := (series[t] - mean) - ft
			ss += d * d
		}
		return ss
	}

	// Start from a short-decay transient and the end-to-end slope.
	x0 := []float64{
		series[0] - mean,
		float64(n) / 3,
		(series[n-1] - series[0]) / float64(n),
	}
	result, err := optimize.Minimize(optimize.Problem{Func: sse}, x0, nil, &optimize.NelderMead{})
	if err != nil {
		// Fall back to the flat model rather than failing the run; the
		// residuals then measure departure from the series mean.
		result = &optimize.Result{Location: optimize.Location{X: []float64{0, 1, 0}}}
	}

	a, tau, b := result.Location.X[0], result.Location.X[1], result.Location.X[2]
	fit := &DetrendFit{
		A:         a,
		Tau:       tau,
		B:         b,
		C:         mean,
		Fitted:    make([]float64, n),
		Residuals: make([]float64, n),
		Detrended: make([]float64, n),
	}
	for t := 0; t < n; t++ {
		fit.Fitted[t] = a*math.Exp(-float64(t)/tau) + b*float64(t) + mean
		fit.Residuals[t] = series[t] - fit.Fitted[t]
		fit.Detrended[t] = fit.Residuals[t] + mean
	}

	// Robust residual sigma: MAD * 1.4826 assumes Gaussian noise plus
	// sparse outlier spikes.
	abs := make([]float64, n)
	for i, r := range fit.Residuals {
		abs[i] = math.Abs(r)
	}
	sort.Float64s(abs)
	fit.Sigma = stat.Quantile(0.5, stat.Empirical, abs, nil) * 1.4826

	for _, r := range fit.Residuals {
		if math.Abs(r) > 5*fit.Sigma {
			fit.Spikes++
		}
	}
	return fit, nil
}

// Detrend fits the drift model to each region column. A column that cannot
// be fitted (NaN from an empty region) yields a nil entry, and its spike
// metric downstream becomes inconclusive.
type Detrend struct {
	Phantom *DetrendFit
	Nyquist *DetrendFit
	Noise   *DetrendFit
}

// DetrendTimeSeries fits every region column of ts.
func DetrendTimeSeries(ts *TimeSeries) *Detrend {
	d := &Detrend{}
	if fit, err := DetrendSeries(ts.Phantom); err == nil {
		d.Phantom = fit
	}
	if fit, err := DetrendSeries(ts.Nyquist); err == nil {
		d.Nyquist = fit
	}
	if fit, err := DetrendSeries(ts.Noise); err == nil {
		d.Noise = fit
	}
	return d
}

// Fit returns the fitted model for a region label, or nil.
func (d *Detrend) Fit(label float64) *DetrendFit {
	switch label {
	case LabelPhantom:
		return d.Phantom
	case LabelNyquist:
		return d.Nyquist
	case LabelNoise:
		return d.Noise
	}
	return nil
}

// DetrendedTimeSeries assembles the detrended columns into a TimeSeries for
// persistence alongside the raw table. Unfittable columns keep their raw
// values.
func (d *Detrend) DetrendedTimeSeries(raw *TimeSeries) *TimeSeries {
	out := &TimeSeries{
		Phantom: append([]float64(nil), raw.Phantom...),
		Nyquist: append([]float64(nil), raw.Nyquist...),
		Noise:   append([]float64(nil), raw.Noise...),
	}
	if d.Phantom != nil {
		copy(out.Phantom, d.Phantom.Detrended)
	}
	if d.Nyquist != nil {
		copy(out.Nyquist, d.Nyquist.Detrended)
	}
	if d.Noise != nil {
		copy(out.Noise, d.Noise.Detrended)
	}
	return out
}
