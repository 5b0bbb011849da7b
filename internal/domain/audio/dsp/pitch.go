package dsp

import (
	"math"

	"ispeak-server-go/internal/utils"
)

// PitchParams controls autocorrelation pitch tracking.
type PitchParams struct {
	FrameSize int
	Hop       int

	// ACF lag search band.
	FloorHz float64
	CeilHz  float64

	// Band of plausible speaking pitch; estimates outside it are discarded
	// from the statistics.
	RangeFloorHz float64
	RangeCeilHz  float64

	// Minimum normalized autocorrelation for a frame to count as voiced.
	ConfidenceGate float64

	// RMS gate; frames quieter than this are skipped entirely.
	EnergyGate float64
}

// PitchStats summarizes the voiced pitch contour in Hz.
type PitchStats struct {
	Mean  float64
	Stdev float64
	Range float64
}

// AnalyzePitch estimates per-frame pitch over the clip and aggregates the
// voiced, in-band estimates. A clip with no usable frames yields all zeros.
func AnalyzePitch(samples []float64, sampleRate int, p PitchParams) PitchStats {
	var stats PitchStats
	if p.FrameSize <= 0 || p.Hop <= 0 || sampleRate <= 0 || len(samples) < p.FrameSize {
		return stats
	}

	var voiced []float64
	n := (len(samples)-p.FrameSize)/p.Hop + 1
	for i := 0; i < n; i++ {
		frame := samples[i*p.Hop : i*p.Hop+p.FrameSize]
		if frameRMS(frame) < p.EnergyGate {
			continue
		}
		hz := estimatePitch(frame, sampleRate, p.FloorHz, p.CeilHz, p.ConfidenceGate)
		if hz >= p.RangeFloorHz && hz <= p.RangeCeilHz {
			voiced = append(voiced, hz)
		}
	}
	if len(voiced) == 0 {
		return stats
	}

	stats.Mean, stats.Stdev = utils.MeanStdev(voiced)
	lo, hi := voiced[0], voiced[0]
	for _, v := range voiced[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	stats.Range = hi - lo
	return stats
}

func frameRMS(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// estimatePitch runs normalized autocorrelation on a mean-removed, Hann
// windowed frame. Returns 0 when no lag clears the confidence gate.
func estimatePitch(frame []float64, sampleRate int, floorHz, ceilHz, gate float64) float64 {
	n := len(frame)
	if n < 2 || floorHz <= 0 || ceilHz <= 0 {
		return 0
	}

	var mean float64
	for _, s := range frame {
		mean += s
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, s := range frame {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		x[i] = (s - mean) * w
	}

	var r0 float64
	for _, v := range x {
		r0 += v * v
	}
	if r0 == 0 {
		return 0
	}

	kmin := int(math.Floor(float64(sampleRate) / ceilHz))
	if kmin < 1 {
		kmin = 1
	}
	kmax := int(math.Floor(float64(sampleRate) / floorHz))
	if kmax > n-1 {
		kmax = n - 1
	}

	bestLag := 0
	bestVal := math.Inf(-1)
	for lag := kmin; lag <= kmax; lag++ {
		var r float64
		for i := 0; i+lag < n; i++ {
			r += x[i] * x[i+lag]
		}
		if r > bestVal {
			bestVal = r
			bestLag = lag
		}
	}

	if bestLag <= 0 || bestVal/r0 < gate {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}
