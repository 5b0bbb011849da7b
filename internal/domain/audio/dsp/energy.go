package dsp

import (
	"math"

	"ispeak-server-go/internal/utils"
)

// EnergySeries is a short-time RMS energy contour. Frame i covers samples
// [i*hop, i*hop+frameSize); a trailing partial frame is dropped.
type EnergySeries struct {
	Frames     []float64
	FrameSize  int
	Hop        int
	SampleRate int
}

// NewEnergySeries computes the RMS energy of each full frame.
func NewEnergySeries(samples []float64, sampleRate, frameSize, hop int) *EnergySeries {
	es := &EnergySeries{
		FrameSize:  frameSize,
		Hop:        hop,
		SampleRate: sampleRate,
	}
	if frameSize <= 0 || hop <= 0 || len(samples) < frameSize {
		return es
	}
	n := (len(samples)-frameSize)/hop + 1
	es.Frames = make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		var sum float64
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		es.Frames[i] = math.Sqrt(sum / float64(frameSize))
	}
	return es
}

// FrameDuration is the hop interval in seconds, the time step between
// consecutive frame starts.
func (es *EnergySeries) FrameDuration() float64 {
	if es.SampleRate <= 0 {
		return 0
	}
	return float64(es.Hop) / float64(es.SampleRate)
}

// Stats returns the mean and population standard deviation of the contour.
func (es *EnergySeries) Stats() (mean, stdev float64) {
	return utils.MeanStdev(es.Frames)
}
