package dsp

import "ispeak-server-go/internal/utils"

// Prominences summarizes energy peaks that stand out from the contour.
type Prominences struct {
	Count     int
	DistMean  float64
	DistStdev float64
}

// FindProminences detects local maxima at least k standard deviations above
// the mean energy. Peak spacing statistics are reported in seconds; fewer
// than two peaks leave them at zero.
func FindProminences(es *EnergySeries, k float64) Prominences {
	var p Prominences
	if len(es.Frames) < 3 {
		return p
	}

	mean, std := utils.MeanStdev(es.Frames)
	thr := mean + k*std

	fd := es.FrameDuration()
	var peakTimes []float64
	for i := 1; i < len(es.Frames)-1; i++ {
		cur := es.Frames[i]
		if cur > es.Frames[i-1] && cur >= es.Frames[i+1] && cur >= thr {
			peakTimes = append(peakTimes, float64(i)*fd)
		}
	}

	p.Count = len(peakTimes)
	if len(peakTimes) < 2 {
		return p
	}
	dists := make([]float64, 0, len(peakTimes)-1)
	for i := 1; i < len(peakTimes); i++ {
		dists = append(dists, peakTimes[i]-peakTimes[i-1])
	}
	p.DistMean, p.DistStdev = utils.MeanStdev(dists)
	return p
}
