package dsp

import "math"

// Segment is a speech region in seconds.
type Segment struct {
	Start float64
	End   float64
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

func minPauseFrames(es *EnergySeries, minPauseMs int) int {
	fd := es.FrameDuration()
	if fd <= 0 {
		return 1
	}
	n := int(math.Floor(float64(minPauseMs) / 1000 / fd))
	if n < 1 {
		n = 1
	}
	return n
}

// PauseCount counts silence runs: consecutive frames below threshold lasting
// at least minPauseMs. A run still open at the end of the clip counts.
func PauseCount(es *EnergySeries, threshold float64, minPauseMs int) int {
	minFrames := minPauseFrames(es, minPauseMs)
	count := 0
	run := 0
	for _, e := range es.Frames {
		if e < threshold {
			run++
			continue
		}
		if run >= minFrames {
			count++
		}
		run = 0
	}
	if run >= minFrames {
		count++
	}
	return count
}

// DBPauseCount counts pauses on a decibel scale: frames within topDb of the
// loudest frame are speech, and gaps between speech intervals longer than
// minGapSec count as pauses. Fewer than two speech intervals means no gap.
func DBPauseCount(es *EnergySeries, topDb, minGapSec float64) int {
	if len(es.Frames) == 0 {
		return 0
	}
	db := make([]float64, len(es.Frames))
	maxDb := math.Inf(-1)
	for i, e := range es.Frames {
		db[i] = 20 * math.Log10(e+1e-12)
		if db[i] > maxDb {
			maxDb = db[i]
		}
	}
	thr := maxDb - topDb

	type interval struct{ start, end int }
	var intervals []interval
	open := false
	var cur interval
	for i, d := range db {
		if d >= thr {
			if !open {
				cur = interval{start: i, end: i}
				open = true
			} else {
				cur.end = i
			}
			continue
		}
		if open {
			intervals = append(intervals, cur)
			open = false
		}
	}
	if open {
		intervals = append(intervals, cur)
	}
	if len(intervals) < 2 {
		return 0
	}

	fd := es.FrameDuration()
	count := 0
	for i := 1; i < len(intervals); i++ {
		gap := float64(intervals[i].start-intervals[i-1].end-1) * fd
		if gap > minGapSec {
			count++
		}
	}
	return count
}

// SpeechSegments splits the contour into speech regions. A segment closes
// once silence persists for minPauseMs and is kept only when at least
// minSegmentMs long. When nothing clears the gate the whole clip is returned
// as a single segment, so downstream rates never divide by zero.
func SpeechSegments(es *EnergySeries, totalDuration, threshold float64, minPauseMs, minSegmentMs int) []Segment {
	fd := es.FrameDuration()
	minFrames := minPauseFrames(es, minPauseMs)
	minSeg := float64(minSegmentMs) / 1000

	var segments []Segment
	inSpeech := false
	segStart := 0
	silence := 0
	for i, e := range es.Frames {
		if e >= threshold {
			if !inSpeech {
				inSpeech = true
				segStart = i
			}
			silence = 0
			continue
		}
		if !inSpeech {
			continue
		}
		silence++
		if silence >= minFrames {
			endFrame := i - silence + 1
			seg := Segment{Start: float64(segStart) * fd, End: float64(endFrame) * fd}
			if seg.Duration() >= minSeg {
				segments = append(segments, seg)
			}
			inSpeech = false
			silence = 0
		}
	}
	if inSpeech {
		seg := Segment{
			Start: float64(segStart) * fd,
			End:   float64(len(es.Frames)) * fd,
		}
		if seg.Duration() >= minSeg {
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return []Segment{{Start: 0, End: totalDuration}}
	}
	return segments
}

// LongPauseDuration sums the length of every silence run that qualifies as a
// pause, in seconds.
func LongPauseDuration(es *EnergySeries, threshold float64, minPauseMs int) float64 {
	minFrames := minPauseFrames(es, minPauseMs)
	fd := es.FrameDuration()
	total := 0
	run := 0
	for _, e := range es.Frames {
		if e < threshold {
			run++
			continue
		}
		if run >= minFrames {
			total += run
		}
		run = 0
	}
	if run >= minFrames {
		total += run
	}
	return float64(total) * fd
}
