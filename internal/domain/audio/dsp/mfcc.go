package dsp

import (
	"math"

	"ispeak-server-go/internal/utils"
)

const melFilterCount = 26

// MFCCMatrix computes one row of cepstral coefficients per frame. When
// maxDurationSec is positive the input is truncated to that length first,
// which keeps paired comparisons over a common time span.
func MFCCMatrix(samples []float64, sampleRate, frameSize, hop, coefficients int, maxDurationSec float64) [][]float64 {
	if maxDurationSec > 0 {
		limit := int(maxDurationSec * float64(sampleRate))
		if limit < len(samples) {
			samples = samples[:limit]
		}
	}
	if frameSize <= 0 || hop <= 0 || coefficients <= 0 || len(samples) < frameSize {
		return nil
	}

	fftSize := nextPow2(frameSize)
	filters := melFilterbank(melFilterCount, fftSize, sampleRate)
	window := hannWindow(frameSize)

	n := (len(samples)-frameSize)/hop + 1
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		frame := samples[i*hop : i*hop+frameSize]
		out = append(out, mfccFrame(frame, window, filters, fftSize, coefficients))
	}
	return out
}

// MFCCRobustPercent collapses the cepstral stream into one 0..100 scalar:
// the mean per-frame coefficient magnitude of voiced frames, scaled between
// the 5th and 95th percentile of those magnitudes. No voiced frames yields 0.
func MFCCRobustPercent(samples []float64, sampleRate, frameSize, hop, coefficients int, energyGate float64) float64 {
	if frameSize <= 0 || hop <= 0 || len(samples) < frameSize {
		return 0
	}

	fftSize := nextPow2(frameSize)
	filters := melFilterbank(melFilterCount, fftSize, sampleRate)
	window := hannWindow(frameSize)

	var mags []float64
	n := (len(samples)-frameSize)/hop + 1
	for i := 0; i < n; i++ {
		frame := samples[i*hop : i*hop+frameSize]
		if frameRMS(frame) < energyGate {
			continue
		}
		coefs := mfccFrame(frame, window, filters, fftSize, coefficients)
		var sum float64
		for _, c := range coefs {
			sum += math.Abs(c)
		}
		mags = append(mags, sum/float64(len(coefs)))
	}
	if len(mags) == 0 {
		return 0
	}

	mean, _ := utils.MeanStdev(mags)
	lo := utils.Percentile(mags, 5)
	hi := utils.Percentile(mags, 95)
	if hi <= lo {
		hi = lo + 1e-6
	}
	pct := (mean - lo) / (hi - lo) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

func mfccFrame(frame, window []float64, filters [][]float64, fftSize, coefficients int) []float64 {
	re := make([]float64, fftSize)
	im := make([]float64, fftSize)
	for i, s := range frame {
		re[i] = s * window[i]
	}
	fft(re, im)

	bins := fftSize/2 + 1
	power := make([]float64, bins)
	for i := 0; i < bins; i++ {
		power[i] = re[i]*re[i] + im[i]*im[i]
	}

	logEnergies := make([]float64, len(filters))
	for m, filter := range filters {
		var e float64
		for i, w := range filter {
			e += power[i] * w
		}
		logEnergies[m] = math.Log(e + 1e-10)
	}

	return dct2(logEnergies, coefficients)
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// fft is an in-place iterative radix-2 transform; len(re) must be a power
// of two.
func fft(re, im []float64) {
	n := len(re)
	// bit reversal
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(ang), math.Sin(ang)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			half := length / 2
			for k := 0; k < half; k++ {
				even, odd := start+k, start+k+half
				tRe := re[odd]*curRe - im[odd]*curIm
				tIm := re[odd]*curIm + im[odd]*curRe
				re[odd] = re[even] - tRe
				im[odd] = im[even] - tIm
				re[even] += tRe
				im[even] += tIm
				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// melFilterbank builds triangular filters over the power-spectrum bins,
// spaced evenly on the mel scale from 0 Hz to Nyquist.
func melFilterbank(filterCount, fftSize, sampleRate int) [][]float64 {
	bins := fftSize/2 + 1
	melLo := hzToMel(0)
	melHi := hzToMel(float64(sampleRate) / 2)

	points := make([]int, filterCount+2)
	for i := range points {
		mel := melLo + (melHi-melLo)*float64(i)/float64(filterCount+1)
		points[i] = int(math.Floor((float64(fftSize) + 1) * melToHz(mel) / float64(sampleRate)))
		if points[i] > bins-1 {
			points[i] = bins - 1
		}
	}

	filters := make([][]float64, filterCount)
	for m := 1; m <= filterCount; m++ {
		filter := make([]float64, bins)
		left, center, right := points[m-1], points[m], points[m+1]
		for k := left; k < center; k++ {
			if center > left {
				filter[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right && k < bins; k++ {
			if right > center {
				filter[k] = float64(right-k) / float64(right-center)
			} else if k == center {
				filter[k] = 1
			}
		}
		filters[m-1] = filter
	}
	return filters
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// dct2 applies an orthogonality-free type-II DCT, keeping the first
// `coefficients` terms.
func dct2(input []float64, coefficients int) []float64 {
	m := len(input)
	out := make([]float64, coefficients)
	for k := 0; k < coefficients; k++ {
		var sum float64
		for i, v := range input {
			sum += v * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(m))
		}
		out[k] = sum
	}
	return out
}
