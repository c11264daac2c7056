package embed

import (
	"fmt"
	"math"
	"math/cmplx"

	appErr "github.com/xxxsen/tunebox/internal/pkg/errors"
)

const (
	frameSize   = 2048
	hopSize     = 512
	numBands    = 13
	numChroma   = 12
	rolloffPart = 0.85
	minTempo    = 60
	maxTempo    = 200
)

// AudioFeatureDim is the length of the vector returned by ExtractAudioFeatures.
const AudioFeatureDim = numBands + numChroma + 3 + 3 + 1

// AudioInput is mono PCM in [-1, 1].
type AudioInput struct {
	Samples    []float32
	SampleRate int
}

// ExtractAudioFeatures summarises a clip as frame means of log band
// energies, chroma, spectral centroid / rolloff / flatness, zero crossing
// rate, RMS mean and deviation, and a tempo estimate divided by 200.
func ExtractAudioFeatures(samples []float32, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 || len(samples) < frameSize {
		return nil, fmt.Errorf("%w: audio clip too short", appErr.ErrInvalid)
	}
	window := hann(frameSize)
	nyquist := float64(sampleRate) / 2
	edges := bandEdges(60, math.Min(8000, nyquist), numBands)

	bands := make([]float64, numBands)
	chroma := make([]float64, numChroma)
	var centroid, rolloff, flatness, zcr float64
	rms := make([]float64, 0, len(samples)/hopSize)

	buf := make([]complex128, frameSize)
	mags := make([]float64, frameSize/2+1)
	frames := 0
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		frame := samples[start : start+frameSize]
		var energy float64
		crossings := 0
		for i, s := range frame {
			v := float64(s)
			energy += v * v
			if i > 0 && (frame[i-1] >= 0) != (s >= 0) {
				crossings++
			}
			buf[i] = complex(v*window[i], 0)
		}
		rms = append(rms, math.Sqrt(energy/frameSize))
		zcr += float64(crossings) / frameSize

		fft(buf)
		var total, weighted, logSum float64
		for k := range mags {
			mags[k] = cmplx.Abs(buf[k])
			total += mags[k]
			weighted += mags[k] * binFreq(k, sampleRate)
			logSum += math.Log(mags[k] + 1e-10)
		}
		frameChroma := make([]float64, numChroma)
		var chromaTotal float64
		for k := 1; k < len(mags); k++ {
			f := binFreq(k, sampleRate)
			power := mags[k] * mags[k]
			if b := bandIndex(edges, f); b >= 0 {
				bands[b] += math.Log1p(power)
			}
			if f >= 27.5 && f <= 5000 {
				midi := 69 + 12*math.Log2(f/440)
				pc := ((int(math.Round(midi)) % numChroma) + numChroma) % numChroma
				frameChroma[pc] += power
				chromaTotal += power
			}
		}
		if chromaTotal > 0 {
			for i := range frameChroma {
				chroma[i] += frameChroma[i] / chromaTotal
			}
		}
		if total > 0 {
			centroid += weighted / total / nyquist
			var cum float64
			for k := range mags {
				cum += mags[k]
				if cum >= rolloffPart*total {
					rolloff += binFreq(k, sampleRate) / nyquist
					break
				}
			}
			mean := total / float64(len(mags))
			flatness += math.Exp(logSum/float64(len(mags))) / (mean + 1e-10)
		}
		frames++
	}

	n := float64(frames)
	out := make([]float32, 0, AudioFeatureDim)
	for _, b := range bands {
		out = append(out, float32(b/n))
	}
	for _, c := range chroma {
		out = append(out, float32(c/n))
	}
	out = append(out, float32(centroid/n), float32(rolloff/n), float32(flatness/n))
	rmsMean, rmsStd := meanStd(rms)
	out = append(out, float32(zcr/n), float32(rmsMean), float32(rmsStd))
	out = append(out, float32(estimateTempo(rms, float64(sampleRate)/hopSize)/maxTempo))
	return out, nil
}

func binFreq(k, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / frameSize
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func bandEdges(lo, hi float64, n int) []float64 {
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lo * math.Pow(hi/lo, float64(i)/float64(n))
	}
	return edges
}

func bandIndex(edges []float64, f float64) int {
	if f < edges[0] || f >= edges[len(edges)-1] {
		return -1
	}
	for i := 0; i < len(edges)-1; i++ {
		if f < edges[i+1] {
			return i
		}
	}
	return -1
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// estimateTempo autocorrelates the positive RMS flux and returns the best
// BPM in [minTempo, maxTempo], or 0 when the clip is too short to tell.
func estimateTempo(rms []float64, frameRate float64) float64 {
	if len(rms) < 3 {
		return 0
	}
	onset := make([]float64, len(rms))
	for i := 1; i < len(rms); i++ {
		if d := rms[i] - rms[i-1]; d > 0 {
			onset[i] = d
		}
	}
	best, bestScore := 0.0, 0.0
	for bpm := minTempo; bpm <= maxTempo; bpm++ {
		lag := int(math.Round(frameRate * 60 / float64(bpm)))
		if lag <= 0 || lag >= len(onset) {
			continue
		}
		var score float64
		for i := lag; i < len(onset); i++ {
			score += onset[i] * onset[i-lag]
		}
		if score > bestScore {
			best, bestScore = float64(bpm), score
		}
	}
	return best
}

// fft is an in-place iterative radix-2 transform; len(x) must be a power of two.
func fft(x []complex128) {
	n := len(x)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		step := cmplx.Rect(1, -2*math.Pi/float64(size))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < size/2; k++ {
				a, b := start+k, start+k+size/2
				t := w * x[b]
				x[b] = x[a] - t
				x[a] += t
				w *= step
			}
		}
	}
}
