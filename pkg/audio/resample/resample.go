// ABOUTME: Band-limited sample rate conversion using a windowed-sinc kernel
// ABOUTME: Pure functions over whole buffers; output length is round(n*dst/src)
package resample

import (
	"fmt"
	"math"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// halfTaps is the one-sided kernel width in zero crossings at the output
// Nyquist. Wider means a sharper transition band and more CPU per sample.
const halfTaps = 16

// Resample converts buf from srcRate to dstRate, each channel independently.
// Equal rates return a copy. Rates must be positive.
func Resample(buf audio.Buffer, srcRate, dstRate int) (audio.Buffer, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: sample rates must be positive (%d -> %d)",
			audio.ErrContract, srcRate, dstRate)
	}

	out := make(audio.Buffer, len(buf))
	for ch := range buf {
		resampled, err := ResampleChannel(buf[ch], srcRate, dstRate)
		if err != nil {
			return nil, err
		}
		out[ch] = resampled
	}
	return out, nil
}

// ResampleChannel converts a single channel from srcRate to dstRate.
// The output holds round(len(in) * dstRate / srcRate) samples.
func ResampleChannel(in []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: sample rates must be positive (%d -> %d)",
			audio.ErrContract, srcRate, dstRate)
	}

	if srcRate == dstRate {
		return append([]float32(nil), in...), nil
	}

	n := len(in)
	outLen := int(math.Round(float64(n) * float64(dstRate) / float64(srcRate)))
	out := make([]float32, outLen)
	if n == 0 || outLen == 0 {
		return out, nil
	}

	// When downsampling, the kernel is stretched so its cutoff sits at the
	// destination Nyquist instead of the source's.
	scale := 1.0
	if dstRate < srcRate {
		scale = float64(dstRate) / float64(srcRate)
	}
	support := float64(halfTaps) / scale
	step := float64(srcRate) / float64(dstRate)

	for i := 0; i < outLen; i++ {
		center := float64(i) * step

		lo := int(math.Ceil(center - support))
		hi := int(math.Floor(center + support))
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}

		var acc, norm float64
		for j := lo; j <= hi; j++ {
			d := float64(j) - center
			w := sinc(scale*d) * hann(d/support)
			acc += w * float64(in[j])
			norm += w
		}
		// Normalizing keeps unity gain at DC, including at the edges where
		// the kernel is clipped.
		if norm != 0 {
			out[i] = float32(acc / norm)
		}
	}
	return out, nil
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hann is the window evaluated at t in [-1, 1].
func hann(t float64) float64 {
	if t <= -1 || t >= 1 {
		return 0
	}
	return 0.5 + 0.5*math.Cos(math.Pi*t)
}
