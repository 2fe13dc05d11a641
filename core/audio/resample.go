package audio

import (
	"fmt"
	"math"
)

// Resample converts mono PCM16 samples between sample rates using linear
// interpolation.
func Resample(samples []int16, fromRate, toRate int) ([]int16, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: from=%d, to=%d", fromRate, toRate)
	}

	if len(samples) == 0 {
		return []int16{}, nil
	}

	if fromRate == toRate {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, nil
	}

	ratio := float64(fromRate) / float64(toRate)
	length := int(float64(len(samples)) / ratio)
	if length <= 0 {
		return []int16{}, nil
	}

	out := make([]int16, length)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}

		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = clampInt16(a + frac*(b-a))
	}

	return out, nil
}

func clampInt16(v float64) int16 {
	v = math.Round(v)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// downmix averages interleaved channels into one.
func downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}

	out := make([]int16, len(interleaved)/channels)
	for i := range out {
		sum := 0
		for ch := range channels {
			sum += int(interleaved[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
