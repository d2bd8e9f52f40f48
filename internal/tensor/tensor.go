// Package tensor implements the quantization boundary between the
// floating-point pipeline interior and the model's 16-bit integer
// tensor interface. This is the only place in the pipeline that should
// ever see quantized samples.
package tensor

import "math"

// Shape is the fixed tensor shape the model expects: batch=1, channels=1,
// segment_size samples.
type Shape struct {
	SegmentSize int
}

// Encoded is a quantized [1, 1, segment_size] tensor of 16-bit signed
// samples, produced from a floating-point segment payload.
type Encoded struct {
	Shape Shape
	Data  []int16
}

// Encode quantizes a floating-point segment payload into an Encoded
// tensor of the configured segment size. If payload is longer than
// segmentSize only the first segmentSize samples are used; if shorter,
// the remainder is zero-padded.
func Encode(payload []float32, segmentSize int) Encoded {
	data := make([]int16, segmentSize)

	n := len(payload)
	if n > segmentSize {
		n = segmentSize
	}
	for i := 0; i < n; i++ {
		data[i] = quantize(payload[i])
	}
	// data[n:] stays zero from make.

	return Encoded{Shape: Shape{SegmentSize: segmentSize}, Data: data}
}

// quantize maps a float32 sample in [-1, 1] (clamped) to a 16-bit signed
// integer: round(clamp(x, -1, 1) * 32767).
func quantize(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	scaled := float64(x) * 32767.0
	return int16(math.Round(scaled))
}

// Decode dequantizes a raw 16-bit integer tensor payload (as returned by
// an inference session) back into floating-point samples: x = q / 32767.
func Decode(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, q := range data {
		out[i] = float32(q) / 32767.0
	}
	return out
}
