package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeClampsAndQuantizes(t *testing.T) {
	enc := Encode([]float32{0, 1, -1, 1.5, -1.5, 0.5}, 6)
	assert.Equal(t, Shape{SegmentSize: 6}, enc.Shape)
	assert.Equal(t, []int16{0, 32767, -32767, 32767, -32767, 16384}, enc.Data)
}

func TestEncodePadsShortPayload(t *testing.T) {
	enc := Encode([]float32{1, 1}, 4)
	assert.Equal(t, []int16{32767, 32767, 0, 0}, enc.Data)
}

func TestEncodeTruncatesLongPayload(t *testing.T) {
	enc := Encode([]float32{1, 1, 1, 1}, 2)
	assert.Equal(t, []int16{32767, 32767}, enc.Data)
}

func TestDecodeIsExactAtGridPoints(t *testing.T) {
	out := Decode([]int16{32767, -32767, 0})
	assert.InDelta(t, 1.0, out[0], 1e-9)
	assert.InDelta(t, -1.0, out[1], 1e-9)
	assert.InDelta(t, 0.0, out[2], 1e-9)
}

func TestEncodeDecodeRoundTripWithinOneQuantizationStep(t *testing.T) {
	in := []float32{0.123456, -0.654321, 0.999, -0.999}
	enc := Encode(in, len(in))
	out := Decode(enc.Data)
	for i := range in {
		assert.InDelta(t, float64(in[i]), float64(out[i]), 1.0/32767.0)
	}
}
