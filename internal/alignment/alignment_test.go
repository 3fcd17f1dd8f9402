package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorAlign(t *testing.T) {
	in := [3]int32{1, 2, 3}
	tests := []struct {
		align SensorAlign
		want  [3]int32
	}{
		{CW0, [3]int32{1, 2, 3}},
		{CW90, [3]int32{2, -1, 3}},
		{CW180, [3]int32{-1, -2, 3}},
		{CW270, [3]int32{-2, 1, 3}},
		{CW0Flip, [3]int32{-1, 2, -3}},
		{CW90Flip, [3]int32{2, 1, -3}},
		{CW180Flip, [3]int32{1, -2, -3}},
		{CW270Flip, [3]int32{-2, -1, -3}},
	}
	for _, tt := range tests {
		v := in
		New(tt.align, CW0, BoardAngles{}).Align(&v)
		assert.Equal(t, tt.want, v, "align %d", tt.align)
	}
}

func TestDefaultUsesDriverAlignment(t *testing.T) {
	v := [3]int32{1, 2, 3}
	New(AlignDefault, CW270Flip, BoardAngles{}).Align(&v)
	assert.Equal(t, [3]int32{-2, -1, -3}, v)

	var zero Aligner
	v = [3]int32{1, 2, 3}
	zero.Align(&v)
	assert.Equal(t, [3]int32{1, 2, 3}, v)
}

func TestBoardRotation(t *testing.T) {
	t.Run("yaw 90 matches cw90", func(t *testing.T) {
		a := [3]int32{100, -40, 7}
		b := a
		New(CW0, CW0, BoardAngles{Yaw: 90}).Align(&a)
		New(CW90, CW0, BoardAngles{}).Align(&b)
		assert.Equal(t, b, a)
	})

	t.Run("roll 180 flips y and z", func(t *testing.T) {
		v := [3]int32{100, -40, 7}
		New(CW0, CW0, BoardAngles{Roll: 180}).Align(&v)
		assert.Equal(t, [3]int32{100, 40, -7}, v)
	})

	t.Run("rotation keeps magnitude", func(t *testing.T) {
		v := [3]int32{1000, 0, 0}
		New(CW0, CW0, BoardAngles{Roll: 10, Pitch: 20, Yaw: 30}).Align(&v)
		n := int64(v[0])*int64(v[0]) + int64(v[1])*int64(v[1]) + int64(v[2])*int64(v[2])
		assert.InDelta(t, 1_000_000, n, 3000)
	})
}

func TestParseSensorAlign(t *testing.T) {
	for name, want := range alignNames {
		got, err := ParseSensorAlign(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := ParseSensorAlign("CW180_FLIP")
	require.NoError(t, err)
	assert.Equal(t, CW180Flip, got)

	got, err = ParseSensorAlign("")
	require.NoError(t, err)
	assert.Equal(t, AlignDefault, got)

	_, err = ParseSensorAlign("upside")
	assert.Error(t, err)
}
