package georaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHillshadeFlat(t *testing.T) {
	r := newRaster(t, 3, 3, Int16, mustGeo(t, 0, 0, 1, -1), filled(9, 5))
	require.NoError(t, r.SetMask([]bool{true, false, false, false, false, false, false, false, false}))

	out, err := r.Hillshade(315, 45)
	require.NoError(t, err)
	assert.Equal(t, Float32, out.ElementType())
	for _, v := range band0(t, out) {
		// 平地的阴影值只取决于高度角：255*(sin(alt)+1)/2
		assert.InDelta(t, 217.656, v, 1e-3)
	}
	mask, _ := out.Mask()
	assert.True(t, mask[0])
}

func TestHillshadeSlopeFacesLight(t *testing.T) {
	// 高程向东递增，坡面朝西
	r := newRaster(t, 3, 3, Float32, mustGeo(t, 0, 0, 1, -1), []float64{0, 1, 2, 0, 1, 2, 0, 1, 2})
	west, err := r.Hillshade(270, 45)
	require.NoError(t, err)
	east, err := r.Hillshade(90, 45)
	require.NoError(t, err)
	assert.Greater(t, band0(t, west)[4], band0(t, east)[4])
}

func TestGradient(t *testing.T) {
	gy, gx := gradient([]float64{0, 1, 4, 0, 1, 4}, 3, 2)
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, gx)
	assert.Equal(t, make([]float64, 6), gy)
}

func TestCheckDEMInput(t *testing.T) {
	small := newRaster(t, 2, 3, Float32, mustGeo(t, 0, 0, 1, -1), filled(6, 1))
	assert.ErrorIs(t, checkDEMInput(small), ErrInvalidDimension)
	ok := newRaster(t, 3, 3, Float32, mustGeo(t, 0, 0, 1, -1), filled(9, 1))
	assert.NoError(t, checkDEMInput(ok))
}
