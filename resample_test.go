package georaster

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractByPixels(t *testing.T) {
	r := newRaster(t, 3, 3, Int16, mustGeo(t, 0, 0, 1, -1), seq(9))
	require.NoError(t, r.SetMask([]bool{false, false, false, false, true, false, false, false, false}))

	out, err := r.ExtractByPixels(1, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width())
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, []float64{4, 5, 7, 8}, band0(t, out))
	mask, err := out.Mask()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, false}, mask)
	geo := out.Georeference()
	assert.Equal(t, 1.0, geo.OriginX)
	assert.Equal(t, -1.0, geo.OriginY)

	out, err = r.ExtractByPixels(2, 0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, band0(t, out))

	for _, w := range [][4]int{{0, 0, 3, 0}, {-1, 0, 1, 1}, {2, 0, 1, 1}, {0, 2, 1, 1}} {
		_, err = r.ExtractByPixels(w[0], w[1], w[2], w[3])
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "%v", w)
	}
}

func TestCropSnapsOutward(t *testing.T) {
	r := newRaster(t, 4, 4, Float32, mustGeo(t, 0, 0, 1, -1), seq(16))
	out, err := r.Crop(orb.Bound{Min: orb.Point{0.5, -2.5}, Max: orb.Point{2.5, -0.5}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Width())
	assert.Equal(t, 3, out.Height())
	assert.Equal(t, []float64{0, 1, 2, 4, 5, 6, 8, 9, 10}, band0(t, out))

	// 超出栅格的部分被截掉
	out, err = r.Crop(orb.Bound{Min: orb.Point{-5, -1}, Max: orb.Point{1, 5}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Width())
	assert.Equal(t, 1, out.Height())
	assert.Equal(t, []float64{0}, band0(t, out))

	// 恰好落在像元边界时不外扩
	out, err = r.Crop(orb.Bound{Min: orb.Point{1, -3}, Max: orb.Point{3, -1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 9, 10}, band0(t, out))

	_, err = r.Crop(orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{11, 11}})
	assert.ErrorIs(t, err, ErrDisjointExtent)
}

func TestScale(t *testing.T) {
	r := newRaster(t, 2, 2, Float64, mustGeo(t, 0, 0, 2, -2), []float64{0, 1, 2, 3})
	require.NoError(t, r.SetMask([]bool{true, false, false, false}))

	out, err := r.Scale(2)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Width())
	assert.Equal(t, 4, out.Height())
	pw, ph := out.Resolution()
	assert.Equal(t, 1.0, pw)
	assert.Equal(t, -1.0, ph)
	b := band0(t, out)
	assert.Equal(t, 0.0, b[0])
	assert.Equal(t, 1.0, b[3])
	assert.Equal(t, 2.0, b[12])
	assert.Equal(t, 3.0, b[15])
	// 掩膜像元不参与插值，受其影响的像元一并标记为无效
	assert.Equal(t, 1.0, b[1])
	assert.InDelta(t, 9.0/5, b[5], 1e-12)
	mask, err := out.Mask()
	require.NoError(t, err)
	require.Len(t, mask, 16)
	assert.True(t, mask[0])
	assert.True(t, mask[1])
	assert.True(t, mask[2])
	assert.True(t, mask[5])
	assert.False(t, mask[3])
	assert.False(t, mask[15])
	assert.Equal(t, r.Bounds(), out.Bounds())

	_, err = r.Scale(0)
	assert.ErrorIs(t, err, ErrInvalidDimension)
	_, err = r.Scale(0.1)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestScaleIgnoresMaskedValues(t *testing.T) {
	r := newRaster(t, 4, 1, Float32, mustGeo(t, 0, 0, 1, -1), []float64{TopoNoData, 10, 10, 10})
	r.SetNoData(NoDataValue(TopoNoData))
	require.NoError(t, r.SetMask([]bool{true, false, false, false}))

	out, err := r.Scale(2)
	require.NoError(t, err)
	b := band0(t, out)
	mask, err := out.Mask()
	require.NoError(t, err)
	require.Len(t, mask, len(b))
	valid := 0
	for i, v := range b {
		if mask[i] {
			continue
		}
		valid++
		assert.InDelta(t, 10, v, 1e-4, "pixel %d", i)
	}
	assert.Positive(t, valid)
	assert.True(t, mask[1])
	assert.InDelta(t, 10, b[1], 1e-4)

	// 无掩膜时结果不变
	plain := newRaster(t, 4, 1, Float32, mustGeo(t, 0, 0, 1, -1), []float64{0, 10, 10, 10})
	out, err = plain.Scale(2)
	require.NoError(t, err)
	assert.InDelta(t, 10.0*3/7, band0(t, out)[1], 1e-4)
}

func TestScaleClampsNearZero(t *testing.T) {
	r := newRaster(t, 2, 1, Float64, mustGeo(t, 0, 0, 1, -1), []float64{1e-10, 5})
	out, err := r.ScaleWithEpsilon(1, 1e-8)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5}, band0(t, out))
	// 输入不变
	assert.Equal(t, 1e-10, band0(t, r)[0])
}

func TestSampleNearest(t *testing.T) {
	r := newRaster(t, 4, 4, Uint16, mustGeo(t, 0, 0, 1, -1), seq(16))
	out, err := r.SampleNearest(2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width())
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, []float64{0, 2, 8, 10}, band0(t, out))
	pw, ph := out.Resolution()
	assert.Equal(t, 2.0, pw)
	assert.Equal(t, -2.0, ph)

	_, err = r.SampleNearest(0, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
