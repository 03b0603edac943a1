package georaster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustGeo(t *testing.T, originX, originY, pixelWidth, pixelHeight float64) Georeference {
	t.Helper()
	geo, err := NewGeoreference(originX, originY, pixelWidth, pixelHeight, EPSG(UNIVERSAL_SRID))
	require.NoError(t, err)
	return geo
}

func newRaster(t *testing.T, w, h int, elemType ElementType, geo Georeference, bands ...[]float64) *RasterDataset {
	t.Helper()
	grid, err := NewGridBuffer(w, h, elemType, bands, nil)
	require.NoError(t, err)
	r, err := NewRasterDataset(grid, geo, NoData{})
	require.NoError(t, err)
	return r
}

func filled(n int, v float64) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func seq(n int) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = float64(i)
	}
	return b
}

func band0(t *testing.T, r *RasterDataset) []float64 {
	t.Helper()
	b, err := r.Band(0)
	require.NoError(t, err)
	return b
}
