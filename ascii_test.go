package georaster

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAsc = `ncols 3
nrows 2
xllcenter 100.5
yllcenter 20.5
cellsize 1
NODATA_value -9999
1 2 -9999
4 5 6
`

func TestDecodeAsciiGrid(t *testing.T) {
	d, err := decodeAsciiGrid(strings.NewReader(sampleAsc))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Width)
	assert.Equal(t, 2, d.Height)
	assert.Equal(t, Int32, d.ElementType)
	assert.Equal(t, [6]float64{100, 1, 0, 22, 0, -1}, d.GeoTransform)
	assert.Equal(t, NoDataValue(-9999), d.NoData)
	assert.Equal(t, [][]float64{{1, 2, -9999, 4, 5, 6}}, d.Bands)
}

func TestDecodeAsciiGridTypes(t *testing.T) {
	head := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ndx 2\ndy 1\n"
	d, err := decodeAsciiGrid(strings.NewReader(head + "1.5 2.0\n"))
	require.NoError(t, err)
	assert.Equal(t, Float32, d.ElementType)
	assert.Equal(t, [6]float64{0, 2, 0, 1, 0, -1}, d.GeoTransform)

	d, err = decodeAsciiGrid(strings.NewReader(head + "0.1 2\n"))
	require.NoError(t, err)
	assert.Equal(t, Float64, d.ElementType)
}

func TestDecodeAsciiGridErrors(t *testing.T) {
	_, err := decodeAsciiGrid(strings.NewReader("ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n"))
	assert.ErrorIs(t, err, ErrInvalidDimension)
	_, err = decodeAsciiGrid(strings.NewReader("ncols 1\nnrows 1\ncellsize 1\n1\n"))
	assert.Error(t, err)
	_, err = decodeAsciiGrid(strings.NewReader("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nfoo 1\n1\n"))
	assert.Error(t, err)
	_, err = decodeAsciiGrid(strings.NewReader("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 0\n1\n"))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestAsciiGridRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.asc")
	src := &Decoded{
		Width:        2,
		Height:       2,
		BandCount:    1,
		ElementType:  Float32,
		Bands:        [][]float64{{1, 2.5, -9999, 4}},
		GeoTransform: [6]float64{10, 0.5, 0, 20, 0, -0.5},
		CRS:          EPSG(4326),
		NoData:       NoDataValue(-9999),
	}
	var codec AsciiGridCodec
	require.NoError(t, codec.Encode(path, src))
	prj, err := os.ReadFile(filepath.Join(filepath.Dir(path), "dem.prj"))
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", string(prj))

	d, err := codec.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bands, d.Bands)
	assert.Equal(t, src.GeoTransform, d.GeoTransform)
	assert.Equal(t, src.NoData, d.NoData)
	assert.Equal(t, Float32, d.ElementType)
	assert.True(t, d.CRS.Equal(EPSG(4326)))

	// 无坐标系时删除旧的.prj
	src.CRS = CRS{}
	require.NoError(t, codec.Encode(path, src))
	_, err = os.Stat(filepath.Join(filepath.Dir(path), "dem.prj"))
	assert.True(t, os.IsNotExist(err))
}

func TestAsciiGridKeepsElementType(t *testing.T) {
	dir := t.TempDir()
	tb := NewToolbox(DefaultConfig())
	geo := mustGeo(t, 0, 0, 1, -1)
	cases := []struct {
		elemType ElementType
		band     []float64
	}{
		{Float64, []float64{1.5, 2, 3, 4}},
		{Float64, []float64{1, 2, 3, 4}},
		{Float32, []float64{1, 2, 3, 4}},
		{Uint8, []float64{0, 1, 200, 255}},
		{Int16, []float64{-300, 0, 7, 32767}},
		{Uint32, []float64{0, 1, 3000000000, 4}},
	}
	for _, c := range cases {
		path := filepath.Join(dir, c.elemType.String()+".asc")
		r := newRaster(t, 2, 2, c.elemType, geo, append([]float64(nil), c.band...))
		require.NoError(t, tb.Save(r, path))

		out, err := tb.Load(path)
		require.NoError(t, err)
		assert.Equal(t, c.elemType, out.ElementType(), c.elemType.String())
		assert.Equal(t, c.band, band0(t, out), c.elemType.String())
	}

	aux, err := os.ReadFile(filepath.Join(dir, "Int16.aux.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "element_type: Int16\n", string(aux))
}

func TestAsciiGridAuxFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.asc")
	head := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n"
	require.NoError(t, os.WriteFile(path, []byte(head+"1.5 300\n"), 0o644))
	var codec AsciiGridCodec

	// 无.aux.yaml时按文本推断
	d, err := codec.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, Float32, d.ElementType)

	// 按.aux.yaml中的类型截断与饱和
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.aux.yaml"), []byte("element_type: uint8\n"), 0o644))
	d, err = codec.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, Uint8, d.ElementType)
	assert.Equal(t, [][]float64{{1, 255}}, d.Bands)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.aux.yaml"), []byte("element_type: complex64\n"), 0o644))
	_, err = codec.Decode(path)
	assert.ErrorIs(t, err, ErrUnsupportedElementType)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.aux.yaml"), []byte("element_type: [\n"), 0o644))
	_, err = codec.Decode(path)
	assert.Error(t, err)
}

func TestAsciiGridEncodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.asc")
	var codec AsciiGridCodec
	err := codec.Encode(path, &Decoded{Width: 1, Height: 1, Bands: [][]float64{{1}, {2}},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, -1}})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	err = codec.Encode(path, &Decoded{Width: 1, Height: 1, Bands: [][]float64{{1}},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, 1}})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", formatValue(3, Int16))
	assert.Equal(t, "3.0", formatValue(3, Float32))
	assert.Equal(t, "2.5", formatValue(2.5, Float64))
	assert.Equal(t, "NaN", formatValue(math.NaN(), Float64))
}
