package gdalio

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gr "github.com/wgdzlh/georaster"
)

func testRaster(t *testing.T, elemType gr.ElementType, crs gr.CRS, band []float64, mask []bool) *gr.RasterDataset {
	t.Helper()
	grid, err := gr.NewGridBuffer(3, 2, elemType, [][]float64{band}, mask)
	require.NoError(t, err)
	geo, err := gr.NewGeoreference(110, 30, 0.5, -0.5, crs)
	require.NoError(t, err)
	nd := gr.NoData{}
	if mask != nil {
		nd = gr.NoDataValue(-1)
	}
	r, err := gr.NewRasterDataset(grid, geo, nd)
	require.NoError(t, err)
	return r
}

func TestGeoTiffRoundTrip(t *testing.T) {
	tb := NewToolbox(gr.DefaultConfig())
	path := filepath.Join(t.TempDir(), "ndvi.tif")
	mask := []bool{false, true, false, false, false, true}
	r := testRaster(t, gr.Int16, gr.EPSG(gr.UNIVERSAL_SRID), []float64{1, 0, 3, 4, 5, 0}, mask)
	require.NoError(t, tb.Save(r, path))

	out, err := tb.Load(path)
	require.NoError(t, err)
	assert.False(t, out.IsLoaded())
	assert.Equal(t, 3, out.Width())
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, gr.Int16, out.ElementType())
	assert.Equal(t, gr.UNIVERSAL_SRID, out.CRS().EPSG)
	assert.Equal(t, r.Georeference().GeoTransform(), out.Georeference().GeoTransform())

	got, err := out.Mask()
	require.NoError(t, err)
	assert.Equal(t, mask, got)
	assert.True(t, out.IsLoaded())
	band, err := out.Band(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 5}, []float64{band[0], band[3], band[4]})
}

func TestInt8RoundTrip(t *testing.T) {
	c := NewCodec(nil, nil)
	path := filepath.Join(t.TempDir(), "signed.tif")
	d := &gr.Decoded{
		Width: 3, Height: 1, BandCount: 1,
		ElementType:  gr.Int8,
		Bands:        [][]float64{{-128, -1, 127}},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, -1},
	}
	require.NoError(t, c.Encode(path, d))

	hdr, err := c.DecodeHeader(path)
	require.NoError(t, err)
	assert.Nil(t, hdr.Bands)
	assert.Equal(t, gr.Int8, hdr.ElementType)
	assert.True(t, hdr.CRS.IsZero())

	out, err := c.Decode(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-128, -1, 127}}, out.Bands)
}

func TestCodecErrors(t *testing.T) {
	c := NewCodec(nil, nil)
	dir := t.TempDir()
	err := c.Encode(filepath.Join(dir, "a.xyz"), &gr.Decoded{Width: 1, Height: 1, ElementType: gr.Uint8})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = c.Decode(filepath.Join(dir, "missing.tif"))
	assert.ErrorIs(t, err, ErrInvalidTif)

	// 目标格式不支持该数据类型，或目标目录不存在
	f32 := &gr.Decoded{
		Width: 1, Height: 1, BandCount: 1,
		ElementType:  gr.Float32,
		Bands:        [][]float64{{1.5}},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, -1},
	}
	err = c.Encode(filepath.Join(dir, "f.png"), f32)
	assert.ErrorIs(t, err, ErrTifWriteFailed)
	err = c.Encode(filepath.Join(dir, "no", "such", "f.tif"), f32)
	assert.ErrorIs(t, err, ErrTifWriteFailed)
	assert.NoError(t, c.Encode(filepath.Join(dir, "f.tif"), f32))

	_, err = toGdalType(gr.ElementType(99))
	assert.ErrorIs(t, err, gr.ErrUnsupportedElementType)

	assert.Equal(t, []string{"COMPRESS=LZW", "PIXELTYPE=SIGNEDBYTE"}, NewCodec(nil, []string{"COMPRESS=LZW"}).createOptions("GTiff", gr.Int8))
	assert.Nil(t, c.createOptions("PNG", gr.Int8))
}

func TestProjector(t *testing.T) {
	p := NewProjector(nil)
	pts := []orb.Point{{113, 30}, {0, 0}}
	out, err := p.Project(pts, gr.EPSG(gr.UNIVERSAL_SRID), gr.EPSG(gr.WEB_MERC_SRID))
	require.NoError(t, err)
	for i, pt := range pts {
		x, y := gr.Convert4326To3857(pt[0], pt[1])
		assert.InDelta(t, x, out[i][0], 1e-3)
		assert.InDelta(t, y, out[i][1], 1e-3)
	}

	same, err := p.Project(pts, gr.EPSG(4326), gr.EPSG(4326))
	require.NoError(t, err)
	assert.Equal(t, pts, same)

	utm, err := p.Project([]orb.Point{{117, 0}}, gr.EPSG(gr.UNIVERSAL_SRID), gr.UTM(50, false))
	require.NoError(t, err)
	assert.InDelta(t, 500000, utm[0][0], 1e-3)
	assert.InDelta(t, 0, utm[0][1], 1e-3)

	_, err = p.Project(pts, gr.CRS{}, gr.EPSG(3857))
	assert.ErrorIs(t, err, gr.ErrUnsupportedOperation)
}

func TestSrsCache(t *testing.T) {
	s := NewSrsCache()
	defer s.Destroy()
	ref, err := s.Ref(gr.EPSG(gr.WEB_MERC_SRID))
	require.NoError(t, err)
	again, err := s.Ref(gr.EPSG(gr.WEB_MERC_SRID))
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Len(t, s.refMap, 1)

	srid, err := s.Srid(ref)
	require.NoError(t, err)
	assert.Equal(t, gr.WEB_MERC_SRID, srid)

	wkt, err := s.WKT(gr.EPSG(4490))
	require.NoError(t, err)
	crs := s.CRSFromWKT(wkt)
	assert.Equal(t, 4490, crs.EPSG)
	assert.Equal(t, wkt, crs.WKT)

	assert.True(t, s.CRSFromWKT("  ").IsZero())
	wkt, err = s.WKT(gr.CRS{})
	assert.NoError(t, err)
	assert.Empty(t, wkt)
}

func TestDEMTool(t *testing.T) {
	if _, err := exec.LookPath(gr.DefaultDEMCommand); err != nil {
		t.Skip("gdaldem not installed")
	}
	cfg := gr.DefaultConfig()
	cfg.TmpDir = t.TempDir()
	tb := NewToolbox(cfg)
	geo, err := gr.NewGeoreference(500000, 3300000, 30, -30, gr.UTM(50, false))
	require.NoError(t, err)
	band := make([]float64, 25)
	for i := range band {
		band[i] = float64(i%5) * 30 // 沿x方向每格升高30米，坡度45度
	}
	grid, err := gr.NewGridBuffer(5, 5, gr.Float32, [][]float64{band}, nil)
	require.NoError(t, err)
	dem, err := gr.NewRasterDataset(grid, geo, gr.NoData{})
	require.NoError(t, err)

	slope, err := tb.Slope(context.Background(), gr.Loaded(dem))
	require.NoError(t, err)
	assert.Equal(t, 5, slope.Width())
	assert.Equal(t, 32650, slope.CRS().EPSG)
	out, err := slope.Band(0)
	require.NoError(t, err)
	assert.InDelta(t, 45, out[12], 1e-3)

	files, err := filepath.Glob(filepath.Join(cfg.TmpDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, files)

	cfg.DEMCommand = "no-such-gdaldem"
	_, err = NewDEMTool(cfg, NewCodec(nil, nil)).Process(context.Background(), gr.DEMSlope, dem)
	assert.ErrorIs(t, err, ErrDEMCommand)
}
