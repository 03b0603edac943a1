package georaster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

// 内存中的编解码器，记录调用次数
type memCodec struct {
	files   map[string]*Decoded
	decodes int
	headers int
}

func newMemCodec() *memCodec {
	return &memCodec{files: map[string]*Decoded{}}
}

func (m *memCodec) Decode(path string) (*Decoded, error) {
	m.decodes++
	d, ok := m.files[path]
	if !ok {
		return nil, errors.Errorf("no such file %s", path)
	}
	c := *d
	c.Bands = make([][]float64, len(d.Bands))
	for i, b := range d.Bands {
		c.Bands[i] = append([]float64(nil), b...)
	}
	return &c, nil
}

func (m *memCodec) Encode(path string, d *Decoded) error {
	m.files[path] = d
	return nil
}

type lazyMemCodec struct {
	*memCodec
}

func (l lazyMemCodec) DecodeHeader(path string) (*Decoded, error) {
	l.headers++
	d, ok := l.files[path]
	if !ok {
		return nil, errors.Errorf("no such file %s", path)
	}
	h := *d
	h.BandCount = len(d.Bands)
	h.Bands = nil
	return &h, nil
}

type stubDEM struct {
	ops []DEMOperation
}

func (s *stubDEM) Process(_ context.Context, op DEMOperation, src *RasterDataset) (*RasterDataset, error) {
	s.ops = append(s.ops, op)
	return src.Clone()
}

func sampleDecoded() *Decoded {
	return &Decoded{
		Width:        2,
		Height:       2,
		ElementType:  Int16,
		Bands:        [][]float64{{1, 2, 3, -1}},
		GeoTransform: [6]float64{0, 1, 0, 0, 0, -1},
		CRS:          EPSG(4326),
		NoData:       NoDataValue(-1),
	}
}

func TestToolboxLazyLoad(t *testing.T) {
	codec := lazyMemCodec{newMemCodec()}
	codec.files["a.bin"] = sampleDecoded()
	tb := NewToolbox(DefaultConfig(), WithCodec(codec, ".BIN"))

	r, err := tb.Load("a.bin")
	require.NoError(t, err)
	assert.False(t, r.IsLoaded())
	assert.Equal(t, 2, r.Width())
	assert.Equal(t, 1, r.NumBands())
	assert.Equal(t, Int16, r.ElementType())
	assert.Equal(t, 1, codec.headers)
	assert.Equal(t, 0, codec.decodes)

	b, err := r.Band(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, -1}, b)
	assert.True(t, r.IsLoaded())
	mask, err := r.Mask()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true}, mask)

	_, err = r.Band(0)
	require.NoError(t, err)
	assert.Equal(t, 1, codec.decodes)
}

func TestToolboxLazyLoadFailure(t *testing.T) {
	codec := lazyMemCodec{newMemCodec()}
	codec.files["a.bin"] = sampleDecoded()
	tb := NewToolbox(DefaultConfig(), WithCodec(codec, ".bin"))
	r, err := tb.Load("a.bin")
	require.NoError(t, err)

	delete(codec.files, "a.bin")
	_, err = r.Grid()
	assert.ErrorIs(t, err, ErrCodec)
	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "decode", ce.Op)
	assert.Equal(t, "a.bin", ce.Path)
}

func TestToolboxSaveLoad(t *testing.T) {
	codec := newMemCodec()
	tb := NewToolbox(DefaultConfig(), WithCodec(codec, ".bin"))
	r, err := FromDecoded(sampleDecoded(), false)
	require.NoError(t, err)

	require.NoError(t, tb.Save(r, "out.bin"))
	saved := codec.files["out.bin"]
	require.NotNil(t, saved)
	assert.Equal(t, NoDataValue(-1), saved.NoData)

	loaded, err := tb.Load("out.bin")
	require.NoError(t, err)
	assert.True(t, loaded.IsLoaded())
	assert.Equal(t, []float64{1, 2, 3, -1}, band0(t, loaded))
	assert.True(t, loaded.CRS().Equal(EPSG(4326)))
}

func TestToolboxSaveMaskWithoutNoData(t *testing.T) {
	codec := newMemCodec()
	nd := -5.0
	cfg := DefaultConfig()
	cfg.DefaultNoData = &nd
	tb := NewToolbox(cfg, WithCodec(codec, ".bin"))

	r := newRaster(t, 2, 1, Int16, mustGeo(t, 0, 0, 1, -1), []float64{7, 8})
	require.NoError(t, r.SetMask([]bool{false, true}))
	require.NoError(t, tb.Save(r, "m.bin"))
	saved := codec.files["m.bin"]
	assert.Equal(t, NoDataValue(-5), saved.NoData)
	assert.Equal(t, [][]float64{{7, -5}}, saved.Bands)
	// 源数据集不变
	assert.Equal(t, []float64{7, 8}, band0(t, r))
}

func TestToolboxZeroNoData(t *testing.T) {
	codec := newMemCodec()
	d := sampleDecoded()
	d.NoData = NoDataValue(0)
	codec.files["z.bin"] = d

	tb := NewToolbox(DefaultConfig(), WithCodec(codec, ".bin"))
	r, err := tb.Load("z.bin")
	require.NoError(t, err)
	assert.False(t, r.NoData().Valid)

	cfg := DefaultConfig()
	cfg.KeepZeroNoData = true
	tb = NewToolbox(cfg, WithCodec(codec, ".bin"))
	r, err = tb.Load("z.bin")
	require.NoError(t, err)
	assert.Equal(t, NoDataValue(0), r.NoData())
}

func TestToolboxErrors(t *testing.T) {
	tb := NewToolbox(DefaultConfig(), WithCodec(newMemCodec(), ".bin"))

	_, err := tb.Load("a.xyz")
	assert.ErrorIs(t, err, ErrNoCodec)
	_, err = tb.Load("missing.bin")
	assert.ErrorIs(t, err, ErrCodec)
	_, err = tb.Resolve(RasterInput{})
	assert.ErrorIs(t, err, ErrEmptyRaster)

	r := newRaster(t, 3, 3, Float32, mustGeo(t, 0, 0, 1, -1), filled(9, 1))
	_, err = tb.Slope(context.Background(), Loaded(r))
	assert.ErrorIs(t, err, ErrNoCollaborator)
}

func TestToolboxResolveAndMath(t *testing.T) {
	dir := t.TempDir()
	tb := NewToolbox(DefaultConfig())
	a := newRaster(t, 2, 2, Int32, mustGeo(t, 0, 0, 1, -1), []float64{1, 2, 3, 4})
	path := filepath.Join(dir, "a.asc")
	require.NoError(t, tb.Save(a, path))

	in := PathRef(path)
	assert.Equal(t, path, in.Path())
	assert.Nil(t, in.Dataset())

	out, err := tb.Math(OpMultiply, in, Loaded(a))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 9, 16}, band0(t, out))

	out, err = tb.MathScalar(OpAdd, in, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12, 13, 14}, band0(t, out))

	scaled, err := tb.Scale(Loaded(a), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, scaled.Width())

	shade, err := tb.Hillshade(Loaded(newRaster(t, 3, 3, Float32, mustGeo(t, 0, 0, 1, -1), filled(9, 1))), 315, 45)
	require.NoError(t, err)
	assert.Equal(t, Float32, shade.ElementType())
}

func TestToolboxDEM(t *testing.T) {
	dem := &stubDEM{}
	tb := NewToolbox(DefaultConfig(), WithDEMProcessor(dem))
	r := newRaster(t, 3, 3, Float32, mustGeo(t, 0, 0, 1, -1), seq(9))
	ctx := context.Background()

	_, err := tb.Slope(ctx, Loaded(r))
	require.NoError(t, err)
	_, err = tb.Aspect(ctx, Loaded(r))
	require.NoError(t, err)
	_, err = tb.TRI(ctx, Loaded(r))
	require.NoError(t, err)
	_, err = tb.TPI(ctx, Loaded(r))
	require.NoError(t, err)
	_, err = tb.Roughness(ctx, Loaded(r))
	require.NoError(t, err)
	assert.Equal(t, []DEMOperation{DEMSlope, DEMAspect, DEMTRI, DEMTPI, DEMRoughness}, dem.ops)

	small := newRaster(t, 2, 2, Float32, mustGeo(t, 0, 0, 1, -1), seq(4))
	_, err = tb.Slope(ctx, Loaded(small))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestNewToolboxKeepsGlobalLogger(t *testing.T) {
	prev := log.L()
	defer log.Set(prev)
	l := zap.NewNop()
	log.Set(l)

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	NewToolbox(cfg)
	assert.Same(t, l, log.L())

	cfg.LogLevel = "no-such-level"
	NewToolbox(cfg)
	assert.Same(t, l, log.L())
}
