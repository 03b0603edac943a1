package georaster

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
	"github.com/wgdzlh/georaster/utils"
)

// 栅格工具箱：按扩展名选择编解码器，并持有坐标转换、DEM分析等外部协作者
type Toolbox struct {
	cfg       Config
	codecs    map[string]Codec
	projector Projector
	dem       DEMProcessor
	logTag    string
}

type Option func(*Toolbox)

// 为扩展名（如".tif"）注册编解码器，覆盖已有注册
func WithCodec(codec Codec, exts ...string) Option {
	return func(t *Toolbox) {
		for _, ext := range exts {
			t.codecs[strings.ToLower(ext)] = codec
		}
	}
}

func WithProjector(p Projector) Option {
	return func(t *Toolbox) {
		t.projector = p
	}
}

func WithDEMProcessor(d DEMProcessor) Option {
	return func(t *Toolbox) {
		t.dem = d
	}
}

// 初始化工具箱，默认注册.asc编解码器与Web墨卡托坐标转换。不改动全局日志，日志级别由调用方经log.Init设置
func NewToolbox(cfg Config, opts ...Option) *Toolbox {
	cfg.fill()
	t := &Toolbox{
		cfg:       cfg,
		codecs:    map[string]Codec{FILE_EXT_ASC: AsciiGridCodec{}},
		projector: MercatorProjector{},
		logTag:    "RasterToolbox:",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Toolbox) Config() Config {
	return t.cfg
}

func (t *Toolbox) codecFor(path string) (codec Codec, err error) {
	ext := utils.GetFileExt(path)
	codec, ok := t.codecs[ext]
	if !ok {
		err = errors.Wrapf(ErrNoCodec, "%q (%s)", ext, path)
	}
	return
}

// 加载栅格。编解码器支持只读头信息时，像元数据延迟到首次访问时读取
func (t *Toolbox) Load(path string) (r *RasterDataset, err error) {
	codec, err := t.codecFor(path)
	if err != nil {
		return
	}
	if hd, ok := codec.(HeaderDecoder); ok {
		var hdr *Decoded
		if hdr, err = hd.DecodeHeader(path); err != nil {
			log.Error(t.logTag+"decode raster header failed", zap.String("path", path), zap.Error(err))
			err = codecErr("decode", path, err)
			return
		}
		r, err = newLazyDataset(hdr, path, codec, t.cfg.KeepZeroNoData)
		if err == nil {
			log.Info(t.logTag+"raster opened", zap.String("path", path), zap.Int("width", r.width),
				zap.Int("height", r.height), zap.Int("bands", r.numBands))
		}
		return
	}
	d, err := codec.Decode(path)
	if err != nil {
		log.Error(t.logTag+"decode raster failed", zap.String("path", path), zap.Error(err))
		err = codecErr("decode", path, err)
		return
	}
	if r, err = FromDecoded(d, t.cfg.KeepZeroNoData); err != nil {
		err = codecErr("decode", path, err)
		return
	}
	log.Info(t.logTag+"raster loaded", zap.String("path", path), zap.Int("width", r.width),
		zap.Int("height", r.height), zap.Int("bands", r.numBands), zap.Stringer("type", r.elemType))
	return
}

// 保存栅格，掩膜以nodata值写出
func (t *Toolbox) Save(r *RasterDataset, path string) (err error) {
	codec, err := t.codecFor(path)
	if err != nil {
		return
	}
	d, err := r.ToDecoded(t.cfg.DefaultNoData)
	if err != nil {
		return
	}
	if d.NoData.Valid && d.NoData.Value == 0 && !t.cfg.KeepZeroNoData {
		log.Warn(t.logTag+"nodata 0 will be dropped on reload", zap.String("path", path))
	}
	if err = codec.Encode(path, d); err != nil {
		log.Error(t.logTag+"encode raster failed", zap.String("path", path), zap.Error(err))
		err = codecErr("encode", path, err)
		return
	}
	log.Info(t.logTag+"raster saved", zap.String("path", path), zap.Int("width", d.Width),
		zap.Int("height", d.Height), zap.Int("bands", d.BandCount))
	return
}

// 将输入解析为数据集：已加载的直接返回，路径则经编解码器加载
func (t *Toolbox) Resolve(in RasterInput) (*RasterDataset, error) {
	if in.ds != nil {
		return in.ds, nil
	}
	if in.path == "" {
		return nil, errors.Wrap(ErrEmptyRaster, "empty raster input")
	}
	return t.Load(in.path)
}

// 两个栅格输入的逐像元运算
func (t *Toolbox) Math(op Operation, a, b RasterInput) (out *RasterDataset, err error) {
	ra, err := t.Resolve(a)
	if err != nil {
		return
	}
	rb, err := t.Resolve(b)
	if err != nil {
		return
	}
	return ra.Math(op, Raster(rb))
}

// 栅格与标量的逐像元运算
func (t *Toolbox) MathScalar(op Operation, a RasterInput, s float64) (out *RasterDataset, err error) {
	ra, err := t.Resolve(a)
	if err != nil {
		return
	}
	return ra.Math(op, Scalar(s))
}

// 按配置的零值容差缩放
func (t *Toolbox) Scale(in RasterInput, zoom float64) (out *RasterDataset, err error) {
	r, err := t.Resolve(in)
	if err != nil {
		return
	}
	return r.ScaleWithEpsilon(zoom, t.cfg.ZeroEpsilon)
}

func (t *Toolbox) Hillshade(in RasterInput, azimuth, altitude float64) (out *RasterDataset, err error) {
	r, err := t.Resolve(in)
	if err != nil {
		return
	}
	return r.Hillshade(azimuth, altitude)
}

func (t *Toolbox) demProcess(ctx context.Context, op DEMOperation, in RasterInput) (out *RasterDataset, err error) {
	if t.dem == nil {
		err = errors.Wrapf(ErrNoCollaborator, "dem processor for %s", op)
		return
	}
	r, err := t.Resolve(in)
	if err != nil {
		return
	}
	if err = checkDEMInput(r); err != nil {
		return
	}
	log.Info(t.logTag+"start dem processing", zap.String("op", string(op)))
	if out, err = t.dem.Process(ctx, op, r); err != nil {
		log.Error(t.logTag+"dem processing failed", zap.String("op", string(op)), zap.Error(err))
	}
	return
}

// 坡度（度）
func (t *Toolbox) Slope(ctx context.Context, in RasterInput) (*RasterDataset, error) {
	return t.demProcess(ctx, DEMSlope, in)
}

// 坡向（度）
func (t *Toolbox) Aspect(ctx context.Context, in RasterInput) (*RasterDataset, error) {
	return t.demProcess(ctx, DEMAspect, in)
}

// 地形崎岖指数
func (t *Toolbox) TRI(ctx context.Context, in RasterInput) (*RasterDataset, error) {
	return t.demProcess(ctx, DEMTRI, in)
}

// 地形位置指数
func (t *Toolbox) TPI(ctx context.Context, in RasterInput) (*RasterDataset, error) {
	return t.demProcess(ctx, DEMTPI, in)
}

func (t *Toolbox) Roughness(ctx context.Context, in RasterInput) (*RasterDataset, error) {
	return t.demProcess(ctx, DEMRoughness, in)
}
