package georaster

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

type lazySource struct {
	path  string
	codec Codec
}

// 带地理参考的多波段栅格，独占其像元缓冲区；除Set*外的变换均返回新的数据集
type RasterDataset struct {
	mu       sync.Mutex
	grid     *GridBuffer // 延迟加载时为nil
	src      *lazySource
	geo      Georeference
	nodata   NoData
	width    int
	height   int
	numBands int
	elemType ElementType
}

// 由缓冲区与地理参考构建数据集，grid归数据集所有
func NewRasterDataset(grid *GridBuffer, geo Georeference, nodata NoData) (r *RasterDataset, err error) {
	if grid == nil {
		err = errors.Wrap(ErrEmptyRaster, "nil grid")
		return
	}
	if geo.PixelWidth == 0 || geo.PixelHeight == 0 {
		err = errors.Wrapf(ErrInvalidDimension, "pixel size (%v, %v)", geo.PixelWidth, geo.PixelHeight)
		return
	}
	r = newDataset(grid, geo, nodata)
	return
}

func newDataset(grid *GridBuffer, geo Georeference, nodata NoData) *RasterDataset {
	return &RasterDataset{
		grid:     grid,
		geo:      geo,
		nodata:   nodata,
		width:    grid.width,
		height:   grid.height,
		numBands: len(grid.bands),
		elemType: grid.elemType,
	}
}

// 编解码器的nodata为0时视为未配置，keepZero为true时保留
func codecNoData(nd NoData, keepZero bool) NoData {
	if nd.Valid && nd.Value == 0 && !keepZero {
		return NoData{}
	}
	return nd
}

// 由解码结果构建数据集，掩膜由第1波段中等于nodata的像元得出
func FromDecoded(d *Decoded, keepZeroNoData bool) (r *RasterDataset, err error) {
	geo, err := FromGeoTransform(d.GeoTransform, d.CRS)
	if err != nil {
		return
	}
	nodata := codecNoData(d.NoData, keepZeroNoData)
	grid, err := NewGridBuffer(d.Width, d.Height, d.ElementType, d.Bands, nil)
	if err != nil {
		return
	}
	grid.mask = deriveMask(grid.bands[0], nodata)
	r = newDataset(grid, geo, nodata)
	return
}

// 由头信息构建延迟加载的数据集，像元数据在首次访问时经codec读取
func newLazyDataset(hdr *Decoded, path string, codec Codec, keepZero bool) (r *RasterDataset, err error) {
	numBands := hdr.BandCount
	if numBands == 0 {
		numBands = len(hdr.Bands)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || numBands <= 0 {
		err = errors.Wrapf(ErrInvalidDimension, "header of %s: %dx%dx%d", path, hdr.Width, hdr.Height, numBands)
		return
	}
	geo, err := FromGeoTransform(hdr.GeoTransform, hdr.CRS)
	if err != nil {
		return
	}
	r = &RasterDataset{
		src:      &lazySource{path: path, codec: codec},
		geo:      geo,
		nodata:   codecNoData(hdr.NoData, keepZero),
		width:    hdr.Width,
		height:   hdr.Height,
		numBands: numBands,
		elemType: hdr.ElementType,
	}
	return
}

func deriveMask(band []float64, nodata NoData) (mask []bool) {
	if !nodata.Valid {
		return
	}
	for i, v := range band {
		if !nodata.Matches(v) {
			continue
		}
		if mask == nil {
			mask = make([]bool, len(band))
		}
		mask[i] = true
	}
	return
}

func (r *RasterDataset) ensureLoaded() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grid != nil {
		return
	}
	if r.src == nil {
		return ErrEmptyRaster
	}
	log.Debug("RasterDataset:materialize bands", zap.String("path", r.src.path))
	d, err := r.src.codec.Decode(r.src.path)
	if err != nil {
		err = codecErr("decode", r.src.path, err)
		return
	}
	if d.Width != r.width || d.Height != r.height {
		err = codecErr("decode", r.src.path, errors.Wrapf(ErrInvalidDimension,
			"header %dx%d, data %dx%d", r.width, r.height, d.Width, d.Height))
		return
	}
	grid, err := NewGridBuffer(d.Width, d.Height, d.ElementType, d.Bands, nil)
	if err != nil {
		err = codecErr("decode", r.src.path, err)
		return
	}
	grid.mask = deriveMask(grid.bands[0], r.nodata)
	r.grid = grid
	r.numBands = len(grid.bands)
	r.elemType = grid.elemType
	r.src = nil
	return
}

func (r *RasterDataset) IsLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid != nil
}

func (r *RasterDataset) Width() int {
	return r.width
}

func (r *RasterDataset) Height() int {
	return r.height
}

func (r *RasterDataset) NumBands() int {
	return r.numBands
}

func (r *RasterDataset) ElementType() ElementType {
	return r.elemType
}

func (r *RasterDataset) Georeference() Georeference {
	return r.geo
}

func (r *RasterDataset) CRS() CRS {
	return r.geo.CRS
}

// 像元大小（宽，高），高通常为负
func (r *RasterDataset) Resolution() (float64, float64) {
	return r.geo.PixelWidth, r.geo.PixelHeight
}

func (r *RasterDataset) Bounds() orb.Bound {
	return r.geo.Bounds(r.width, r.height)
}

func (r *RasterDataset) NoData() NoData {
	return r.nodata
}

func (r *RasterDataset) SetNoData(nd NoData) {
	r.nodata = nd
}

func (r *RasterDataset) SetCRS(crs CRS) {
	r.geo.CRS = crs
}

func (r *RasterDataset) SetUTM(zone int, south bool) {
	r.geo.CRS = UTM(zone, south)
}

// 整体替换地理参考
func (r *RasterDataset) SetGeoreference(geo Georeference) (err error) {
	if geo.PixelWidth == 0 || geo.PixelHeight == 0 {
		err = errors.Wrapf(ErrInvalidDimension, "pixel size (%v, %v)", geo.PixelWidth, geo.PixelHeight)
		return
	}
	r.geo = geo
	return
}

// 像元缓冲区，首次访问时加载
func (r *RasterDataset) Grid() (grid *GridBuffer, err error) {
	if err = r.ensureLoaded(); err != nil {
		return
	}
	grid = r.grid
	return
}

// 全部波段，与数据集共享存储
func (r *RasterDataset) Bands() (bands [][]float64, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	bands = grid.bands
	return
}

func (r *RasterDataset) Band(index int) (band []float64, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	return grid.Band(index)
}

// 有效性掩膜，nil表示全部有效
func (r *RasterDataset) Mask() (mask []bool, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	mask = grid.mask
	return
}

// 见GridBuffer.SetMask
func (r *RasterDataset) SetMask(mask []bool, fill ...float64) (err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	return grid.SetMask(mask, fill...)
}

// 整体替换像元缓冲区，宽高与波段数随之更新
func (r *RasterDataset) SetGrid(grid *GridBuffer) (err error) {
	if grid == nil {
		return errors.Wrap(ErrEmptyRaster, "nil grid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grid = grid
	r.src = nil
	r.width = grid.width
	r.height = grid.height
	r.numBands = len(grid.bands)
	r.elemType = grid.elemType
	return
}

// 以新的宽高与波段数据整体替换缓冲区，元素类型不变，掩膜清空
func (r *RasterDataset) SetBands(width, height int, bands [][]float64) (err error) {
	grid, err := NewGridBuffer(width, height, r.elemType, bands, nil)
	if err != nil {
		return
	}
	return r.SetGrid(grid)
}

// 深拷贝
func (r *RasterDataset) Clone() (c *RasterDataset, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	c = newDataset(grid.Clone(), r.geo, r.nodata)
	return
}

// 生成同地理参考、指定形状与类型的全零数据集
func (r *RasterDataset) emptyLike(width, height, bandCount int, elemType ElementType, geo Georeference) (out *RasterDataset, err error) {
	grid, err := Allocate(width, height, bandCount, elemType)
	if err != nil {
		return
	}
	nodata := r.nodata
	if nodata.Valid && !nodata.Matches(elemType.Coerce(nodata.Value)) {
		// 新类型无法表示原nodata值
		nodata = NoData{}
	}
	out = newDataset(grid, geo, nodata)
	return
}

// 转为编码用的内容：掩膜像元写为nodata。有掩膜而无nodata时，使用defaultNoData或类型默认值
func (r *RasterDataset) ToDecoded(defaultNoData *float64) (d *Decoded, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	nodata := r.nodata
	if grid.mask != nil && !nodata.Valid {
		v := r.elemType.DefaultNoData()
		if defaultNoData != nil {
			v = r.elemType.Coerce(*defaultNoData)
		}
		nodata = NoDataValue(v)
	}
	c := grid.Clone()
	if c.mask != nil {
		_ = c.SetMask(nil, nodata.Value)
	}
	d = &Decoded{
		Width:        c.width,
		Height:       c.height,
		BandCount:    len(c.bands),
		ElementType:  c.elemType,
		Bands:        c.bands,
		GeoTransform: r.geo.GeoTransform(),
		CRS:          r.geo.CRS,
		NoData:       nodata,
	}
	return
}
