package gdalio

import (
	"strings"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/log"
	"github.com/wgdzlh/georaster/utils"
)

const (
	MEM_DRIVER_NAME = "MEM"

	// GDAL 3.7起的有符号8位类型
	gdtInt8 = gdal.DataType(14)

	signedBytePixelType = "SIGNEDBYTE"
)

var (
	ErrGdalDriverCreate  = errors.New("gdal driver create err")
	ErrInvalidTif        = errors.New("invalid raster file")
	ErrTifReadFailed     = errors.New("raster read failed")
	ErrTifWriteFailed    = errors.New("raster write failed")
	ErrUnsupportedFormat = errors.New("unsupported raster format")
)

// 扩展名对应的GDAL驱动
var driverByExt = map[string]string{
	gr.FILE_EXT_TIF:  "GTiff",
	gr.FILE_EXT_TIFF: "GTiff",
	gr.FILE_EXT_IMG:  "HFA",
	gr.FILE_EXT_PNG:  "PNG",
	gr.FILE_EXT_JPG:  "JPEG",
	".jpeg":          "JPEG",
	gr.FILE_EXT_ASC:  "AAIGrid",
}

// GDAL栅格编解码器
type Codec struct {
	srs       *SrsCache
	gtiffOpts []string
	logTag    string
}

func NewCodec(srs *SrsCache, gtiffOpts []string) *Codec {
	if srs == nil {
		srs = NewSrsCache()
	}
	return &Codec{
		srs:       srs,
		gtiffOpts: gtiffOpts,
		logTag:    "GdalCodec:",
	}
}

func toElementType(dt gdal.DataType, band gdal.RasterBand) (t gr.ElementType, err error) {
	switch dt {
	case gdal.Byte:
		t = gr.Uint8
		if band.MetadataItem("PIXELTYPE", "IMAGE_STRUCTURE") == signedBytePixelType {
			t = gr.Int8
		}
	case gdtInt8:
		t = gr.Int8
	case gdal.UInt16:
		t = gr.Uint16
	case gdal.Int16:
		t = gr.Int16
	case gdal.UInt32:
		t = gr.Uint32
	case gdal.Int32:
		t = gr.Int32
	case gdal.Float32:
		t = gr.Float32
	case gdal.Float64:
		t = gr.Float64
	default:
		err = errors.Wrapf(gr.ErrUnsupportedElementType, "gdal data type %d", dt)
	}
	return
}

// Int8以Byte存储，创建时带PIXELTYPE=SIGNEDBYTE
func toGdalType(t gr.ElementType) (dt gdal.DataType, err error) {
	switch t {
	case gr.Int8, gr.Uint8:
		dt = gdal.Byte
	case gr.Uint16:
		dt = gdal.UInt16
	case gr.Int16:
		dt = gdal.Int16
	case gr.Uint32:
		dt = gdal.UInt32
	case gr.Int32:
		dt = gdal.Int32
	case gr.Float32:
		dt = gdal.Float32
	case gr.Float64:
		dt = gdal.Float64
	default:
		err = errors.Wrapf(gr.ErrUnsupportedElementType, "element type %s", t)
	}
	return
}

func (c *Codec) readHeader(ds gdal.Dataset) (d *gr.Decoded, err error) {
	n := ds.RasterCount()
	if n == 0 {
		err = errors.Wrap(ErrInvalidTif, "no band")
		return
	}
	band := ds.RasterBand(1)
	elemType, err := toElementType(band.RasterDataType(), band)
	if err != nil {
		return
	}
	d = &gr.Decoded{
		Width:        ds.RasterXSize(),
		Height:       ds.RasterYSize(),
		BandCount:    n,
		ElementType:  elemType,
		GeoTransform: ds.GeoTransform(),
		CRS:          c.srs.CRSFromWKT(ds.Projection()),
	}
	if nodata, ok := band.NoDataValue(); ok {
		d.NoData = gr.NoDataValue(nodata)
	}
	return
}

func (c *Codec) open(path string) (ds gdal.Dataset, err error) {
	ds, err = gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		log.Error(c.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		err = errors.Wrapf(ErrInvalidTif, "%s: %v", path, err)
	}
	return
}

// 只读取头信息
func (c *Codec) DecodeHeader(path string) (d *gr.Decoded, err error) {
	ds, err := c.open(path)
	if err != nil {
		return
	}
	defer ds.Close()
	return c.readHeader(ds)
}

// 读取全部波段
func (c *Codec) Decode(path string) (d *gr.Decoded, err error) {
	ds, err := c.open(path)
	if err != nil {
		return
	}
	defer ds.Close()
	if d, err = c.readHeader(ds); err != nil {
		return
	}
	log.Info(c.logTag+"start read raster", zap.String("path", path), zap.Int("bands", d.BandCount),
		zap.Int("width", d.Width), zap.Int("height", d.Height), zap.Stringer("type", d.ElementType))
	d.Bands = make([][]float64, d.BandCount)
	for i := range d.Bands {
		buf := make([]float64, d.Width*d.Height)
		if err = ds.RasterBand(i+1).IO(gdal.Read, 0, 0, d.Width, d.Height, buf, d.Width, d.Height, 0, 0); err != nil {
			log.Error(c.logTag+"read raster band failed", zap.Int("band", i), zap.Error(err))
			err = errors.Wrapf(ErrTifReadFailed, "band %d: %v", i+1, err)
			return
		}
		if d.ElementType == gr.Int8 {
			for j, v := range buf {
				if v > 127 {
					buf[j] = v - 256
				}
			}
		}
		d.Bands[i] = buf
	}
	return
}

// 按扩展名选择驱动写出。先写入内存数据集，再复制为目标格式
func (c *Codec) Encode(path string, d *gr.Decoded) (err error) {
	ext := utils.GetFileExt(path)
	driverName, ok := driverByExt[ext]
	if !ok {
		return errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}
	dt, err := toGdalType(d.ElementType)
	if err != nil {
		return
	}
	memDrv, err := gdal.GetDriverByName(MEM_DRIVER_NAME)
	if err != nil {
		return errors.Wrapf(ErrGdalDriverCreate, "%s: %v", MEM_DRIVER_NAME, err)
	}
	driver, err := gdal.GetDriverByName(driverName)
	if err != nil {
		return errors.Wrapf(ErrGdalDriverCreate, "%s: %v", driverName, err)
	}
	mem := memDrv.Create("", d.Width, d.Height, len(d.Bands), dt, nil)
	defer mem.Close()
	if err = mem.SetGeoTransform(d.GeoTransform); err != nil {
		return
	}
	wkt, err := c.srs.WKT(d.CRS)
	if err != nil {
		return
	}
	if wkt != "" {
		if err = mem.SetProjection(wkt); err != nil {
			return
		}
	}
	for i, data := range d.Bands {
		band := mem.RasterBand(i + 1)
		if d.NoData.Valid {
			if err = band.SetNoDataValue(d.NoData.Value); err != nil {
				return
			}
		}
		buf := data
		if d.ElementType == gr.Int8 {
			buf = make([]float64, len(data))
			for j, v := range data {
				if v < 0 {
					v += 256
				}
				buf[j] = v
			}
		}
		if err = band.IO(gdal.Write, 0, 0, d.Width, d.Height, buf, d.Width, d.Height, 0, 0); err != nil {
			log.Error(c.logTag+"write raster band failed", zap.Int("band", i), zap.Error(err))
			return errors.Wrapf(ErrTifWriteFailed, "band %d: %v", i+1, err)
		}
	}
	opts := c.createOptions(driverName, d.ElementType)
	// 严格模式：驱动不支持该数据类型时失败，不做有损转换
	out := driver.CreateCopy(path, mem, 1, opts, nil, nil)
	if out == (gdal.Dataset{}) {
		log.Error(c.logTag+"create copy failed", zap.String("path", path), zap.String("driver", driverName),
			zap.Stringer("type", d.ElementType))
		return errors.Wrapf(ErrTifWriteFailed, "%s: create %s copy of %s", path, driverName, d.ElementType)
	}
	out.Close()
	log.Info(c.logTag+"raster written", zap.String("path", path), zap.String("driver", driverName),
		zap.String("opts", strings.Join(opts, ",")))
	return
}

func (c *Codec) createOptions(driverName string, t gr.ElementType) (opts []string) {
	if driverName != "GTiff" {
		return
	}
	opts = append(opts, c.gtiffOpts...)
	if t == gr.Int8 {
		opts = append(opts, "PIXELTYPE="+signedBytePixelType)
	}
	return
}
