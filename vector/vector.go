package vector

import (
	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/gdalio"
	"github.com/wgdzlh/georaster/log"
)

const (
	SHP_DRIVER_NAME = "ESRI Shapefile"
	SHAPE_ENCODING  = "UTF-8"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING
	SHP_FIELD_WIDTH = 254
)

var (
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrInvalidWKT       = errors.New("invalid wkt")
	ErrInvalidWKB       = errors.New("invalid wkb")
)

// 矢量要素：WKB几何与属性
type Feature struct {
	Geom  []byte
	Attrs map[string]string
}

// 同一坐标系下的要素集合
type Collection struct {
	SRID     int
	Features []Feature
}

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

func destroyAll(gc []destroyable) {
	for _, v := range gc {
		v.Destroy()
	}
}

// 矢量叠加分析工具，基于OGR几何
type Overlay struct {
	srs    *gdalio.SrsCache
	logTag string
}

func NewOverlay(srs *gdalio.SrsCache) *Overlay {
	if srs == nil {
		srs = gdalio.NewSrsCache()
	}
	return &Overlay{
		srs:    srs,
		logTag: "VectorOverlay:",
	}
}

func (o *Overlay) sridRef(srid int) (gdal.SpatialReference, error) {
	return o.srs.Ref(gr.EPSG(srid))
}

func (o *Overlay) parseWKB(wkb []byte, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKB(wkb, ref, len(wkb))
	if err != nil {
		log.Error(o.logTag+"parse wkb failed", zap.Error(err))
		err = errors.Wrap(ErrInvalidWKB, err.Error())
	}
	return
}

func (o *Overlay) parseWKT(wkt string, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		log.Error(o.logTag+"parse wkt failed", zap.Error(err))
		err = errors.Wrap(ErrInvalidWKT, err.Error())
	}
	return
}

// WKT转WKB
func (o *Overlay) WktToWkb(wkt string, srid int) (wkb []byte, err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geo, err := o.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	return geo.ToWKB()
}

// WKB转WKT
func (o *Overlay) WkbToWkt(wkb []byte, srid int) (wkt string, err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geo, err := o.parseWKB(wkb, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	return geo.ToWKT()
}

// 转换WKB坐标系
func (o *Overlay) TransformWkb(wkb []byte, srid, tSrid int) (ret []byte, err error) {
	if tSrid == srid {
		ret = wkb
		return
	}
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	tRef, err := o.sridRef(tSrid)
	if err != nil {
		return
	}
	geo, err := o.parseWKB(wkb, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(tRef); err != nil {
		log.Error(o.logTag+"geo transform failed", zap.Int("srid", srid), zap.Int("tSrid", tSrid), zap.Error(err))
		return
	}
	return geo.ToWKB()
}

// 转换整个集合的坐标系，返回新集合
func (o *Overlay) Reproject(c *Collection, tSrid int) (ret *Collection, err error) {
	ret = &Collection{SRID: tSrid, Features: make([]Feature, len(c.Features))}
	for i, f := range c.Features {
		ret.Features[i].Attrs = copyAttrs(f.Attrs)
		if ret.Features[i].Geom, err = o.TransformWkb(f.Geom, c.SRID, tSrid); err != nil {
			ret = nil
			return
		}
	}
	log.Info(o.logTag+"collection reprojected", zap.Int("srid", c.SRID), zap.Int("tSrid", tSrid),
		zap.Int("features", len(c.Features)))
	return
}

// WKB外包矩形
func (o *Overlay) Envelope(wkb []byte, srid int) (b orb.Bound, err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geo, err := o.parseWKB(wkb, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	env := geo.Envelope()
	b = orb.Bound{Min: orb.Point{env.MinX(), env.MinY()}, Max: orb.Point{env.MaxX(), env.MaxY()}}
	return
}

func copyAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	ret := make(map[string]string, len(attrs))
	for k, v := range attrs {
		ret[k] = v
	}
	return ret
}
