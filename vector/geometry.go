package vector

import (
	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

const (
	DefaultSimplifyT = 1e-5 // 经纬度下约1米
	BufferQuadSegs   = 8
)

var ErrEmptyResult = errors.New("empty geometry result")

type unaryOp func(geo gdal.Geometry) gdal.Geometry

// 对集合中每个要素做几何变换，结果为空的要素丢弃
func (o *Overlay) mapFeatures(name string, c *Collection, op unaryOp) (ret *Collection, err error) {
	ref, err := o.sridRef(c.SRID)
	if err != nil {
		return
	}
	ret = &Collection{SRID: c.SRID, Features: make([]Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		var geo gdal.Geometry
		if geo, err = o.parseWKB(f.Geom, ref); err != nil {
			ret = nil
			return
		}
		res := op(geo)
		geo.Destroy()
		if res.IsEmpty() {
			res.Destroy()
			continue
		}
		wkb, e := res.ToWKB()
		res.Destroy()
		if e != nil {
			log.Error(o.logTag+"err in wkb convert", zap.String("op", name), zap.Error(e))
			continue
		}
		ret.Features = append(ret.Features, Feature{Geom: wkb, Attrs: copyAttrs(f.Attrs)})
	}
	log.Info(o.logTag+"features mapped", zap.String("op", name), zap.Int("total", len(c.Features)),
		zap.Int("result", len(ret.Features)))
	return
}

// 保持拓扑的简化，t<=0时使用DefaultSimplifyT
func (o *Overlay) Simplify(c *Collection, t float64) (*Collection, error) {
	if t <= 0 {
		t = DefaultSimplifyT
	}
	return o.mapFeatures("simplify", c, func(geo gdal.Geometry) gdal.Geometry {
		return geo.SimplifyPreservingTopology(t)
	})
}

// 缓冲区，dist为负时腐蚀
func (o *Overlay) Buffer(c *Collection, dist float64) (*Collection, error) {
	return o.mapFeatures("buffer", c, func(geo gdal.Geometry) gdal.Geometry {
		return geo.Buffer(dist, BufferQuadSegs)
	})
}

// 多面要素逐个取凸包后合并
func (o *Overlay) ConvexHull(c *Collection) (*Collection, error) {
	return o.mapFeatures("convexHull", c, func(geo gdal.Geometry) gdal.Geometry {
		if geo.Type() != gdal.GT_MultiPolygon {
			return geo.ConvexHull()
		}
		var (
			hull = gdal.Create(gdal.GT_Polygon)
			gc   []destroyable
		)
		for i := 0; i < geo.GeometryCount(); i++ {
			sub := geo.Geometry(i).ConvexHull()
			gc = append(gc, sub, hull)
			hull = hull.Union(sub)
		}
		destroyAll(gc)
		return hull
	})
}

// 几何面积，单位为坐标系单位的平方
func (o *Overlay) Area(wkb []byte, srid int) (area float64, err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geo, err := o.parseWKB(wkb, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	area = geo.Area()
	return
}

// 校验WKT能否解析且非空
func (o *Overlay) CheckWkt(wkt string, srid int) (err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geo, err := o.parseWKT(wkt, ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if geo.IsEmpty() {
		err = ErrEmptyResult
	}
	return
}
