package vector

import (
	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/log"
)

type binaryOp func(a, b gdal.Geometry) gdal.Geometry

type predicate func(a, b gdal.Geometry) bool

// 逐对计算a、b两集合要素的叠加结果，非空结果保留a中要素的属性
func (o *Overlay) overlay(name string, a, b *Collection, op binaryOp) (ret *Collection, err error) {
	if a.SRID != b.SRID {
		log.Info(o.logTag+"align srid before overlay", zap.Int("srid", a.SRID), zap.Int("other", b.SRID))
		if b, err = o.Reproject(b, a.SRID); err != nil {
			return
		}
	}
	ref, err := o.sridRef(a.SRID)
	if err != nil {
		return
	}
	var (
		geos = make([]gdal.Geometry, len(b.Features))
		gc   = make([]destroyable, 0, len(b.Features)+1)
	)
	defer func() {
		destroyAll(gc)
	}()
	for i, f := range b.Features {
		if geos[i], err = o.parseWKB(f.Geom, ref); err != nil {
			return
		}
		gc = append(gc, geos[i])
	}
	ret = &Collection{SRID: a.SRID}
	for _, fa := range a.Features {
		var geoA gdal.Geometry
		if geoA, err = o.parseWKB(fa.Geom, ref); err != nil {
			ret = nil
			return
		}
		for _, geoB := range geos {
			res := op(geoA, geoB)
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
			ret.Features = append(ret.Features, Feature{Geom: wkb, Attrs: copyAttrs(fa.Attrs)})
		}
		geoA.Destroy()
	}
	log.Info(o.logTag+"overlay done", zap.String("op", name), zap.Int("left", len(a.Features)),
		zap.Int("right", len(b.Features)), zap.Int("result", len(ret.Features)))
	return
}

// 求交
func (o *Overlay) Intersection(a, b *Collection) (*Collection, error) {
	return o.overlay("intersection", a, b, func(x, y gdal.Geometry) gdal.Geometry { return x.Intersection(y) })
}

// 求并
func (o *Overlay) Union(a, b *Collection) (*Collection, error) {
	return o.overlay("union", a, b, func(x, y gdal.Geometry) gdal.Geometry { return x.Union(y) })
}

// 求差（a减去b）
func (o *Overlay) Difference(a, b *Collection) (*Collection, error) {
	return o.overlay("difference", a, b, func(x, y gdal.Geometry) gdal.Geometry { return x.Difference(y) })
}

// 对称差
func (o *Overlay) SymDifference(a, b *Collection) (*Collection, error) {
	return o.overlay("symDifference", a, b, func(x, y gdal.Geometry) gdal.Geometry { return x.SymmetricDifference(y) })
}

// 合并集合内全部要素为单个WKB
func (o *Overlay) Dissolve(c *Collection) (ret []byte, err error) {
	ref, err := o.sridRef(c.SRID)
	if err != nil {
		return
	}
	var (
		geo      gdal.Geometry
		unionGeo = gdal.Create(gdal.GT_Polygon)
		gc       = []destroyable{unionGeo}
	)
	defer func() {
		destroyAll(gc)
	}()
	for _, f := range c.Features {
		if geo, err = o.parseWKB(f.Geom, ref); err != nil {
			return
		}
		gc = append(gc, geo)
		unionGeo = unionGeo.Union(geo)
		gc = append(gc, unionGeo)
	}
	return unionGeo.ToWKB()
}

// 以矩形范围裁剪集合
func (o *Overlay) ClipToBound(c *Collection, b orb.Bound) (*Collection, error) {
	wkb, err := o.WktToWkb(gr.BoundToWkt(b), c.SRID)
	if err != nil {
		return nil, err
	}
	return o.Intersection(c, &Collection{SRID: c.SRID, Features: []Feature{{Geom: wkb}}})
}

func (o *Overlay) test(name string, a, b []byte, srid int, pred predicate) (ok bool, err error) {
	ref, err := o.sridRef(srid)
	if err != nil {
		return
	}
	geoA, err := o.parseWKB(a, ref)
	if err != nil {
		return
	}
	defer geoA.Destroy()
	geoB, err := o.parseWKB(b, ref)
	if err != nil {
		return
	}
	defer geoB.Destroy()
	ok = pred(geoA, geoB)
	log.Debug(o.logTag+"predicate tested", zap.String("op", name), zap.Bool("result", ok))
	return
}

func (o *Overlay) Touches(a, b []byte, srid int) (bool, error) {
	return o.test("touches", a, b, srid, gdal.Geometry.Touches)
}

func (o *Overlay) Intersects(a, b []byte, srid int) (bool, error) {
	return o.test("intersects", a, b, srid, gdal.Geometry.Intersects)
}

func (o *Overlay) Disjoint(a, b []byte, srid int) (bool, error) {
	return o.test("disjoint", a, b, srid, gdal.Geometry.Disjoint)
}

func (o *Overlay) Overlaps(a, b []byte, srid int) (bool, error) {
	return o.test("overlaps", a, b, srid, gdal.Geometry.Overlaps)
}

func (o *Overlay) Crosses(a, b []byte, srid int) (bool, error) {
	return o.test("crosses", a, b, srid, gdal.Geometry.Crosses)
}

// a是否包含b
func (o *Overlay) Contains(a, b []byte, srid int) (bool, error) {
	return o.test("contains", a, b, srid, gdal.Geometry.Contains)
}

// a是否在b内
func (o *Overlay) Within(a, b []byte, srid int) (bool, error) {
	return o.test("within", a, b, srid, gdal.Geometry.Within)
}

// 集合中与geom相交的要素
func (o *Overlay) Select(c *Collection, geom []byte) (ret *Collection, err error) {
	if len(geom) == 0 {
		err = errors.Wrap(ErrInvalidWKB, "empty geometry")
		return
	}
	ret = &Collection{SRID: c.SRID}
	for _, f := range c.Features {
		var ok bool
		if ok, err = o.Intersects(f.Geom, geom, c.SRID); err != nil {
			ret = nil
			return
		}
		if ok {
			ret.Features = append(ret.Features, f)
		}
	}
	return
}
