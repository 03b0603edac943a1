package gdalio

import (
	"math"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/log"
)

var ErrTransformFailed = errors.New("coordinate transform failed")

// 基于OGR坐标转换的坐标系转换服务
type Projector struct {
	srs    *SrsCache
	logTag string
}

func NewProjector(srs *SrsCache) *Projector {
	if srs == nil {
		srs = NewSrsCache()
	}
	return &Projector{
		srs:    srs,
		logTag: "GdalProjector:",
	}
}

// 批量转换坐标点，无法转换的点返回NaN
func (p *Projector) Project(points []orb.Point, from, to gr.CRS) (ret []orb.Point, err error) {
	if from.Equal(to) {
		ret = append([]orb.Point(nil), points...)
		return
	}
	src, err := p.srs.Ref(from)
	if err != nil {
		return
	}
	dst, err := p.srs.Ref(to)
	if err != nil {
		return
	}
	var (
		n  = len(points)
		xs = make([]float64, n)
		ys = make([]float64, n)
		zs = make([]float64, n)
	)
	for i, pt := range points {
		xs[i], ys[i] = pt[0], pt[1]
	}
	ct := gdal.CreateCoordinateTransform(src, dst)
	defer ct.Destroy()
	if !ct.Transform(n, xs, ys, zs) {
		log.Warn(p.logTag+"some points not transformed", zap.Stringer("from", from), zap.Stringer("to", to),
			zap.Int("points", n))
	}
	ret = make([]orb.Point, n)
	failed := 0
	for i := range ret {
		x, y := xs[i], ys[i]
		if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
			x, y = math.NaN(), math.NaN()
			failed++
		}
		ret[i] = orb.Point{x, y}
	}
	if failed == n && n > 0 {
		err = errors.Wrapf(ErrTransformFailed, "%s to %s", from, to)
	}
	return
}
