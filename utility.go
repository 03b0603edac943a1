package georaster

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	degToRad = math.Pi / 180

	xr = 20037508.34 / 180
	yr = xr / degToRad
	tr = degToRad / 2
)

func PointsToWkt(lon1, lon2, lat1, lat2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", lon1, lon2, lat1, lat2)
}

// 范围矩形的WKT
func BoundToWkt(b orb.Bound) string {
	return PointsToWkt(b.Min[0], b.Max[0], b.Min[1], b.Max[1])
}

func Convert4326To3857(lon, lat float64) (lonIn3857, latIn3857 float64) {
	lonIn3857 = lon * xr
	latIn3857 = math.Log(math.Tan((90+lat)*tr)) * yr
	return
}

func Convert3857To4326(lonIn3857, latIn3857 float64) (lon, lat float64) {
	lon = lonIn3857 / xr
	lat = math.Atan(math.Pow(math.E, latIn3857/yr))/tr - 90
	return
}

// 不依赖GDAL的坐标转换，仅支持EPSG:4326与EPSG:3857互转
type MercatorProjector struct{}

func isWGS84(c CRS) bool {
	return c.EPSG == UNIVERSAL_SRID || strings.EqualFold(c.GCS, "WGS84")
}

func isWebMercator(c CRS) bool {
	return c.EPSG == WEB_MERC_SRID || c.EPSG == 900913
}

func (MercatorProjector) Project(points []orb.Point, from, to CRS) (ret []orb.Point, err error) {
	var conv func(x, y float64) (float64, float64)
	switch {
	case from.Equal(to):
		ret = append([]orb.Point(nil), points...)
		return
	case isWGS84(from) && isWebMercator(to):
		conv = Convert4326To3857
	case isWebMercator(from) && isWGS84(to):
		conv = Convert3857To4326
	default:
		err = errors.Wrapf(ErrUnsupportedOperation, "project %s to %s", from, to)
		return
	}
	ret = make([]orb.Point, len(points))
	for i, p := range points {
		ret[i][0], ret[i][1] = conv(p[0], p[1])
	}
	return
}
