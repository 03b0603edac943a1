package georaster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// 坐标系标识。EPSG、UTM带号与地理坐标系名称为简写形式，WKT为完整定义
type CRS struct {
	EPSG     int
	UTMZone  int
	UTMSouth bool
	GCS      string
	WKT      string
}

func EPSG(code int) CRS {
	return CRS{EPSG: code}
}

func UTM(zone int, south bool) CRS {
	return CRS{UTMZone: zone, UTMSouth: south}
}

func (c CRS) IsZero() bool {
	return c.EPSG == 0 && c.UTMZone == 0 && c.GCS == "" && c.WKT == ""
}

// 判断两个坐标系是否相同：双方都有EPSG时比较EPSG，其次比较UTM简写，最后比较WKT
func (c CRS) Equal(o CRS) bool {
	switch {
	case c.EPSG != 0 && o.EPSG != 0:
		return c.EPSG == o.EPSG
	case c.UTMZone != 0 || o.UTMZone != 0:
		return c.UTMZone == o.UTMZone && c.UTMSouth == o.UTMSouth
	case c.GCS != "" || o.GCS != "":
		return strings.EqualFold(c.GCS, o.GCS)
	}
	return strings.TrimSpace(c.WKT) == strings.TrimSpace(o.WKT)
}

// 简写形式：EPSG:4326、UTM:50N、GCS:WGS84，无简写时返回WKT
func (c CRS) String() string {
	switch {
	case c.EPSG != 0:
		return "EPSG:" + strconv.Itoa(c.EPSG)
	case c.UTMZone != 0:
		hemi := "N"
		if c.UTMSouth {
			hemi = "S"
		}
		return fmt.Sprintf("UTM:%d%s", c.UTMZone, hemi)
	case c.GCS != "":
		return "GCS:" + c.GCS
	}
	return c.WKT
}

// String的逆操作，无法识别的简写按WKT处理
func ParseCRS(s string) (c CRS, err error) {
	s = strings.TrimSpace(s)
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		c.WKT = s
		return
	}
	switch strings.ToUpper(prefix) {
	case "EPSG":
		c.EPSG, err = strconv.Atoi(rest)
	case "UTM":
		if len(rest) < 2 {
			err = errors.Errorf("invalid utm crs %q", s)
			return
		}
		hemi := strings.ToUpper(rest[len(rest)-1:])
		if hemi != "N" && hemi != "S" {
			err = errors.Errorf("invalid utm hemisphere %q", s)
			return
		}
		c.UTMSouth = hemi == "S"
		c.UTMZone, err = strconv.Atoi(rest[:len(rest)-1])
	case "GCS":
		c.GCS = rest
	default:
		c.WKT = s
	}
	if err != nil {
		err = errors.Wrapf(err, "parse crs %q", s)
	}
	return
}

// 像元坐标与参考坐标间的仿射关系。PixelHeight通常为负（北向上）
type Georeference struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
	CRS         CRS
}

func NewGeoreference(originX, originY, pixelWidth, pixelHeight float64, crs CRS) (g Georeference, err error) {
	if pixelWidth == 0 || pixelHeight == 0 || math.IsNaN(pixelWidth) || math.IsNaN(pixelHeight) {
		err = errors.Wrapf(ErrInvalidDimension, "pixel size (%v, %v)", pixelWidth, pixelHeight)
		return
	}
	g = Georeference{
		OriginX:     originX,
		OriginY:     originY,
		PixelWidth:  pixelWidth,
		PixelHeight: pixelHeight,
		CRS:         crs,
	}
	return
}

// 由GDAL六参数构建，不支持旋转项
func FromGeoTransform(gt [6]float64, crs CRS) (g Georeference, err error) {
	if gt[2] != 0 || gt[4] != 0 {
		err = errors.Wrapf(ErrUnsupportedOperation, "rotated geotransform %v", gt)
		return
	}
	return NewGeoreference(gt[0], gt[3], gt[1], gt[5], crs)
}

func (g Georeference) GeoTransform() [6]float64 {
	return [6]float64{g.OriginX, g.PixelWidth, 0, g.OriginY, 0, g.PixelHeight}
}

func (g Georeference) PixelToRef(pixelX, pixelY float64) (refX, refY float64) {
	refX = g.OriginX + pixelX*g.PixelWidth
	refY = g.OriginY + pixelY*g.PixelHeight
	return
}

// 参考坐标所在像元，取仿射逆变换的下取整
func (g Georeference) RefToPixel(refX, refY float64) (pixelX, pixelY int) {
	pixelX = int(math.Floor((refX - g.OriginX) / g.PixelWidth))
	pixelY = int(math.Floor((refY - g.OriginY) / g.PixelHeight))
	return
}

// 宽width高height个像元的栅格所覆盖的范围
func (g Georeference) Bounds(width, height int) orb.Bound {
	x0, y0 := g.PixelToRef(0, 0)
	x1, y1 := g.PixelToRef(float64(width), float64(height))
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// 平移原点offX列、offY行后的地理参考
func (g Georeference) Shift(offX, offY int) Georeference {
	g.OriginX, g.OriginY = g.PixelToRef(float64(offX), float64(offY))
	return g
}

// 同一坐标系下像元网格是否一致
func (g Georeference) SameGrid(o Georeference) bool {
	return g.OriginX == o.OriginX && g.OriginY == o.OriginY &&
		g.PixelWidth == o.PixelWidth && g.PixelHeight == o.PixelHeight
}
