package georaster

import (
	"math"

	"github.com/pkg/errors"
)

// 山体阴影，取第1波段为高程，结果为0~255的单波段Float32，沿用输入掩膜
func (r *RasterDataset) Hillshade(azimuth, altitude float64) (out *RasterDataset, err error) {
	dem, err := r.Band(0)
	if err != nil {
		return
	}
	if out, err = r.emptyLike(r.width, r.height, 1, Float32, r.geo); err != nil {
		return
	}
	gy, gx := gradient(dem, r.width, r.height)
	var (
		res = out.grid.bands[0]
		azi = (360 - azimuth) * math.Pi / 180
		alt = altitude * math.Pi / 180
	)
	for i := range res {
		slope := math.Pi/2 - math.Atan(math.Sqrt(gy[i]*gy[i]+gx[i]*gx[i]))
		aspect := math.Atan2(-gy[i], gx[i])
		shaded := math.Sin(alt)*math.Sin(slope) + math.Cos(alt)*math.Cos(slope)*math.Cos(azi-math.Pi/2-aspect)
		res[i] = Float32.Coerce(255 * (shaded + 1) / 2)
	}
	if mask := r.grid.mask; mask != nil {
		out.grid.mask = append([]bool(nil), mask...)
	}
	return
}

// 行、列方向的差分梯度：内部为中心差分，边缘为单侧差分，单行/单列时为0
func gradient(f []float64, w, h int) (gy, gx []float64) {
	gy = make([]float64, len(f))
	gx = make([]float64, len(f))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			gy[i] = diff(f, i, y, h, w)
			gx[i] = diff(f, i, x, w, 1)
		}
	}
	return
}

func diff(f []float64, i, pos, n, stride int) float64 {
	switch {
	case n < 2:
		return 0
	case pos == 0:
		return f[i+stride] - f[i]
	case pos == n-1:
		return f[i] - f[i-stride]
	}
	return (f[i+stride] - f[i-stride]) / 2
}

// 外部DEM分析的输入检查
func checkDEMInput(r *RasterDataset) error {
	if r.numBands < 1 {
		return errors.Wrap(ErrEmptyRaster, "dem without band")
	}
	if r.width < 3 || r.height < 3 {
		return errors.Wrapf(ErrInvalidDimension, "dem %dx%d too small", r.width, r.height)
	}
	return nil
}
