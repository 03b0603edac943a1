package georaster

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

// 裁剪时像元边界的吸附容差（以像元为单位）
const snapEpsilon = 1e-9

// 按闭区间像元窗口[startCol,endCol]x[startRow,endRow]截取，掩膜一并截取
func (r *RasterDataset) ExtractByPixels(startCol, startRow, endCol, endRow int) (out *RasterDataset, err error) {
	if startCol < 0 || startRow < 0 || endCol >= r.width || endRow >= r.height || startCol > endCol || startRow > endRow {
		err = errors.Wrapf(ErrIndexOutOfRange, "window [%d,%d]-[%d,%d] of %dx%d",
			startCol, startRow, endCol, endRow, r.width, r.height)
		return
	}
	grid, err := r.Grid()
	if err != nil {
		return
	}
	w := endCol - startCol + 1
	h := endRow - startRow + 1
	out, err = r.emptyLike(w, h, len(grid.bands), grid.elemType, r.geo.Shift(startCol, startRow))
	if err != nil {
		return
	}
	dst := out.grid
	for b, band := range grid.bands {
		for row := 0; row < h; row++ {
			src := (startRow+row)*r.width + startCol
			copy(dst.bands[b][row*w:(row+1)*w], band[src:src+w])
		}
	}
	if grid.mask != nil {
		dst.mask = make([]bool, w*h)
		for row := 0; row < h; row++ {
			src := (startRow+row)*r.width + startCol
			copy(dst.mask[row*w:(row+1)*w], grid.mask[src:src+w])
		}
	}
	return
}

// 按参考坐标范围裁剪：范围外扩到所包含像元的边界，并限制在栅格内
func (r *RasterDataset) Crop(bound orb.Bound) (out *RasterDataset, err error) {
	c0, r0, c1, r1, ok := r.pixelWindow(bound)
	if !ok {
		err = errors.Wrapf(ErrDisjointExtent, "crop %v of %v", bound, r.Bounds())
		return
	}
	log.Debug("RasterDataset:crop", zap.Int("startCol", c0), zap.Int("startRow", r0), zap.Int("endCol", c1), zap.Int("endRow", r1))
	return r.ExtractByPixels(c0, r0, c1, r1)
}

// 参考坐标范围对应的闭区间像元窗口
func (r *RasterDataset) pixelWindow(bound orb.Bound) (c0, r0, c1, r1 int, ok bool) {
	g := r.geo
	fx0 := (bound.Min[0] - g.OriginX) / g.PixelWidth
	fx1 := (bound.Max[0] - g.OriginX) / g.PixelWidth
	fy0 := (bound.Min[1] - g.OriginY) / g.PixelHeight
	fy1 := (bound.Max[1] - g.OriginY) / g.PixelHeight
	c0, c1 = snapSpan(fx0, fx1, r.width)
	r0, r1 = snapSpan(fy0, fy1, r.height)
	ok = c0 <= c1 && r0 <= r1
	return
}

func snapSpan(a, b float64, n int) (lo, hi int) {
	if a > b {
		a, b = b, a
	}
	lo = int(math.Floor(a + snapEpsilon))
	hi = int(math.Ceil(b-snapEpsilon)) - 1
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return
}

// 缩放：zoom>1加密像元，zoom<1变粗。数据按双线性插值，掩膜按最近邻插值
func (r *RasterDataset) Scale(zoom float64) (*RasterDataset, error) {
	return r.ScaleWithEpsilon(zoom, DefaultZeroEpsilon)
}

// 同Scale，绝对值小于eps的像元在插值前置0
func (r *RasterDataset) ScaleWithEpsilon(zoom, eps float64) (out *RasterDataset, err error) {
	if !(zoom > 0) || math.IsInf(zoom, 1) {
		err = errors.Wrapf(ErrInvalidDimension, "zoom %v", zoom)
		return
	}
	nw := int(math.Round(float64(r.width) * zoom))
	nh := int(math.Round(float64(r.height) * zoom))
	if nw <= 0 || nh <= 0 {
		err = errors.Wrapf(ErrInvalidDimension, "zoom %v of %dx%d gives %dx%d", zoom, r.width, r.height, nw, nh)
		return
	}
	grid, err := r.Grid()
	if err != nil {
		return
	}
	var (
		bands   = make([][]float64, len(grid.bands))
		touched []bool
	)
	for i, band := range grid.bands {
		bands[i], touched = bilinearZoom(clampNearZero(band, eps), grid.mask, r.width, r.height, nw, nh)
	}
	w, h := nw, nh
	mask, err := nearestMask(grid.mask, r.width, r.height, w, h)
	if err != nil {
		return
	}
	if touched != nil {
		mask = orMask(mask, touched)
	}
	geo := r.geo
	geo.PixelWidth /= zoom
	geo.PixelHeight /= zoom
	scaled, err := NewGridBuffer(w, h, grid.elemType, bands, mask)
	if err != nil {
		return
	}
	log.Debug("RasterDataset:scale", zap.Float64("zoom", zoom), zap.Int("width", w), zap.Int("height", h))
	out = newDataset(scaled, geo, r.nodata)
	return
}

func clampNearZero(band []float64, eps float64) []float64 {
	out := make([]float64, len(band))
	for i, v := range band {
		if math.Abs(v) >= eps {
			out[i] = v
		}
	}
	return out
}

// 角点对齐的双线性插值。掩膜像元不参与插值，权重在其余有效角点间重新归一，
// 全部角点无效时取0；这些受掩膜影响的输出像元记入touched
func bilinearZoom(src []float64, mask []bool, w, h, nw, nh int) (dst []float64, touched []bool) {
	dst = make([]float64, nw*nh)
	sx := axisScale(w, nw)
	sy := axisScale(h, nh)
	for oy := 0; oy < nh; oy++ {
		fy := float64(oy) * sy
		y0 := int(fy)
		y1 := min(y0+1, h-1)
		ty := fy - float64(y0)
		for ox := 0; ox < nw; ox++ {
			fx := float64(ox) * sx
			x0 := int(fx)
			x1 := min(x0+1, w-1)
			tx := fx - float64(x0)
			o := oy*nw + ox
			idx := [4]int{y0*w + x0, y0*w + x1, y1*w + x0, y1*w + x1}
			wt := [4]float64{(1 - tx) * (1 - ty), tx * (1 - ty), (1 - tx) * ty, tx * ty}
			if !hitsMask(mask, idx, wt) {
				top := src[idx[0]]*(1-tx) + src[idx[1]]*tx
				bottom := src[idx[2]]*(1-tx) + src[idx[3]]*tx
				dst[o] = top*(1-ty) + bottom*ty
				continue
			}
			if touched == nil {
				touched = make([]bool, nw*nh)
			}
			touched[o] = true
			var sum, weight float64
			for k, i := range idx {
				if wt[k] > 0 && !mask[i] {
					sum += src[i] * wt[k]
					weight += wt[k]
				}
			}
			if weight > 0 {
				dst[o] = sum / weight
			}
		}
	}
	return
}

// 权重非零的角点中是否有掩膜像元
func hitsMask(mask []bool, idx [4]int, wt [4]float64) bool {
	if mask == nil {
		return false
	}
	for k, i := range idx {
		if wt[k] > 0 && mask[i] {
			return true
		}
	}
	return false
}

func axisScale(in, out int) float64 {
	if out <= 1 {
		return 0
	}
	return float64(in-1) / float64(out-1)
}

// 掩膜最近邻缩放
func nearestMask(mask []bool, w, h, nw, nh int) (out []bool, err error) {
	if mask == nil {
		return
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, m := range mask {
		if m {
			img.Pix[(i/w)*img.Stride+i%w] = math.MaxUint8
		}
	}
	scaled := resize.Resize(uint(nw), uint(nh), img, resize.NearestNeighbor)
	b := scaled.Bounds()
	if b.Dx() != nw || b.Dy() != nh {
		err = errors.Wrapf(ErrInvalidDimension, "mask resized to %dx%d, want %dx%d", b.Dx(), b.Dy(), nw, nh)
		return
	}
	out = make([]bool, nw*nh)
	gray, isGray := scaled.(*image.Gray)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			var v uint8
			if isGray {
				v = gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			} else {
				v = color.GrayModel.Convert(scaled.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
			out[y*nw+x] = v >= 128
		}
	}
	return
}

// 按行列采样率抽取最近像元，输出为floor(h/rowRate)行、floor(w/colRate)列
func (r *RasterDataset) SampleNearest(rowRate, colRate float64) (out *RasterDataset, err error) {
	if !(rowRate > 0) || !(colRate > 0) {
		err = errors.Wrapf(ErrInvalidDimension, "sample rate (%v, %v)", rowRate, colRate)
		return
	}
	nh := int(math.Floor(float64(r.height) / rowRate))
	nw := int(math.Floor(float64(r.width) / colRate))
	grid, err := r.Grid()
	if err != nil {
		return
	}
	geo := r.geo
	geo.PixelWidth *= colRate
	geo.PixelHeight *= rowRate
	out, err = r.emptyLike(nw, nh, len(grid.bands), grid.elemType, geo)
	if err != nil {
		return
	}
	dst := out.grid
	if grid.mask != nil {
		dst.mask = make([]bool, nw*nh)
	}
	for oy := 0; oy < nh; oy++ {
		iy := int(math.Floor(float64(oy) * rowRate))
		for ox := 0; ox < nw; ox++ {
			ix := int(math.Floor(float64(ox) * colRate))
			si, di := iy*r.width+ix, oy*nw+ox
			for b, band := range grid.bands {
				dst.bands[b][di] = band[si]
			}
			if dst.mask != nil {
				dst.mask[di] = grid.mask[si]
			}
		}
	}
	return
}
