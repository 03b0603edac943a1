package georaster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

// 使两个栅格可逐像元运算：裁剪到公共范围，较细的一方降采样到较粗的分辨率，
// 再截取到相同行列数，并统一使用较粗一方（分辨率相同时为a）的地理参考
func ResampleToMatch(a, b *RasterDataset) (ao, bo *RasterDataset, err error) {
	ba, bb := a.Bounds(), b.Bounds()
	if !a.CRS().Equal(b.CRS()) {
		log.Warn("AlignmentEngine:aligning rasters in different crs",
			zap.String("a", a.CRS().String()), zap.String("b", b.CRS().String()))
	}
	inter, ok := intersectBounds(ba, bb)
	if !ok {
		err = errors.Wrapf(ErrDisjointExtent, "%v and %v", ba, bb)
		return
	}
	if ao, err = cropTo(a, inter); err != nil {
		return
	}
	if bo, err = cropTo(b, inter); err != nil {
		return
	}
	pa, pb := math.Abs(ao.geo.PixelWidth), math.Abs(bo.geo.PixelWidth)
	ref := ao
	switch {
	case pa > pb:
		log.Debug("AlignmentEngine:downsample b", zap.Float64("from", pb), zap.Float64("to", pa))
		if bo, err = bo.Scale(pb / pa); err != nil {
			return
		}
	case pb > pa:
		log.Debug("AlignmentEngine:downsample a", zap.Float64("from", pa), zap.Float64("to", pb))
		if ao, err = ao.Scale(pa / pb); err != nil {
			return
		}
		ref = bo
	}
	w := min(ao.width, bo.width)
	h := min(ao.height, bo.height)
	if ao, err = trimTo(ao, w, h); err != nil {
		return
	}
	if bo, err = trimTo(bo, w, h); err != nil {
		return
	}
	ao.geo, bo.geo = ref.geo, ref.geo
	return
}

// 公共范围，无重叠时ok为false
func intersectBounds(a, b orb.Bound) (inter orb.Bound, ok bool) {
	inter = orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}
	ok = inter.Max[0] > inter.Min[0] && inter.Max[1] > inter.Min[1]
	return
}

// 范围与自身一致时返回深拷贝
func cropTo(r *RasterDataset, bound orb.Bound) (*RasterDataset, error) {
	if r.Bounds() == bound {
		return r.Clone()
	}
	return r.Crop(bound)
}

func trimTo(r *RasterDataset, w, h int) (*RasterDataset, error) {
	if r.width == w && r.height == h {
		return r, nil
	}
	return r.ExtractByPixels(0, 0, w-1, h-1)
}
