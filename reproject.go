package georaster

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

// 范围每条边上用于推算目标范围的采样点数
const edgeSamples = 21

// 重投影到目标坐标系：像元行列数不变，目标范围由源范围边界采样点投影得出；
// 目标像元中心反投影回源栅格后取最近像元，落在源栅格外的像元标为无效
func (t *Toolbox) Reproject(ctx context.Context, in RasterInput, to CRS) (out *RasterDataset, err error) {
	if t.projector == nil {
		err = errors.Wrap(ErrNoCollaborator, "projector")
		return
	}
	r, err := t.Resolve(in)
	if err != nil {
		return
	}
	from := r.CRS()
	if from.IsZero() || to.IsZero() {
		err = errors.Wrapf(ErrUnsupportedOperation, "reproject %q to %q", from, to)
		return
	}
	if from.Equal(to) {
		return r.Clone()
	}
	grid, err := r.Grid()
	if err != nil {
		return
	}
	edges, err := t.projector.Project(boundEdgePoints(r.Bounds()), from, to)
	if err != nil {
		return
	}
	dstBound := orb.MultiPoint(edges).Bound()
	if dstBound.Max[0] <= dstBound.Min[0] || dstBound.Max[1] <= dstBound.Min[1] {
		err = errors.Wrapf(ErrInvalidDimension, "projected bound %v", dstBound)
		return
	}
	geo, err := NewGeoreference(dstBound.Min[0], dstBound.Max[1],
		(dstBound.Max[0]-dstBound.Min[0])/float64(r.width),
		-(dstBound.Max[1]-dstBound.Min[1])/float64(r.height), to)
	if err != nil {
		return
	}
	centers := make([]orb.Point, r.width*r.height)
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			centers[y*r.width+x][0], centers[y*r.width+x][1] = geo.PixelToRef(float64(x)+0.5, float64(y)+0.5)
		}
	}
	if err = ctx.Err(); err != nil {
		return
	}
	srcPts, err := t.projector.Project(centers, to, from)
	if err != nil {
		return
	}
	if len(srcPts) != len(centers) {
		err = errors.Errorf("projector returned %d points, want %d", len(srcPts), len(centers))
		return
	}
	if out, err = r.emptyLike(r.width, r.height, len(grid.bands), grid.elemType, geo); err != nil {
		return
	}
	dst := out.grid
	dst.mask = make([]bool, len(centers))
	masked := 0
	for i, p := range srcPts {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			dst.mask[i] = true
			masked++
			continue
		}
		sx, sy := r.geo.RefToPixel(p[0], p[1])
		if sx < 0 || sy < 0 || sx >= r.width || sy >= r.height {
			dst.mask[i] = true
			masked++
			continue
		}
		si := sy*r.width + sx
		for b, band := range grid.bands {
			dst.bands[b][i] = band[si]
		}
		dst.mask[i] = grid.Masked(si)
	}
	if !hasTrue(dst.mask) {
		dst.mask = nil
	}
	log.Info(t.logTag+"raster reprojected", zap.String("from", from.String()), zap.String("to", to.String()),
		zap.Int("outside", masked))
	return
}

func boundEdgePoints(b orb.Bound) []orb.Point {
	pts := make([]orb.Point, 0, 4*edgeSamples)
	for i := 0; i < edgeSamples; i++ {
		f := float64(i) / float64(edgeSamples-1)
		x := b.Min[0] + f*(b.Max[0]-b.Min[0])
		y := b.Min[1] + f*(b.Max[1]-b.Min[1])
		pts = append(pts,
			orb.Point{x, b.Min[1]}, orb.Point{x, b.Max[1]},
			orb.Point{b.Min[0], y}, orb.Point{b.Max[0], y})
	}
	return pts
}
