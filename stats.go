package georaster

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// 单波段统计值，只统计有效像元
type BandStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// 第band个波段中未被掩膜的有限像元值
func (r *RasterDataset) validValues(band int) (vals []float64, err error) {
	data, err := r.Band(band)
	if err != nil {
		return
	}
	mask := r.grid.mask
	vals = make([]float64, 0, len(data))
	for i, v := range data {
		if (mask != nil && mask[i]) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		err = errors.Wrapf(ErrEmptyRaster, "band %d has no valid pixel", band)
	}
	return
}

func (r *RasterDataset) MinMax(band int) (lo, hi float64, err error) {
	vals, err := r.validValues(band)
	if err != nil {
		return
	}
	lo, hi = floats.Min(vals), floats.Max(vals)
	return
}

func (r *RasterDataset) Statistics(band int) (s BandStats, err error) {
	vals, err := r.validValues(band)
	if err != nil {
		return
	}
	s.Count = len(vals)
	s.Min, s.Max = floats.Min(vals), floats.Max(vals)
	s.Mean, s.StdDev = stat.MeanStdDev(vals, nil)
	if s.Count == 1 {
		s.StdDev = 0
	}
	return
}

// 等宽直方图，dividers为bins+1个分界值，counts[i]为落在[dividers[i], dividers[i+1])的像元数，最大值计入最后一组
func (r *RasterDataset) Histogram(band, bins int) (dividers, counts []float64, err error) {
	if bins <= 0 {
		err = errors.Wrapf(ErrInvalidDimension, "histogram bins %d", bins)
		return
	}
	vals, err := r.validValues(band)
	if err != nil {
		return
	}
	sort.Float64s(vals)
	lo, hi := vals[0], vals[len(vals)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers = make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	edges := append([]float64(nil), dividers...)
	edges[bins] = math.Nextafter(edges[bins], math.Inf(1))
	counts = stat.Histogram(nil, edges, vals, nil)
	return
}
