package georaster

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
)

type ReclassifyMode int

const (
	// 按值精确匹配
	Discrete ReclassifyMode = iota
	// 按(Low, High]区间匹配
	Range
)

// 重分类的输入类别。Discrete模式只使用Low
type Class struct {
	Low  float64
	High float64
}

// 重分类的输出，NoValue为true时匹配的像元标为无效
type Output struct {
	Value   float64
	NoValue bool
}

var NoValue = Output{NoValue: true}

func OutputValue(v float64) Output {
	return Output{Value: v}
}

func (c Class) matches(v float64, mode ReclassifyMode) bool {
	if mode == Discrete {
		return v == c.Low
	}
	return v > c.Low && v <= c.High
}

// 重分类：按类别顺序依次改写，像元与原值比较，匹配多个类别时取最后一个。
// 输出为NoValue的类别不改写数据，只把第1波段匹配的像元并入掩膜；未匹配的像元保持原值
func (r *RasterDataset) Reclassify(classes []Class, outputs []Output, mode ReclassifyMode) (out *RasterDataset, err error) {
	if len(classes) != len(outputs) {
		err = errors.Wrapf(ErrClassMismatch, "%d classes, %d outputs", len(classes), len(outputs))
		return
	}
	if mode != Discrete && mode != Range {
		err = errors.Wrapf(ErrUnsupportedOperation, "reclassify mode %d", mode)
		return
	}
	src, err := r.Grid()
	if err != nil {
		return
	}
	out = newDataset(src.Clone(), r.geo, r.nodata)
	dst := out.grid
	var noValueMask []bool
	for ci, c := range classes {
		o := outputs[ci]
		c.Low, c.High = src.elemType.operand(c.Low), src.elemType.operand(c.High)
		if o.NoValue {
			for i, v := range src.bands[0] {
				if !c.matches(v, mode) {
					continue
				}
				if noValueMask == nil {
					noValueMask = make([]bool, len(src.bands[0]))
				}
				noValueMask[i] = true
			}
			continue
		}
		val := dst.elemType.Coerce(o.Value)
		for b, band := range src.bands {
			res := dst.bands[b]
			for i, v := range band {
				if c.matches(v, mode) {
					res[i] = val
				}
			}
		}
	}
	if noValueMask != nil {
		dst.mask = orMask(dst.mask, noValueMask)
	}
	log.Debug("RasterDataset:reclassified", zap.Int("classes", len(classes)), zap.Bool("masked", noValueMask != nil))
	return
}

// 按离散值重分类
func (r *RasterDataset) ReclassifyDiscrete(values []float64, outputs []Output) (*RasterDataset, error) {
	classes := make([]Class, len(values))
	for i, v := range values {
		classes[i] = Class{Low: v, High: v}
	}
	return r.Reclassify(classes, outputs, Discrete)
}

// 按(low, high]区间重分类
func (r *RasterDataset) ReclassifyRange(ranges [][2]float64, outputs []Output) (*RasterDataset, error) {
	classes := make([]Class, len(ranges))
	for i, rg := range ranges {
		classes[i] = Class{Low: rg[0], High: rg[1]}
	}
	return r.Reclassify(classes, outputs, Range)
}
