package georaster

import (
	"github.com/pkg/errors"
)

// 多波段像元缓冲区。各波段按行优先存储，形状一致；
// mask与单个波段同形，true表示该像元无效，为nil时全部有效
type GridBuffer struct {
	width    int
	height   int
	elemType ElementType
	bands    [][]float64
	mask     []bool
}

// 分配全零缓冲区
func Allocate(width, height, bandCount int, elemType ElementType) (g *GridBuffer, err error) {
	if width <= 0 || height <= 0 || bandCount <= 0 {
		err = errors.Wrapf(ErrInvalidDimension, "allocate %dx%dx%d", width, height, bandCount)
		return
	}
	if !elemType.Valid() {
		err = errors.Wrapf(ErrUnsupportedElementType, "allocate %s", elemType)
		return
	}
	bands := make([][]float64, bandCount)
	for i := range bands {
		bands[i] = make([]float64, width*height)
	}
	g = &GridBuffer{
		width:    width,
		height:   height,
		elemType: elemType,
		bands:    bands,
	}
	return
}

// 由已有波段数据构建缓冲区，数据按elemType转换后直接持有（不复制）
func NewGridBuffer(width, height int, elemType ElementType, bands [][]float64, mask []bool) (g *GridBuffer, err error) {
	if width <= 0 || height <= 0 || len(bands) == 0 {
		err = errors.Wrapf(ErrInvalidDimension, "grid %dx%dx%d", width, height, len(bands))
		return
	}
	if !elemType.Valid() {
		err = errors.Wrapf(ErrUnsupportedElementType, "grid %s", elemType)
		return
	}
	n := width * height
	for i, b := range bands {
		if len(b) != n {
			err = errors.Wrapf(ErrInvalidDimension, "band %d has %d pixels, want %d", i, len(b), n)
			return
		}
		coerceInPlace(b, elemType)
	}
	if mask != nil && len(mask) != n {
		err = errors.Wrapf(ErrInvalidDimension, "mask has %d pixels, want %d", len(mask), n)
		return
	}
	g = &GridBuffer{
		width:    width,
		height:   height,
		elemType: elemType,
		bands:    bands,
		mask:     mask,
	}
	return
}

func coerceInPlace(b []float64, t ElementType) {
	if t == Float64 {
		return
	}
	for i, v := range b {
		b[i] = t.Coerce(v)
	}
}

func (g *GridBuffer) Width() int {
	return g.width
}

func (g *GridBuffer) Height() int {
	return g.height
}

func (g *GridBuffer) BandCount() int {
	return len(g.bands)
}

func (g *GridBuffer) ElementType() ElementType {
	return g.elemType
}

// 获取第index个波段（从0开始），返回的切片与缓冲区共享存储
func (g *GridBuffer) Band(index int) (band []float64, err error) {
	if index < 0 || index >= len(g.bands) {
		err = errors.Wrapf(ErrIndexOutOfRange, "band %d of %d", index, len(g.bands))
		return
	}
	band = g.bands[index]
	return
}

// 以data覆盖第index个波段，数据会被复制并按类型转换
func (g *GridBuffer) SetBand(index int, data []float64) (err error) {
	band, err := g.Band(index)
	if err != nil {
		return
	}
	if len(data) != len(band) {
		err = errors.Wrapf(ErrInvalidDimension, "band data has %d pixels, want %d", len(data), len(band))
		return
	}
	for i, v := range data {
		band[i] = g.elemType.Coerce(v)
	}
	return
}

func (g *GridBuffer) Mask() []bool {
	return g.mask
}

// 某像元是否无效
func (g *GridBuffer) Masked(i int) bool {
	return g.mask != nil && g.mask[i]
}

// 替换掩膜。给定fill时，先将旧掩膜标记的像元在所有波段中写为fill，再替换掩膜引用
func (g *GridBuffer) SetMask(mask []bool, fill ...float64) (err error) {
	if mask != nil && len(mask) != g.width*g.height {
		err = errors.Wrapf(ErrInvalidDimension, "mask has %d pixels, want %d", len(mask), g.width*g.height)
		return
	}
	if len(fill) > 0 && g.mask != nil {
		v := g.elemType.Coerce(fill[0])
		for i, m := range g.mask {
			if !m {
				continue
			}
			for _, b := range g.bands {
				b[i] = v
			}
		}
	}
	g.mask = mask
	return
}

// 深拷贝，波段与掩膜均不共享存储
func (g *GridBuffer) Clone() *GridBuffer {
	c := &GridBuffer{
		width:    g.width,
		height:   g.height,
		elemType: g.elemType,
		bands:    make([][]float64, len(g.bands)),
	}
	for i, b := range g.bands {
		c.bands[i] = append([]float64(nil), b...)
	}
	if g.mask != nil {
		c.mask = append([]bool(nil), g.mask...)
	}
	return c
}
