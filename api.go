package georaster

import "math"

// 可选的nodata值，Valid为false表示未配置
type NoData struct {
	Value float64
	Valid bool
}

func NoDataValue(v float64) NoData {
	return NoData{Value: v, Valid: true}
}

// 像元值是否等于nodata，NaN与NaN视为相等
func (n NoData) Matches(v float64) bool {
	if !n.Valid {
		return false
	}
	if math.IsNaN(n.Value) {
		return math.IsNaN(v)
	}
	return v == n.Value
}

// 栅格输入：已加载的数据集或待加载的文件路径
type RasterInput struct {
	ds   *RasterDataset
	path string
}

func Loaded(ds *RasterDataset) RasterInput {
	return RasterInput{ds: ds}
}

func PathRef(path string) RasterInput {
	return RasterInput{path: path}
}

func (in RasterInput) Dataset() *RasterDataset {
	return in.ds
}

func (in RasterInput) Path() string {
	return in.path
}

// 运算操作数：栅格或标量
type Operand struct {
	raster *RasterDataset
	scalar float64
}

func Scalar(v float64) Operand {
	return Operand{scalar: v}
}

func Raster(r *RasterDataset) Operand {
	return Operand{raster: r}
}

func (o Operand) IsRaster() bool {
	return o.raster != nil
}
