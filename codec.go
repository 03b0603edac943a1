package georaster

import (
	"context"

	"github.com/paulmach/orb"
)

// 编解码器读写的栅格内容。Bands为nil时仅含头信息
type Decoded struct {
	Width        int
	Height       int
	BandCount    int
	ElementType  ElementType
	Bands        [][]float64
	GeoTransform [6]float64
	CRS          CRS
	NoData       NoData // 文件中配置的nodata原值，0值的处理由调用方决定
}

// 栅格文件编解码器
type Codec interface {
	Decode(path string) (*Decoded, error)
	Encode(path string, d *Decoded) error
}

// 可只读取头信息的编解码器，用于延迟加载像元数据
type HeaderDecoder interface {
	DecodeHeader(path string) (*Decoded, error)
}

// 坐标转换服务
type Projector interface {
	Project(points []orb.Point, from, to CRS) ([]orb.Point, error)
}

// DEM分析类型
type DEMOperation string

const (
	DEMSlope     DEMOperation = "slope"
	DEMAspect    DEMOperation = "aspect"
	DEMTRI       DEMOperation = "TRI"
	DEMTPI       DEMOperation = "TPI"
	DEMRoughness DEMOperation = "roughness"
)

// 外部DEM分析工具
type DEMProcessor interface {
	Process(ctx context.Context, op DEMOperation, src *RasterDataset) (*RasterDataset, error)
}
