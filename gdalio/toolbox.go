package gdalio

import (
	gr "github.com/wgdzlh/georaster"
)

// GDAL支持的栅格格式扩展名
var RasterExts = []string{gr.FILE_EXT_TIF, gr.FILE_EXT_TIFF, gr.FILE_EXT_IMG, gr.FILE_EXT_PNG, gr.FILE_EXT_JPG, ".jpeg"}

// 初始化带GDAL协作者的栅格工具箱：GDAL编解码器、OGR坐标转换与gdaldem地形分析。
// .asc仍由纯Go编解码器处理
func NewToolbox(cfg gr.Config, opts ...gr.Option) *gr.Toolbox {
	var (
		srs   = NewSrsCache()
		codec = NewCodec(srs, cfg.GTiffOptions)
	)
	gdalOpts := []gr.Option{
		gr.WithCodec(codec, RasterExts...),
		gr.WithProjector(NewProjector(srs)),
		gr.WithDEMProcessor(NewDEMTool(cfg, codec)),
	}
	return gr.NewToolbox(cfg, append(gdalOpts, opts...)...)
}
