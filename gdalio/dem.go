package gdalio

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/log"
	"github.com/wgdzlh/georaster/utils"
)

var ErrDEMCommand = errors.New("dem command failed")

// 调用gdaldem进行地形分析，中间文件写入tmpDir下的临时子目录，结束后删除
type DEMTool struct {
	tmpDir        string
	command       string
	codec         *Codec
	defaultNoData *float64
	keepZero      bool
	logTag        string
}

func NewDEMTool(cfg gr.Config, codec *Codec) *DEMTool {
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	if cfg.DEMCommand == "" {
		cfg.DEMCommand = gr.DefaultDEMCommand
	}
	return &DEMTool{
		tmpDir:        cfg.TmpDir,
		command:       cfg.DEMCommand,
		codec:         codec,
		defaultNoData: cfg.DefaultNoData,
		keepZero:      cfg.KeepZeroNoData,
		logTag:        "DEMTool:",
	}
}

func (d *DEMTool) Process(ctx context.Context, op gr.DEMOperation, src *gr.RasterDataset) (out *gr.RasterDataset, err error) {
	workDir, err := utils.GetUniqSubDir(d.tmpDir)
	if err != nil {
		return
	}
	defer func() {
		err = multierr.Append(err, os.RemoveAll(workDir))
	}()
	in := utils.GetUniqFile(workDir, gr.FILE_EXT_TIF)
	dst := utils.GetUniqFile(workDir, gr.FILE_EXT_TIF)
	decoded, err := src.ToDecoded(d.defaultNoData)
	if err != nil {
		return
	}
	if err = d.codec.Encode(in, decoded); err != nil {
		return
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.command, string(op), in, dst, "-of", "GTiff", "-compute_edges")
	cmd.Stderr = &stderr
	log.Info(d.logTag+"run dem command", zap.String("cmd", cmd.String()))
	if err = cmd.Run(); err != nil {
		log.Error(d.logTag+"dem command failed", zap.String("op", string(op)), zap.String("stderr", stderr.String()),
			zap.Error(err))
		err = errors.Wrapf(ErrDEMCommand, "%s: %v", op, err)
		return
	}
	res, err := d.codec.Decode(dst)
	if err != nil {
		return
	}
	if !res.NoData.Valid {
		res.NoData = gr.NoDataValue(gr.TopoNoData)
	}
	if out, err = gr.FromDecoded(res, d.keepZero); err != nil {
		return
	}
	if out.CRS().IsZero() {
		out.SetCRS(src.CRS())
	}
	log.Info(d.logTag+"dem processing done", zap.String("op", string(op)), zap.Int("width", out.Width()),
		zap.Int("height", out.Height()))
	return
}
