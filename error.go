package georaster

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDimension       = errors.New("invalid raster dimension")
	ErrIndexOutOfRange        = errors.New("index out of range")
	ErrBandCountMismatch      = errors.New("band count mismatch")
	ErrDisjointExtent         = errors.New("raster extents are disjoint")
	ErrUnsupportedElementType = errors.New("unsupported element type")
	ErrUnsupportedOperation   = errors.New("unsupported operation")
	ErrClassMismatch          = errors.New("reclassify classes and outputs differ in length")
	ErrInvalidExpression      = errors.New("invalid band expression")
	ErrCodec                  = errors.New("codec err")
	ErrNoCodec                = errors.New("no codec for file extension")
	ErrNoCollaborator         = errors.New("collaborator not configured")
	ErrEmptyRaster            = errors.New("empty raster")
)

// 编解码器返回的错误，保留原始错误供errors.Is/As判断
type CodecError struct {
	Op   string // decode/encode
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

func codecErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CodecError
	if errors.As(err, &ce) {
		return err
	}
	return &CodecError{Op: op, Path: path, Err: err}
}
