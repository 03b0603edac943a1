package georaster

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wgdzlh/georaster/log"
)

// 栅格运算类型
type Operation int

const (
	OpAdd Operation = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAnd
	OpOr
	OpNot
	OpMaximum
	OpMinimum
	OpRound        // 按小数位数舍入，标量操作数为位数
	OpRoundInteger // 舍入到整数
	OpRoundFix     // 向零取整
	OpRoundFloor
	OpRoundCeiling
	OpTruncate
	OpNaturalLog
	OpLog10
	OpExponential
	OpPower
	OpSquare
	OpSquareRoot
	OpAbsoluteValue
)

var opNames = map[Operation]string{
	OpAdd: "add", OpSubtract: "subtract", OpMultiply: "multiply", OpDivide: "divide",
	OpEqual: "equal", OpNotEqual: "not_equal", OpLessThan: "less", OpLessThanOrEqual: "less_equal",
	OpGreaterThan: "greater", OpGreaterThanOrEqual: "greater_equal",
	OpAnd: "and", OpOr: "or", OpNot: "not", OpMaximum: "max", OpMinimum: "min",
	OpRound: "round", OpRoundInteger: "round_int", OpRoundFix: "fix", OpRoundFloor: "floor",
	OpRoundCeiling: "ceil", OpTruncate: "trunc",
	OpNaturalLog: "ln", OpLog10: "log10", OpExponential: "exp", OpPower: "pow",
	OpSquare: "square", OpSquareRoot: "sqrt", OpAbsoluteValue: "abs",
}

func (op Operation) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "unknown"
}

// 只作用于输入栅格、不使用操作数的运算
func (op Operation) Unary() bool {
	switch op {
	case OpNot, OpRoundInteger, OpRoundFix, OpRoundFloor, OpRoundCeiling, OpTruncate,
		OpNaturalLog, OpLog10, OpExponential, OpSquare, OpSquareRoot, OpAbsoluteValue:
		return true
	}
	return false
}

// 结果为0/1的运算，输出Uint8
func (op Operation) Boolean() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessThanOrEqual, OpGreaterThan, OpGreaterThanOrEqual,
		OpAnd, OpOr, OpNot, OpMaximum, OpMinimum:
		return true
	}
	return false
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// 逻辑运算中非0即为真
func truthy(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

func roundTo(v, decimals float64) float64 {
	p := math.Pow(10, math.Trunc(decimals))
	return math.RoundToEven(v*p) / p
}

// 单个像元的运算
func (op Operation) apply(x, y float64) (v float64, ok bool) {
	ok = true
	switch op {
	case OpAdd:
		v = x + y
	case OpSubtract:
		v = x - y
	case OpMultiply:
		v = x * y
	case OpDivide:
		v = x / y
	case OpEqual:
		v = boolVal(x == y)
	case OpNotEqual:
		v = boolVal(x != y)
	case OpLessThan:
		v = boolVal(x < y)
	case OpLessThanOrEqual:
		v = boolVal(x <= y)
	case OpGreaterThan:
		v = boolVal(x > y)
	case OpGreaterThanOrEqual:
		v = boolVal(x >= y)
	case OpAnd:
		v = boolVal(truthy(x) && truthy(y))
	case OpOr:
		v = boolVal(truthy(x) || truthy(y))
	case OpNot:
		v = boolVal(!truthy(x))
	case OpMaximum:
		v = math.Max(x, y)
	case OpMinimum:
		v = math.Min(x, y)
	case OpRound:
		v = roundTo(x, y)
	case OpRoundInteger:
		v = math.RoundToEven(x)
	case OpRoundFix, OpTruncate:
		v = math.Trunc(x)
	case OpRoundFloor:
		v = math.Floor(x)
	case OpRoundCeiling:
		v = math.Ceil(x)
	case OpNaturalLog:
		v = math.Log(x)
	case OpLog10:
		v = math.Log10(x)
	case OpExponential:
		v = math.Exp(x)
	case OpPower:
		v = math.Pow(x, y)
	case OpSquare:
		v = x * x
	case OpSquareRoot:
		v = math.Sqrt(x)
	case OpAbsoluteValue:
		v = math.Abs(x)
	default:
		ok = false
	}
	return
}

// 逐像元运算，操作数为标量或栅格。栅格操作数先经ResampleToMatch对齐，
// 结果掩膜为双方掩膜之并；标量操作数时沿用输入的掩膜
func (r *RasterDataset) Math(op Operation, operand Operand) (out *RasterDataset, err error) {
	if _, ok := op.apply(1, 1); !ok {
		err = errors.Wrapf(ErrUnsupportedOperation, "operation %d", op)
		return
	}
	if operand.IsRaster() {
		return r.mathRaster(op, operand.raster)
	}
	return r.mathScalar(op, operand.scalar)
}

func outputType(op Operation, a, b ElementType) ElementType {
	if op.Boolean() {
		return Uint8
	}
	return Promote(a, b)
}

func (r *RasterDataset) mathScalar(op Operation, s float64) (out *RasterDataset, err error) {
	grid, err := r.Grid()
	if err != nil {
		return
	}
	elemType := outputType(op, grid.elemType, grid.elemType)
	if out, err = r.emptyLike(r.width, r.height, len(grid.bands), elemType, r.geo); err != nil {
		return
	}
	if op.Boolean() {
		out.nodata = booleanNoData(out.nodata)
	}
	s = grid.elemType.operand(s)
	dst := out.grid
	var eg errgroup.Group
	for i := range grid.bands {
		src, res := grid.bands[i], dst.bands[i]
		eg.Go(func() error {
			for j, x := range src {
				v, _ := op.apply(x, s)
				res[j] = elemType.Coerce(v)
			}
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return
	}
	if grid.mask != nil {
		dst.mask = append([]bool(nil), grid.mask...)
	}
	log.Debug("RasterAlgebra:scalar op done", zap.Stringer("op", op), zap.Float64("operand", s))
	return
}

func (r *RasterDataset) mathRaster(op Operation, other *RasterDataset) (out *RasterDataset, err error) {
	if op.Unary() || op == OpRound {
		err = errors.Wrapf(ErrUnsupportedOperation, "%s with raster operand", op)
		return
	}
	if r.numBands != other.numBands {
		err = errors.Wrapf(ErrBandCountMismatch, "%d and %d", r.numBands, other.numBands)
		return
	}
	a, b, err := ResampleToMatch(r, other)
	if err != nil {
		return
	}
	ga, gb := a.grid, b.grid
	elemType := outputType(op, ga.elemType, gb.elemType)
	if out, err = a.emptyLike(a.width, a.height, len(ga.bands), elemType, a.geo); err != nil {
		return
	}
	if op.Boolean() {
		out.nodata = booleanNoData(out.nodata)
	}
	dst := out.grid
	var eg errgroup.Group
	for i := range ga.bands {
		x, y, res := ga.bands[i], gb.bands[i], dst.bands[i]
		eg.Go(func() error {
			for j := range res {
				v, _ := op.apply(x[j], y[j])
				res[j] = elemType.Coerce(v)
			}
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return
	}
	dst.mask = orMask(ga.mask, gb.mask)
	log.Debug("RasterAlgebra:raster op done", zap.Stringer("op", op), zap.Int("width", a.width), zap.Int("height", a.height))
	return
}

// 0/1结果中继承的nodata若为0或1会与有效值混淆，此时不再保留
func booleanNoData(nd NoData) NoData {
	if nd.Valid && (nd.Value == 0 || nd.Value == 1) {
		return NoData{}
	}
	return nd
}

func orMask(a, b []bool) []bool {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return append([]bool(nil), b...)
	case b == nil:
		return append([]bool(nil), a...)
	}
	m := make([]bool, len(a))
	for i := range m {
		m[i] = a[i] || b[i]
	}
	return m
}

func (r *RasterDataset) Add(o Operand) (*RasterDataset, error) { return r.Math(OpAdd, o) }

func (r *RasterDataset) Subtract(o Operand) (*RasterDataset, error) { return r.Math(OpSubtract, o) }

func (r *RasterDataset) Multiply(o Operand) (*RasterDataset, error) { return r.Math(OpMultiply, o) }

func (r *RasterDataset) Divide(o Operand) (*RasterDataset, error) { return r.Math(OpDivide, o) }

func (r *RasterDataset) Equal(o Operand) (*RasterDataset, error) { return r.Math(OpEqual, o) }

func (r *RasterDataset) NotEqual(o Operand) (*RasterDataset, error) { return r.Math(OpNotEqual, o) }

func (r *RasterDataset) LessThan(o Operand) (*RasterDataset, error) { return r.Math(OpLessThan, o) }

func (r *RasterDataset) LessThanOrEqual(o Operand) (*RasterDataset, error) {
	return r.Math(OpLessThanOrEqual, o)
}

func (r *RasterDataset) GreaterThan(o Operand) (*RasterDataset, error) {
	return r.Math(OpGreaterThan, o)
}

func (r *RasterDataset) GreaterThanOrEqual(o Operand) (*RasterDataset, error) {
	return r.Math(OpGreaterThanOrEqual, o)
}

func (r *RasterDataset) And(o Operand) (*RasterDataset, error) { return r.Math(OpAnd, o) }

func (r *RasterDataset) Or(o Operand) (*RasterDataset, error) { return r.Math(OpOr, o) }

func (r *RasterDataset) Not() (*RasterDataset, error) { return r.Math(OpNot, Scalar(0)) }

func (r *RasterDataset) Maximum(o Operand) (*RasterDataset, error) { return r.Math(OpMaximum, o) }

func (r *RasterDataset) Minimum(o Operand) (*RasterDataset, error) { return r.Math(OpMinimum, o) }

// 保留decimals位小数，银行家舍入
func (r *RasterDataset) Round(decimals int) (*RasterDataset, error) {
	return r.Math(OpRound, Scalar(float64(decimals)))
}

func (r *RasterDataset) RoundInteger() (*RasterDataset, error) { return r.Math(OpRoundInteger, Scalar(0)) }

func (r *RasterDataset) RoundFix() (*RasterDataset, error) { return r.Math(OpRoundFix, Scalar(0)) }

func (r *RasterDataset) RoundFloor() (*RasterDataset, error) { return r.Math(OpRoundFloor, Scalar(0)) }

func (r *RasterDataset) RoundCeiling() (*RasterDataset, error) { return r.Math(OpRoundCeiling, Scalar(0)) }

func (r *RasterDataset) Truncate() (*RasterDataset, error) { return r.Math(OpTruncate, Scalar(0)) }

func (r *RasterDataset) NaturalLog() (*RasterDataset, error) { return r.Math(OpNaturalLog, Scalar(0)) }

func (r *RasterDataset) Log10() (*RasterDataset, error) { return r.Math(OpLog10, Scalar(0)) }

func (r *RasterDataset) Exponential() (*RasterDataset, error) { return r.Math(OpExponential, Scalar(0)) }

func (r *RasterDataset) Power(o Operand) (*RasterDataset, error) { return r.Math(OpPower, o) }

func (r *RasterDataset) Square() (*RasterDataset, error) { return r.Math(OpSquare, Scalar(0)) }

func (r *RasterDataset) SquareRoot() (*RasterDataset, error) { return r.Math(OpSquareRoot, Scalar(0)) }

func (r *RasterDataset) AbsoluteValue() (*RasterDataset, error) {
	return r.Math(OpAbsoluteValue, Scalar(0))
}
