package georaster

import (
	"math"
	"strings"
)

// 像元数据类型
type ElementType int

const (
	Unknown ElementType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var elemTypeNames = [...]string{"Unknown", "Int8", "Uint8", "Int16", "Uint16", "Int32", "Uint32", "Float32", "Float64"}

func (t ElementType) String() string {
	if t < Unknown || int(t) >= len(elemTypeNames) {
		return elemTypeNames[Unknown]
	}
	return elemTypeNames[t]
}

// 按名称（不区分大小写）解析数据类型，如"float32"、"UInt16"
func ParseElementType(name string) (t ElementType, err error) {
	for i, n := range elemTypeNames[1:] {
		if strings.EqualFold(n, name) {
			t = ElementType(i + 1)
			return
		}
	}
	err = ErrUnsupportedElementType
	return
}

func (t ElementType) Valid() bool {
	return t > Unknown && t <= Float64
}

func (t ElementType) IsInteger() bool {
	return t >= Int8 && t <= Uint32
}

func (t ElementType) IsSigned() bool {
	switch t {
	case Int8, Int16, Int32, Float32, Float64:
		return true
	}
	return false
}

// 单个像元的字节数
func (t ElementType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// 整型的取值范围；浮点型返回(-Inf, +Inf)
func (t ElementType) Range() (lo, hi float64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	}
	return math.Inf(-1), math.Inf(1)
}

// 将v转换为该类型可表示的值：整型向零截断并饱和到取值范围，NaN记为0；Float32按单精度舍入
func (t ElementType) Coerce(v float64) float64 {
	switch t {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	}
	if math.IsNaN(v) {
		return 0
	}
	lo, hi := t.Range()
	v = math.Trunc(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// 与该类型像元比较或运算的标量：Float32按单精度舍入，其余类型保持原值
func (t ElementType) operand(v float64) float64 {
	if t == Float32 {
		return t.Coerce(v)
	}
	return v
}

// 保存带掩膜的栅格时，无nodata配置情况下的默认无效值
func (t ElementType) DefaultNoData() float64 {
	switch t {
	case Int8, Int16, Int32:
		lo, _ := t.Range()
		return lo
	case Uint8, Uint16, Uint32:
		_, hi := t.Range()
		return hi
	}
	return TopoNoData
}

// 两种类型参与运算时的结果类型：能无损容纳双方取值的最窄类型
func Promote(a, b ElementType) ElementType {
	if a == b {
		return a
	}
	if !a.Valid() {
		return b
	}
	if !b.Valid() {
		return a
	}
	if a.IsInteger() && b.IsInteger() {
		return promoteInt(a, b)
	}
	if !a.IsInteger() && !b.IsInteger() {
		return Float64
	}
	if a.IsInteger() {
		a, b = b, a
	}
	// a为浮点，b为整型
	if a == Float32 && b.Size() <= 2 {
		return Float32
	}
	return Float64
}

func promoteInt(a, b ElementType) ElementType {
	if a.IsSigned() == b.IsSigned() {
		if a.Size() >= b.Size() {
			return a
		}
		return b
	}
	if !a.IsSigned() {
		a, b = b, a
	}
	// a有符号，b无符号
	if a.Size() > b.Size() {
		return a
	}
	switch b.Size() {
	case 1:
		return Int16
	case 2:
		return Int32
	}
	return Float64
}
