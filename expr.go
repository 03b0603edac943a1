package georaster

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	goeval "github.com/edisonguo/govaluate"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wgdzlh/georaster/log"
)

const bandVarPrefix = "b"

// 解析波段表达式，变量只能为b1..bN（N为波段数），返回表达式及其引用的波段下标（从0开始）
func parseBandExpression(expression string, numBands int) (expr *goeval.EvaluableExpression, used map[string]int, err error) {
	expr, err = goeval.NewEvaluableExpression(expression)
	if err != nil {
		err = errors.Wrapf(ErrInvalidExpression, "%q: %v", expression, err)
		return
	}
	used = map[string]int{}
	for _, token := range expr.Tokens() {
		if token.Kind != goeval.VARIABLE {
			continue
		}
		name, ok := token.Value.(string)
		if !ok {
			err = errors.Wrapf(ErrInvalidExpression, "variable token '%v' failed to cast string", token.Value)
			return
		}
		idx, e := strconv.Atoi(strings.TrimPrefix(strings.ToLower(name), bandVarPrefix))
		if e != nil || !strings.HasPrefix(strings.ToLower(name), bandVarPrefix) || idx < 1 || idx > numBands {
			err = errors.Wrapf(ErrInvalidExpression, "unknown variable %q, expect b1..b%d", name, numBands)
			return
		}
		used[name] = idx - 1
	}
	return
}

// 按表达式逐像元计算，如"(b1 - b2) / (b1 + b2)"。输出为单波段Float32；
// 输入掩膜的像元、计算失败或结果非有限值的像元在输出中标为无效
func (r *RasterDataset) Calculate(expression string) (out *RasterDataset, err error) {
	expr, used, err := parseBandExpression(expression, r.numBands)
	if err != nil {
		return
	}
	grid, err := r.Grid()
	if err != nil {
		return
	}
	if out, err = r.emptyLike(r.width, r.height, 1, Float32, r.geo); err != nil {
		return
	}
	var (
		res     = out.grid.bands[0]
		mask    = make([]bool, len(res))
		workers = runtime.GOMAXPROCS(0)
		rows    = (r.height + workers - 1) / workers
		eg      errgroup.Group
	)
	for start := 0; start < r.height; start += rows {
		lo, hi := start*r.width, min(start+rows, r.height)*r.width
		eg.Go(func() error {
			params := make(map[string]interface{}, len(used))
			for i := lo; i < hi; i++ {
				if grid.Masked(i) {
					mask[i] = true
					continue
				}
				for name, b := range used {
					params[name] = grid.bands[b][i]
				}
				v, ok := evalPixel(expr, params)
				if !ok {
					mask[i] = true
					continue
				}
				res[i] = Float32.Coerce(v)
			}
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return
	}
	if hasTrue(mask) {
		out.grid.mask = mask
	}
	log.Debug("RasterDataset:expression evaluated", zap.String("expr", expression), zap.Int("bands", len(used)))
	return
}

func evalPixel(expr *goeval.EvaluableExpression, params map[string]interface{}) (v float64, ok bool) {
	ret, err := expr.Evaluate(params)
	if err != nil {
		return
	}
	switch t := ret.(type) {
	case float64:
		v = t
	case bool:
		v = boolVal(t)
	default:
		f, e := strconv.ParseFloat(fmt.Sprint(t), 64)
		if e != nil {
			return
		}
		v = f
	}
	ok = !math.IsNaN(v) && !math.IsInf(v, 0)
	return
}

func hasTrue(m []bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}
