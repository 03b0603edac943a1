package georaster

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/wgdzlh/georaster/utils"
)

// ESRI ASCII格网（.asc）编解码器，单波段，坐标系存于同名.prj，数据类型存于同名.aux.yaml。
// 无.aux.yaml时按文本推断：整数值读为Int32，可由单精度无损表示的小数读为Float32，其余为Float64
type AsciiGridCodec struct{}

// .aux.yaml的内容
type asciiAux struct {
	ElementType string `yaml:"element_type"`
}

type asciiHeader struct {
	ncols, nrows     int
	xll, yll         float64
	center           bool
	dx, dy           float64
	nodata           NoData
	xllSeen, yllSeen bool
}

func (AsciiGridCodec) Decode(path string) (d *Decoded, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	d, err = decodeAsciiGrid(f)
	if err != nil {
		err = errors.Wrapf(err, "ascii grid %s", path)
		return
	}
	if d.CRS, err = readPrj(path); err != nil {
		return
	}
	t, ok, err := readAux(path)
	if err != nil || !ok {
		return
	}
	d.ElementType = t
	coerceInPlace(d.Bands[0], t)
	return
}

func readAux(path string) (t ElementType, ok bool, err error) {
	raw, err := os.ReadFile(utils.ReplaceExt(path, FILE_EXT_AUX))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
		return
	}
	if err != nil {
		return
	}
	var aux asciiAux
	if err = yaml.Unmarshal(raw, &aux); err != nil {
		err = errors.Wrapf(err, "aux of %s", path)
		return
	}
	if t, err = ParseElementType(aux.ElementType); err != nil {
		err = errors.Wrapf(err, "aux of %s: %q", path, aux.ElementType)
		return
	}
	ok = true
	return
}

// 数据类型无效时删除旧的.aux.yaml
func writeAux(path string, t ElementType) (err error) {
	aux := utils.ReplaceExt(path, FILE_EXT_AUX)
	if !t.Valid() {
		if e := os.Remove(aux); e != nil && !errors.Is(e, os.ErrNotExist) {
			err = e
		}
		return
	}
	raw, err := yaml.Marshal(asciiAux{ElementType: t.String()})
	if err != nil {
		return
	}
	return os.WriteFile(aux, raw, 0o644)
}

func readPrj(path string) (crs CRS, err error) {
	raw, err := os.ReadFile(utils.ReplaceExt(path, FILE_EXT_PRJ))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
		return
	}
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return
	}
	return ParseCRS(string(raw))
}

func isKeyword(tok string) bool {
	return tok != "" && unicode.IsLetter(rune(tok[0])) &&
		!strings.EqualFold(tok, "nan") && !strings.HasPrefix(strings.ToLower(tok), "inf")
}

func decodeAsciiGrid(reader io.Reader) (d *Decoded, err error) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanWords)
	var (
		hdr   asciiHeader
		first string
	)
	for scanner.Scan() {
		tok := scanner.Text()
		if !isKeyword(tok) {
			first = tok
			break
		}
		if !scanner.Scan() {
			err = errors.Errorf("header %s without value", tok)
			return
		}
		if err = hdr.set(tok, scanner.Text()); err != nil {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if err = hdr.validate(); err != nil {
		return
	}
	n := hdr.ncols * hdr.nrows
	var (
		band    = make([]float64, 0, n)
		isInt   = true
		isFloat = true
	)
	parse := func(tok string) error {
		v, e := strconv.ParseFloat(tok, 64)
		if e != nil {
			return errors.Wrapf(e, "pixel %d", len(band))
		}
		if strings.ContainsAny(tok, ".eEnN") || v < math.MinInt32 || v > math.MaxInt32 {
			isInt = false
		}
		if !math.IsNaN(v) && float64(float32(v)) != v {
			isFloat = false
		}
		band = append(band, v)
		return nil
	}
	if first != "" {
		if err = parse(first); err != nil {
			return
		}
	}
	for len(band) < n && scanner.Scan() {
		if err = parse(scanner.Text()); err != nil {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if len(band) != n {
		err = errors.Wrapf(ErrInvalidDimension, "got %d pixels, want %d", len(band), n)
		return
	}
	elemType := Float64
	switch {
	case isInt:
		elemType = Int32
	case isFloat:
		elemType = Float32
	}
	originX, originY := hdr.xll, hdr.yll+float64(hdr.nrows)*hdr.dy
	if hdr.center {
		originX -= hdr.dx / 2
		originY -= hdr.dy / 2
	}
	d = &Decoded{
		Width:        hdr.ncols,
		Height:       hdr.nrows,
		BandCount:    1,
		ElementType:  elemType,
		Bands:        [][]float64{band},
		GeoTransform: [6]float64{originX, hdr.dx, 0, originY, 0, -hdr.dy},
		NoData:       hdr.nodata,
	}
	return
}

func (h *asciiHeader) set(key, val string) (err error) {
	var f float64
	switch strings.ToUpper(key) {
	case "NCOLS":
		h.ncols, err = strconv.Atoi(val)
		return
	case "NROWS":
		h.nrows, err = strconv.Atoi(val)
		return
	}
	if f, err = strconv.ParseFloat(val, 64); err != nil {
		return errors.Wrapf(err, "header %s", key)
	}
	switch strings.ToUpper(key) {
	case "XLLCORNER":
		h.xll, h.xllSeen = f, true
	case "YLLCORNER":
		h.yll, h.yllSeen = f, true
	case "XLLCENTER":
		h.xll, h.xllSeen, h.center = f, true, true
	case "YLLCENTER":
		h.yll, h.yllSeen, h.center = f, true, true
	case "CELLSIZE":
		h.dx, h.dy = f, f
	case "DX":
		h.dx = f
	case "DY":
		h.dy = f
	case "NODATA_VALUE":
		h.nodata = NoDataValue(f)
	default:
		err = errors.Errorf("unknown header %s", key)
	}
	return
}

func (h *asciiHeader) validate() error {
	if h.ncols <= 0 || h.nrows <= 0 {
		return errors.Wrapf(ErrInvalidDimension, "ncols %d, nrows %d", h.ncols, h.nrows)
	}
	if !h.xllSeen || !h.yllSeen {
		return errors.New("missing lower-left corner")
	}
	if h.dx <= 0 || h.dy <= 0 {
		return errors.Wrapf(ErrInvalidDimension, "cell size (%v, %v)", h.dx, h.dy)
	}
	return nil
}

func (AsciiGridCodec) Encode(path string, d *Decoded) (err error) {
	if len(d.Bands) != 1 {
		return errors.Wrapf(ErrUnsupportedOperation, "ascii grid with %d bands", len(d.Bands))
	}
	gt := d.GeoTransform
	if gt[1] <= 0 || gt[5] >= 0 || gt[2] != 0 || gt[4] != 0 {
		return errors.Wrapf(ErrUnsupportedOperation, "ascii grid with geotransform %v", gt)
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = encodeAsciiGrid(w, d); err != nil {
		return
	}
	if err = w.Flush(); err != nil {
		return
	}
	if err = writeAux(path, d.ElementType); err != nil {
		return
	}
	prj := utils.ReplaceExt(path, FILE_EXT_PRJ)
	if d.CRS.IsZero() {
		if e := os.Remove(prj); e != nil && !errors.Is(e, os.ErrNotExist) {
			err = e
		}
		return
	}
	err = os.WriteFile(prj, []byte(d.CRS.String()), 0o644)
	return
}

func encodeAsciiGrid(w *bufio.Writer, d *Decoded) (err error) {
	gt := d.GeoTransform
	dx, dy := gt[1], -gt[5]
	var sb strings.Builder
	sb.WriteString("NCOLS " + strconv.Itoa(d.Width) + "\n")
	sb.WriteString("NROWS " + strconv.Itoa(d.Height) + "\n")
	sb.WriteString("XLLCORNER " + formatFloat(gt[0]) + "\n")
	sb.WriteString("YLLCORNER " + formatFloat(gt[3]-float64(d.Height)*dy) + "\n")
	if dx == dy {
		sb.WriteString("CELLSIZE " + formatFloat(dx) + "\n")
	} else {
		sb.WriteString("DX " + formatFloat(dx) + "\n")
		sb.WriteString("DY " + formatFloat(dy) + "\n")
	}
	if d.NoData.Valid {
		sb.WriteString("NODATA_VALUE " + formatValue(d.NoData.Value, d.ElementType) + "\n")
	}
	if _, err = w.WriteString(sb.String()); err != nil {
		return
	}
	band := d.Bands[0]
	for row := 0; row < d.Height; row++ {
		for col := 0; col < d.Width; col++ {
			if col > 0 {
				if err = w.WriteByte(' '); err != nil {
					return
				}
			}
			if _, err = w.WriteString(formatValue(band[row*d.Width+col], d.ElementType)); err != nil {
				return
			}
		}
		if err = w.WriteByte('\n'); err != nil {
			return
		}
	}
	return
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// 整型写为整数，浮点型总带小数点，无.aux.yaml时读回也能区分整型与浮点
func formatValue(v float64, t ElementType) string {
	if t.IsInteger() {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := formatFloat(v)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
