package georaster

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	FILE_EXT_ASC  = ".asc"
	FILE_EXT_TIF  = ".tif"
	FILE_EXT_TIFF = ".tiff"
	FILE_EXT_IMG  = ".img"
	FILE_EXT_PNG  = ".png"
	FILE_EXT_JPG  = ".jpg"
	FILE_EXT_PRJ  = ".prj"
	FILE_EXT_AUX  = ".aux.yaml"

	UNIVERSAL_SRID = 4326
	WEB_MERC_SRID  = 3857

	DefaultZeroEpsilon = 1e-8
	DefaultDEMCommand  = "gdaldem"

	// 地形分析结果统一使用的无效值
	TopoNoData = -9999
)

type Config struct {
	TmpDir         string   `yaml:"tmp_dir"`          // 临时目录，外部工具的中间文件放于此
	LogLevel       string   `yaml:"log_level"`        // debug/info/warn/error，供调用方传给log.Init
	ZeroEpsilon    float64  `yaml:"zero_epsilon"`     // 缩放前绝对值小于此值的像元视为0
	KeepZeroNoData bool     `yaml:"keep_zero_nodata"` // 为true时，编解码器给出的0视为有效的nodata值
	DefaultNoData  *float64 `yaml:"default_nodata"`   // 保存带掩膜但无nodata的栅格时使用
	GTiffOptions   []string `yaml:"gtiff_options"`    // GeoTIFF创建参数，如COMPRESS=LZW
	DEMCommand     string   `yaml:"dem_command"`
}

func DefaultConfig() Config {
	return Config{
		TmpDir:       os.TempDir(),
		LogLevel:     "info",
		ZeroEpsilon:  DefaultZeroEpsilon,
		GTiffOptions: []string{"COMPRESS=LZW"},
		DEMCommand:   DefaultDEMCommand,
	}
}

// 从YAML文件加载配置，未配置的字段取默认值
func LoadConfig(path string) (cfg Config, err error) {
	cfg = DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "read config %s", path)
		return
	}
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		err = errors.Wrapf(err, "parse config %s", path)
		return
	}
	cfg.fill()
	return
}

func (c *Config) fill() {
	def := DefaultConfig()
	if c.TmpDir == "" {
		c.TmpDir = def.TmpDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ZeroEpsilon <= 0 {
		c.ZeroEpsilon = def.ZeroEpsilon
	}
	if c.DEMCommand == "" {
		c.DEMCommand = def.DEMCommand
	}
}
