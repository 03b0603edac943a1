package vector

import (
	"fmt"

	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// 集合转GeoJSON要素集，属性写入properties
func ToGeoJSON(c *Collection) (fc *geojson.FeatureCollection, err error) {
	fc = geojson.NewFeatureCollection()
	for i, f := range c.Features {
		geom, e := wkb.Unmarshal(f.Geom)
		if e != nil {
			err = errors.Wrapf(ErrInvalidWKB, "feature %d: %v", i, e)
			fc = nil
			return
		}
		gf := geojson.NewFeature(geom)
		for k, v := range f.Attrs {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return
}

// GeoJSON要素集转集合，非字符串属性格式化为文本，空属性忽略
func FromGeoJSON(fc *geojson.FeatureCollection, srid int) (c *Collection, err error) {
	c = &Collection{SRID: srid, Features: make([]Feature, 0, len(fc.Features))}
	for i, gf := range fc.Features {
		if gf.Geometry == nil {
			continue
		}
		var geom []byte
		if geom, err = wkb.Marshal(gf.Geometry); err != nil {
			err = errors.Wrapf(ErrInvalidWKB, "feature %d: %v", i, err)
			c = nil
			return
		}
		f := Feature{Geom: geom, Attrs: make(map[string]string, len(gf.Properties))}
		for k, v := range gf.Properties {
			switch val := v.(type) {
			case nil:
			case string:
				f.Attrs[k] = val
			default:
				f.Attrs[k] = fmt.Sprint(val)
			}
		}
		c.Features = append(c.Features, f)
	}
	return
}
