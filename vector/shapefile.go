package vector

import (
	"sort"
	"unicode/utf8"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"

	"github.com/wgdzlh/georaster/log"
	"github.com/wgdzlh/georaster/utils"
)

// 读取shp全部要素。cpg缺失或不为UTF-8时，属性按GBK转码
func (o *Overlay) LoadShapefile(shp string) (ret *Collection, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	srid, err := o.srs.Srid(layer.SpatialReference())
	if err != nil {
		log.Error(o.logTag+"no srid in shp", zap.String("shp", shp), zap.Error(err))
		return
	}
	var (
		def     = layer.Definition()
		names   = make([]string, def.FieldCount())
		isUtf8  = utils.IsUtf8Shapefile(shp)
		feature *gdal.Feature
		wkb     []byte
		e       error
		gc      []destroyable
	)
	for i := range names {
		names[i] = decodeAttr(def.FieldDefinition(i).Name(), isUtf8)
	}
	defer func() {
		destroyAll(gc)
	}()
	ret = &Collection{SRID: srid, Features: make([]Feature, 0, 128)}
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		geo := feature.Geometry()
		if wkb, e = geo.ToWKB(); e != nil {
			log.Error(o.logTag+"err in wkb convert", zap.String("geom", geo.ToGML()), zap.Error(e))
			continue
		}
		f := Feature{Geom: wkb, Attrs: make(map[string]string, len(names))}
		for i, name := range names {
			f.Attrs[name] = decodeAttr(feature.FieldAsString(i), isUtf8)
		}
		ret.Features = append(ret.Features, f)
	}
	log.Info(o.logTag+"shp loaded", zap.String("shp", shp), zap.Int("srid", srid),
		zap.Int("features", len(ret.Features)), zap.Bool("utf8", isUtf8))
	return
}

// GDAL已按cpg转码的字段保持不变
func decodeAttr(s string, isUtf8 bool) string {
	if !isUtf8 && !utf8.ValidString(s) {
		if d, e := utils.GbkStrToUtf8(s); e == nil {
			s = d
		}
	}
	return utils.PurifyForUtf8(s)
}

// 将集合写入shp（UTF-8属性表），属性字段取全部要素属性名的并集
func (o *Overlay) WriteShapefile(shp string, c *Collection) (err error) {
	ref, err := o.sridRef(c.SRID)
	if err != nil {
		return
	}
	log.Info(o.logTag+"output shp files", zap.String("shp", shp), zap.Int("srid", c.SRID))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		err = ErrGdalDriverCreate
		return
	}
	defer ds.Destroy() // 生成shp文件 + 释放资源
	layer := ds.CreateLayer(utils.GetFilenameWithoutExt(shp), ref, gdal.GT_Unknown, []string{ENCODING_OPTION})
	fields := attrNames(c)
	for _, name := range fields {
		fd := gdal.CreateFieldDefinition(name, gdal.FT_String)
		fd.SetWidth(SHP_FIELD_WIDTH)
		err = layer.CreateField(fd, false)
		fd.Destroy()
		if err != nil {
			return
		}
	}
	var (
		def     = layer.Definition()
		feature gdal.Feature
		geo     gdal.Geometry
		cnt     int
		e       error
		gc      = make([]destroyable, 0, len(c.Features))
	)
	defer func() {
		destroyAll(gc)
	}()
	for i, f := range c.Features {
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(o.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		for j, name := range fields {
			if v, ok := f.Attrs[name]; ok {
				feature.SetFieldString(j, v)
			}
		}
		if geo, e = o.parseWKB(f.Geom, ref); e != nil {
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(o.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(o.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		cnt++
	}
	log.Info(o.logTag+"shp files created", zap.String("shp", shp), zap.Int("total", len(c.Features)), zap.Int("valid", cnt))
	return
}

func attrNames(c *Collection) (names []string) {
	seen := map[string]struct{}{}
	for _, f := range c.Features {
		for k := range f.Attrs {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return
}
