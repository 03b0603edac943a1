package gdalio

import (
	"strconv"
	"strings"
	"sync"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	gr "github.com/wgdzlh/georaster"
	"github.com/wgdzlh/georaster/log"
)

var ErrVoidSrid = errors.New("gdal spatial ref with void srid")

// 坐标系缓存，缓存的SpatialReference可复用，故无需回收
type SrsCache struct {
	refMap map[string]gdal.SpatialReference
	rLock  sync.Mutex
	logTag string
}

func NewSrsCache() *SrsCache {
	return &SrsCache{
		refMap: map[string]gdal.SpatialReference{},
		logTag: "SrsCache:",
	}
}

// 获取坐标系标识对应的GDAL坐标系
func (s *SrsCache) Ref(crs gr.CRS) (ref gdal.SpatialReference, err error) {
	if crs.IsZero() {
		err = errors.Wrap(gr.ErrUnsupportedOperation, "empty crs")
		return
	}
	key := crs.String()
	s.rLock.Lock()
	defer s.rLock.Unlock()
	ref, ok := s.refMap[key]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	switch {
	case crs.EPSG != 0:
		err = ref.FromEPSG(crs.EPSG) // 设定坐标系ID
	case crs.UTMZone != 0:
		if err = ref.SetWellKnownGeogCS("WGS84"); err == nil {
			err = ref.SetUTM(crs.UTMZone, !crs.UTMSouth)
		}
	case crs.GCS != "":
		err = ref.SetWellKnownGeogCS(crs.GCS)
	default:
		err = ref.FromWKT(crs.WKT)
	}
	if err != nil {
		log.Error(s.logTag+"set spatial ref failed", zap.String("crs", key), zap.Error(err))
		ref.Destroy()
		return
	}
	// 数据轴次序固定为(经度,纬度)（传统GIS坐标序），避免转换坐标系时出现次序倒置
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	s.refMap[key] = ref
	return
}

// 坐标系的WKT
func (s *SrsCache) WKT(crs gr.CRS) (wkt string, err error) {
	if crs.IsZero() {
		return
	}
	if crs.WKT != "" && crs.EPSG == 0 {
		wkt = crs.WKT
		return
	}
	ref, err := s.Ref(crs)
	if err != nil {
		return
	}
	return ref.ToWKT()
}

// 获取坐标系的srid，无AUTHORITY时尝试自动识别
func (s *SrsCache) Srid(sp gdal.SpatialReference) (srid int, err error) {
	rawId, ok := sp.AttrValue("AUTHORITY", 1)
	if !ok {
		if e := sp.AutoIdentifyEPSG(); e == nil {
			rawId, ok = sp.AttrValue("AUTHORITY", 1)
		}
	}
	if !ok {
		wkt, _ := sp.ToWKT()
		if strings.Contains(wkt, "CGCS_2000") {
			rawId = "4490"
		} else {
			err = ErrVoidSrid
			return
		}
	}
	srid, err = strconv.Atoi(rawId)
	return
}

// 由WKT解析坐标系标识，能识别EPSG时一并记录
func (s *SrsCache) CRSFromWKT(wkt string) (crs gr.CRS) {
	if strings.TrimSpace(wkt) == "" {
		return
	}
	crs.WKT = wkt
	sp := gdal.CreateSpatialReference(wkt)
	defer sp.Destroy()
	if srid, err := s.Srid(sp); err == nil {
		crs.EPSG = srid
	} else {
		log.Info(s.logTag+"no srid in spatial ref", zap.Error(err))
	}
	return
}

// 释放缓存的坐标系
func (s *SrsCache) Destroy() {
	s.rLock.Lock()
	defer s.rLock.Unlock()
	for k, ref := range s.refMap {
		ref.Destroy()
		delete(s.refMap, k)
	}
}
