package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

// 在parentPath下创建以uuid命名的子目录
func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.MkdirAll(path, os.ModePerm)
	return
}

// 生成parentPath下以uuid命名的文件路径（不创建文件）
func GetUniqFile(parentPath, ext string) string {
	return filepath.Join(parentPath, uuid.NewString()+ext)
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 小写的文件扩展名，含点号
func GetFileExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// 替换文件扩展名
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// 读取shp同名cpg文件，判断属性表是否为UTF-8编码；cpg缺失或为空时返回false
func IsUtf8Shapefile(shp string) (utf8 bool) {
	enc, e := os.ReadFile(ReplaceExt(shp, FILE_EXT_CPG))
	if e == nil && len(enc) > 0 {
		encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
		utf8 = encStr == UTF_8 || encStr == UTF8
	}
	return
}
