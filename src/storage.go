package main

import (
	"strings"

	"github.com/xitongsys/parquet-go/source"
)

const (
	S3_PATH_PREFIX = "s3://"

	VERSION_HINT_FILE_NAME = "version-hint.text"
	SUCCESS_FILE_NAME      = "_SUCCESS"
)

type ParquetFileStats struct {
	ColumnSizes     map[int]int64
	ValueCounts     map[int]int64
	NullValueCounts map[int]int64
	LowerBounds     map[int][]byte
	UpperBounds     map[int][]byte
	SplitOffsets    []int64
}

// A written data file of any format
type DataFile struct {
	Path        string
	Format      string
	Size        int64
	RecordCount int64
	Segment     DatasetSegment
	Stats       ParquetFileStats
}

type ManifestFile struct {
	SnapshotId int64
	Path       string
	Size       int64
}

type ManifestListFile struct {
	Path string
}

type MetadataFile struct {
	Version int64
	Path    string
}

// Paths are absolute local paths or "s3://bucket/key" URIs
type Storage interface {
	// Read
	AbsolutePath(path string) (absolutePath string)
	Exists(path string) (exists bool, err error)
	IsDir(path string) (isDir bool, err error)
	ListFiles(dirPath string) (filePaths []string, err error)
	OpenFile(filePath string) (fileReader source.ParquetFile, err error)
	ReadFile(filePath string) (content []byte, err error)
	FileSize(filePath string) (size int64, err error)
	ReadParquetStats(filePath string) (parquetFileStats ParquetFileStats, err error)

	// Write
	Delete(path string) (err error)
	CreateDir(dirPath string) (err error)
	CreateFile(filePath string) (fileWriter source.ParquetFile, err error)
	WriteFile(filePath string, content []byte) (err error)
	CreateManifest(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile) (manifestFile ManifestFile, err error)
	CreateManifestList(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile) (manifestListFile ManifestListFile, err error)
	CreateMetadata(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile, manifestListFile ManifestListFile) (metadataFile MetadataFile, err error)
	CreateVersionHint(metadataDirPath string, metadataFile MetadataFile) (err error)
}

func NewStorage(config *Config, path string) Storage {
	if IsS3Path(path) {
		return NewS3Storage(config)
	}
	return NewLocalStorage(config)
}

func IsS3Path(path string) bool {
	return strings.HasPrefix(path, S3_PATH_PREFIX)
}

// Example:
// - From "s3://bucket/nds/store_sales"
// - To "bucket" and "nds/store_sales"
func SplitS3Path(path string) (bucket string, key string) {
	bucket, key, _ = strings.Cut(strings.TrimPrefix(path, S3_PATH_PREFIX), "/")
	return bucket, key
}
