package main

import (
	"context"
	"fmt"
	"strings"
)

const (
	CODEC_NONE         = "none"
	CODEC_UNCOMPRESSED = "uncompressed"
	CODEC_SNAPPY       = "snappy"
	CODEC_GZIP         = "gzip"
	CODEC_ZSTD         = "zstd"
	CODEC_DEFLATE      = "deflate"
	CODEC_ZLIB         = "zlib"
	CODEC_NULL         = "null"
)

// Accepted codec names per data file format, mapped to the writer's own codec name
var DATA_FILE_CODECS = map[string]map[string]string{
	FORMAT_PARQUET: {
		CODEC_NONE:         CODEC_UNCOMPRESSED,
		CODEC_UNCOMPRESSED: CODEC_UNCOMPRESSED,
		CODEC_SNAPPY:       CODEC_SNAPPY,
		CODEC_GZIP:         CODEC_GZIP,
		CODEC_ZSTD:         CODEC_ZSTD,
		"brotli":           "brotli",
		"lz4":              "lz4_raw",
		"lz4_raw":          "lz4_raw",
	},
	FORMAT_JSON: {
		CODEC_NONE:         CODEC_UNCOMPRESSED,
		CODEC_UNCOMPRESSED: CODEC_UNCOMPRESSED,
		CODEC_GZIP:         CODEC_GZIP,
		CODEC_ZSTD:         CODEC_ZSTD,
	},
	FORMAT_AVRO: {
		CODEC_NONE:         CODEC_NULL,
		CODEC_UNCOMPRESSED: CODEC_NULL,
		CODEC_NULL:         CODEC_NULL,
		CODEC_SNAPPY:       CODEC_SNAPPY,
		CODEC_DEFLATE:      CODEC_DEFLATE,
		CODEC_GZIP:         CODEC_DEFLATE,
	},
	FORMAT_ORC: {
		CODEC_NONE:         CODEC_NONE,
		CODEC_UNCOMPRESSED: CODEC_NONE,
		CODEC_ZLIB:         CODEC_ZLIB,
	},
}

var DEFAULT_DATA_FILE_CODECS = map[string]string{
	FORMAT_PARQUET: CODEC_SNAPPY,
	FORMAT_JSON:    CODEC_NONE,
	FORMAT_AVRO:    CODEC_SNAPPY,
	FORMAT_ORC:     CODEC_ZLIB,
}

var DEFAULT_ICEBERG_CODECS = map[string]string{
	FORMAT_PARQUET: CODEC_ZSTD,
	FORMAT_AVRO:    CODEC_GZIP,
	FORMAT_ORC:     CODEC_ZLIB,
}

var DATA_FILE_EXTENSIONS = map[string]string{
	FORMAT_PARQUET: ".parquet",
	FORMAT_JSON:    ".json",
	FORMAT_AVRO:    ".avro",
	FORMAT_ORC:     ".orc",
}

// Example:
// - From "parquet" and "" with the default "snappy"
// - To "snappy"
func ResolveCodec(format string, codec string, defaultCodec string) (string, error) {
	codecs, ok := DATA_FILE_CODECS[format]
	if !ok {
		return "", NewUnsupportedFormatError("output", format)
	}

	if codec == "" {
		codec = defaultCodec
	}
	resolvedCodec, ok := codecs[strings.ToLower(codec)]
	if !ok {
		return "", NewValidationError("Unsupported compression codec %s for %s", codec, format)
	}
	return resolvedCodec, nil
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type DataFileNaming string

const (
	DATA_FILE_NAMING_HADOOP  DataFileNaming = "hadoop"
	DATA_FILE_NAMING_ICEBERG DataFileNaming = "iceberg"
)

// Example:
// - From hadoop naming, index 0, "parquet" and "snappy"
// - To "part-00000-<uuid>-c000.snappy.parquet"
func DataFileName(naming DataFileNaming, index int, writeUuid string, format string, codec string) string {
	extension := DATA_FILE_EXTENSIONS[format]
	if naming == DATA_FILE_NAMING_ICEBERG {
		return fmt.Sprintf("%05d-0-%s-00001%s", index, writeUuid, extension)
	}

	codecInfix := ""
	codecSuffix := ""
	switch format {
	case FORMAT_PARQUET, FORMAT_ORC:
		if codec != CODEC_UNCOMPRESSED && codec != CODEC_NONE {
			codecInfix = "." + strings.TrimSuffix(codec, "_raw")
		}
	case FORMAT_JSON:
		switch codec {
		case CODEC_GZIP:
			codecSuffix = ".gz"
		case CODEC_ZSTD:
			codecSuffix = ".zst"
		}
	}
	return fmt.Sprintf("part-%05d-%s-c000%s%s%s", index, writeUuid, codecInfix, extension, codecSuffix)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type DataFileSpec struct {
	Format   string
	Codec    string // already resolved
	Columns  []DatasetColumn
	FieldIds bool // Iceberg column IDs, numbered from 1 in column order
}

type DataFileWriter struct {
	config  *Config
	duckdb  *Duckdb
	storage Storage
}

func NewDataFileWriter(config *Config, duckdb *Duckdb, storage Storage) *DataFileWriter {
	return &DataFileWriter{config: config, duckdb: duckdb, storage: storage}
}

func (writer *DataFileWriter) WriteSegment(ctx context.Context, prepared *PreparedDataset, segment DatasetSegment, spec DataFileSpec, filePath string) (DataFile, error) {
	err := writer.storage.CreateDir(parentPath(filePath))
	if err != nil {
		return DataFile{}, err
	}

	switch spec.Format {
	case FORMAT_PARQUET, FORMAT_JSON:
		err = writer.copyTo(ctx, prepared.SelectQuery(segment, spec.Columns, false), spec, filePath)
	case FORMAT_AVRO:
		err = writer.writeAvro(ctx, prepared.SelectQuery(segment, spec.Columns, true), spec, filePath)
	case FORMAT_ORC:
		err = writer.writeOrc(ctx, prepared.SelectQuery(segment, spec.Columns, true), spec, filePath)
	default:
		return DataFile{}, NewUnsupportedFormatError("output", spec.Format)
	}
	if err != nil {
		return DataFile{}, NewEngineError("write "+filePath, err)
	}

	size, err := writer.storage.FileSize(filePath)
	if err != nil {
		return DataFile{}, err
	}

	dataFile := DataFile{
		Path:        filePath,
		Format:      spec.Format,
		Size:        size,
		RecordCount: segment.RowCount,
		Segment:     segment,
	}
	if spec.Format == FORMAT_PARQUET && spec.FieldIds {
		dataFile.Stats, err = writer.storage.ReadParquetStats(filePath)
		if err != nil {
			return DataFile{}, err
		}
	}

	LogDebug(writer.config, "Data file with", segment.RowCount, "record(s) created at:", filePath)
	return dataFile, nil
}

func (writer *DataFileWriter) copyTo(ctx context.Context, query string, spec DataFileSpec, filePath string) error {
	options := []string{"FORMAT " + strings.ToUpper(spec.Format), "COMPRESSION " + QuoteLiteral(spec.Codec)}
	if spec.Format == FORMAT_PARQUET && spec.FieldIds {
		fieldIds := make([]string, len(spec.Columns))
		for i, column := range spec.Columns {
			fieldIds[i] = QuoteLiteral(column.Name) + ": " + IntToString(i+1)
		}
		options = append(options, "FIELD_IDS {"+strings.Join(fieldIds, ", ")+"}")
	}

	_, err := writer.duckdb.ExecContext(ctx, "COPY ("+query+") TO "+QuoteLiteral(filePath)+" ("+strings.Join(options, ", ")+")", nil)
	return err
}

// Example:
// - From "s3://bucket/nds/store_sales/part-00000.parquet"
// - To "s3://bucket/nds/store_sales"
func parentPath(filePath string) string {
	index := strings.LastIndex(filePath, "/")
	if index <= 0 {
		return "."
	}
	return filePath[:index]
}
