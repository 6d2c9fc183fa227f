package main

import (
	"strings"
)

const (
	FORMAT_CSV     = "csv"
	FORMAT_PARQUET = "parquet"
	FORMAT_ORC     = "orc"
	FORMAT_AVRO    = "avro"
	FORMAT_JSON    = "json"
	FORMAT_ICEBERG = "iceberg"
	FORMAT_DELTA   = "delta"
)

var INPUT_FORMATS = []string{FORMAT_CSV, FORMAT_PARQUET, FORMAT_ORC, FORMAT_AVRO, FORMAT_JSON}
var OUTPUT_FORMATS = []string{FORMAT_PARQUET, FORMAT_ORC, FORMAT_AVRO, FORMAT_JSON, FORMAT_ICEBERG, FORMAT_DELTA}
var CATALOG_WRITE_FORMATS = []string{FORMAT_PARQUET, FORMAT_ORC, FORMAT_AVRO}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type WriteMode string

const (
	WRITE_MODE_OVERWRITE       WriteMode = "overwrite"
	WRITE_MODE_APPEND          WriteMode = "append"
	WRITE_MODE_IGNORE          WriteMode = "ignore"
	WRITE_MODE_ERROR           WriteMode = "error"
	WRITE_MODE_ERROR_IF_EXISTS WriteMode = "errorifexists"
)

var WRITE_MODES = []string{
	string(WRITE_MODE_OVERWRITE),
	string(WRITE_MODE_APPEND),
	string(WRITE_MODE_IGNORE),
	string(WRITE_MODE_ERROR),
	string(WRITE_MODE_ERROR_IF_EXISTS),
}

// Accepts the Spark spellings, e.g. "errorIfExists"
func ParseWriteMode(value string) (WriteMode, error) {
	writeMode := WriteMode(strings.ToLower(value))
	switch writeMode {
	case WRITE_MODE_OVERWRITE, WRITE_MODE_APPEND, WRITE_MODE_IGNORE, WRITE_MODE_ERROR, WRITE_MODE_ERROR_IF_EXISTS:
		return writeMode, nil
	}
	return "", NewValidationError("Unsupported write mode: %s. Must be one of %s", value, strings.Join(WRITE_MODES, ", "))
}

func (writeMode WriteMode) FailsIfExists() bool {
	return writeMode == WRITE_MODE_ERROR || writeMode == WRITE_MODE_ERROR_IF_EXISTS
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type WriteStrategy string

const (
	WRITE_STRATEGY_DIRECT_FILE  WriteStrategy = "direct-file"
	WRITE_STRATEGY_CATALOG_CTAS WriteStrategy = "catalog-ctas"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type ConversionJob struct {
	Table                TableDescriptor
	InputFormat          string
	OutputFormat         string
	WriteMode            WriteMode
	CatalogWriteFormat   string
	CompressionCodec     string // optional
	InputPrefix          string
	OutputPrefix         string
	DeltaUnmanaged       bool
	UseHiveExternalTable bool
}

func NewConversionJob(config *Config, table TableDescriptor) ConversionJob {
	return ConversionJob{
		Table:                table,
		InputFormat:          config.InputFormat,
		OutputFormat:         config.OutputFormat,
		WriteMode:            config.OutputMode,
		CatalogWriteFormat:   config.IcebergWriteFormat,
		CompressionCodec:     config.Compression,
		InputPrefix:          config.InputPrefix,
		OutputPrefix:         config.OutputPrefix,
		DeltaUnmanaged:       config.DeltaUnmanaged,
		UseHiveExternalTable: config.Hive,
	}
}

func (job ConversionJob) WriteStrategy() WriteStrategy {
	switch job.OutputFormat {
	case FORMAT_ICEBERG:
		return WRITE_STRATEGY_CATALOG_CTAS
	case FORMAT_DELTA:
		if job.DeltaUnmanaged {
			return WRITE_STRATEGY_DIRECT_FILE
		}
		return WRITE_STRATEGY_CATALOG_CTAS
	}
	return WRITE_STRATEGY_DIRECT_FILE
}

// Format of the physical data files, e.g. "parquet" for delta or the iceberg write format
func (job ConversionJob) DataFileFormat() string {
	return DataFileFormatFor(job.OutputFormat, job.CatalogWriteFormat)
}

// Physical file format behind an output format: iceberg writes its write format, delta writes parquet
func DataFileFormatFor(outputFormat string, catalogWriteFormat string) string {
	switch outputFormat {
	case FORMAT_ICEBERG:
		return catalogWriteFormat
	case FORMAT_DELTA:
		return FORMAT_PARQUET
	}
	return outputFormat
}

func (job ConversionJob) TargetPath() string {
	return JoinPath(job.OutputPrefix, job.Table.Name)
}

func (job ConversionJob) String() string {
	return job.Table.Name + " (" + job.InputFormat + " -> " + job.OutputFormat + ", " + string(job.WriteMode) + ")"
}
