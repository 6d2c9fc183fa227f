package main

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"
)

const (
	ENV_OUTPUT_MODE          = "NDS_OUTPUT_MODE"
	ENV_INPUT_FORMAT         = "NDS_INPUT_FORMAT"
	ENV_OUTPUT_FORMAT        = "NDS_OUTPUT_FORMAT"
	ENV_TABLES               = "NDS_TABLES"
	ENV_LOG_LEVEL            = "NDS_LOG_LEVEL"
	ENV_FLOATS               = "NDS_FLOATS"
	ENV_UPDATE               = "NDS_UPDATE"
	ENV_ICEBERG_WRITE_FORMAT = "NDS_ICEBERG_WRITE_FORMAT"
	ENV_COMPRESSION          = "NDS_COMPRESSION"
	ENV_DELTA_UNMANAGED      = "NDS_DELTA_UNMANAGED"
	ENV_HIVE                 = "NDS_HIVE"
	ENV_DATABASE             = "NDS_DATABASE"
	ENV_INIT_SQL_FILEPATH    = "NDS_INIT_SQL"
	ENV_PARTITION_POLICY     = "NDS_PARTITION_POLICY"
	ENV_METASTORE_URL        = "NDS_METASTORE_URL"

	ENV_REPORT_BUCKET     = "NDS_REPORT_BUCKET"
	ENV_REPORT_OBJECT_KEY = "NDS_REPORT_OBJECT_KEY"
	ENV_REPORT_ENDPOINT   = "NDS_REPORT_ENDPOINT"

	ENV_AWS_REGION            = "AWS_REGION"
	ENV_AWS_ACCESS_KEY_ID     = "AWS_ACCESS_KEY_ID"
	ENV_AWS_SECRET_ACCESS_KEY = "AWS_SECRET_ACCESS_KEY"
	ENV_AWS_S3_ENDPOINT       = "AWS_S3_ENDPOINT"

	DEFAULT_OUTPUT_MODE          = string(WRITE_MODE_ERROR_IF_EXISTS)
	DEFAULT_INPUT_FORMAT         = FORMAT_CSV
	DEFAULT_OUTPUT_FORMAT        = FORMAT_PARQUET
	DEFAULT_LOG_LEVEL            = LOG_LEVEL_INFO
	DEFAULT_ICEBERG_WRITE_FORMAT = FORMAT_PARQUET
	DEFAULT_DATABASE             = "default"
	DEFAULT_INIT_SQL_FILEPATH    = "./init.sql"
	DEFAULT_AWS_REGION           = "us-east-1"

	USAGE = "Usage: nds-transcode [flags] <input_prefix> <output_prefix> <report_file>"
)

type AwsConfig struct {
	Region          string
	AccessKeyId     string
	SecretAccessKey string
	S3Endpoint      string // optional, for S3-compatible stores
}

type ReportConfig struct {
	Bucket    string // optional, the upload is skipped without it
	ObjectKey string
	Endpoint  string
}

type Config struct {
	InputPrefix             string
	OutputPrefix            string
	ReportFile              string
	OutputMode              WriteMode
	InputFormat             string
	OutputFormat            string
	Tables                  []string // optional
	LogLevel                string
	Floats                  bool
	Update                  bool
	IcebergWriteFormat      string
	Compression             string // optional
	DeltaUnmanaged          bool
	Hive                    bool
	Database                string
	InitSqlFilepath         string
	PartitionPolicyFilepath string // optional
	MetastoreUrl            string // optional
	Aws                     AwsConfig
	Report                  ReportConfig
}

type configParseValues struct {
	outputMode string
	tables     string
}

var _config Config
var _configParseValues configParseValues

func init() {
	registerFlags()
}

func registerFlags() {
	flag.StringVar(&_configParseValues.outputMode, "output_mode", os.Getenv(ENV_OUTPUT_MODE), "Save mode: \""+strings.Join(WRITE_MODES, "\", \"")+"\". Default: \""+DEFAULT_OUTPUT_MODE+"\"")
	flag.StringVar(&_config.InputFormat, "input_format", os.Getenv(ENV_INPUT_FORMAT), "Input data format: \""+strings.Join(INPUT_FORMATS, "\", \"")+"\". Default: \""+DEFAULT_INPUT_FORMAT+"\"")
	flag.StringVar(&_config.OutputFormat, "output_format", os.Getenv(ENV_OUTPUT_FORMAT), "Output data format: \""+strings.Join(OUTPUT_FORMATS, "\", \"")+"\". Default: \""+DEFAULT_OUTPUT_FORMAT+"\"")
	flag.StringVar(&_configParseValues.tables, "tables", os.Getenv(ENV_TABLES), "(Optional) Comma-separated list of tables to convert, e.g. \"catalog_page,catalog_sales\"")
	flag.StringVar(&_config.LogLevel, "log_level", os.Getenv(ENV_LOG_LEVEL), "Log level: \""+strings.Join(LOG_LEVELS, "\", \"")+"\". Default: \""+DEFAULT_LOG_LEVEL+"\"")
	flag.BoolVar(&_config.Floats, "floats", envBool(ENV_FLOATS), "Replace decimal columns with double columns")
	flag.BoolVar(&_config.Update, "update", envBool(ENV_UPDATE), "Convert the data maintenance tables instead of the full load tables")
	flag.StringVar(&_config.IcebergWriteFormat, "iceberg_write_format", os.Getenv(ENV_ICEBERG_WRITE_FORMAT), "File format for catalog tables: \""+strings.Join(CATALOG_WRITE_FORMATS, "\", \"")+"\". Default: \""+DEFAULT_ICEBERG_WRITE_FORMAT+"\"")
	flag.StringVar(&_config.Compression, "compression", os.Getenv(ENV_COMPRESSION), "(Optional) Compression codec for converted data. Default: the output format's default codec")
	flag.BoolVar(&_config.DeltaUnmanaged, "delta_unmanaged", envBool(ENV_DELTA_UNMANAGED), "Write unmanaged Delta Lake tables without registering them in the catalog")
	flag.BoolVar(&_config.Hive, "hive", envBool(ENV_HIVE), "Register converted data as external catalog tables")
	flag.StringVar(&_config.Database, "database", os.Getenv(ENV_DATABASE), "Catalog database for external tables. Default: \""+DEFAULT_DATABASE+"\"")
	flag.StringVar(&_config.InitSqlFilepath, "init_sql", os.Getenv(ENV_INIT_SQL_FILEPATH), "Path to the engine initialization SQL file. Default: \""+DEFAULT_INIT_SQL_FILEPATH+"\"")
	flag.StringVar(&_config.PartitionPolicyFilepath, "partition_policy", os.Getenv(ENV_PARTITION_POLICY), "(Optional) Path to a YAML file mapping table names to partition columns")
	flag.StringVar(&_config.MetastoreUrl, "metastore_url", os.Getenv(ENV_METASTORE_URL), "(Optional) PostgreSQL URL of the catalog metastore. Default: a metastore stored next to the output data")
	flag.StringVar(&_config.Report.Bucket, "report_bucket", os.Getenv(ENV_REPORT_BUCKET), "(Optional) S3 bucket to upload the report to")
	flag.StringVar(&_config.Report.ObjectKey, "report_object_key", os.Getenv(ENV_REPORT_OBJECT_KEY), "(Optional) S3 object key for the uploaded report. Default: the report file name")
	flag.StringVar(&_config.Report.Endpoint, "report_endpoint", os.Getenv(ENV_REPORT_ENDPOINT), "(Optional) S3-compatible endpoint URL for the report upload")
	flag.StringVar(&_config.Aws.Region, "aws_region", os.Getenv(ENV_AWS_REGION), "AWS region. Default: \""+DEFAULT_AWS_REGION+"\"")
	flag.StringVar(&_config.Aws.AccessKeyId, "aws_access_key_id", os.Getenv(ENV_AWS_ACCESS_KEY_ID), "AWS access key ID")
	flag.StringVar(&_config.Aws.SecretAccessKey, "aws_secret_access_key", os.Getenv(ENV_AWS_SECRET_ACCESS_KEY), "AWS secret access key")
	flag.StringVar(&_config.Aws.S3Endpoint, "aws_s3_endpoint", os.Getenv(ENV_AWS_S3_ENDPOINT), "(Optional) S3-compatible endpoint for s3:// input and output prefixes")
}

func parseFlags() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 3 {
		panic(USAGE)
	}
	_config.InputPrefix = args[0]
	_config.OutputPrefix = args[1]
	_config.ReportFile = args[2]

	if _configParseValues.outputMode == "" {
		_configParseValues.outputMode = DEFAULT_OUTPUT_MODE
	}
	outputMode, err := ParseWriteMode(_configParseValues.outputMode)
	PanicIfError(err)
	_config.OutputMode = outputMode

	_config.InputFormat = strings.ToLower(_config.InputFormat)
	if _config.InputFormat == "" {
		_config.InputFormat = DEFAULT_INPUT_FORMAT
	} else if !slices.Contains(INPUT_FORMATS, _config.InputFormat) {
		panic("Invalid input format " + _config.InputFormat + ". Must be one of " + strings.Join(INPUT_FORMATS, ", "))
	}

	_config.OutputFormat = strings.ToLower(_config.OutputFormat)
	if _config.OutputFormat == "" {
		_config.OutputFormat = DEFAULT_OUTPUT_FORMAT
	} else if !slices.Contains(OUTPUT_FORMATS, _config.OutputFormat) {
		panic("Invalid output format " + _config.OutputFormat + ". Must be one of " + strings.Join(OUTPUT_FORMATS, ", "))
	}

	_config.IcebergWriteFormat = strings.ToLower(_config.IcebergWriteFormat)
	if _config.IcebergWriteFormat == "" {
		_config.IcebergWriteFormat = DEFAULT_ICEBERG_WRITE_FORMAT
	} else if !slices.Contains(CATALOG_WRITE_FORMATS, _config.IcebergWriteFormat) {
		panic("Invalid iceberg write format " + _config.IcebergWriteFormat + ". Must be one of " + strings.Join(CATALOG_WRITE_FORMATS, ", "))
	}

	_config.LogLevel = strings.ToUpper(_config.LogLevel)
	if _config.LogLevel == "" {
		_config.LogLevel = DEFAULT_LOG_LEVEL
	} else if !slices.Contains(LOG_LEVELS, _config.LogLevel) {
		panic("Invalid log level " + _config.LogLevel + ". Must be one of " + strings.Join(LOG_LEVELS, ", "))
	}

	_config.Compression = strings.ToLower(_config.Compression)
	if _config.OutputFormat == FORMAT_ICEBERG && _config.Compression != "" && !COMPRESSION_CODEC_PROPERTY_SUPPORT[_config.IcebergWriteFormat] {
		LogWarn(&_config, "Compression", _config.Compression, "is not applied to iceberg", _config.IcebergWriteFormat, "files")
	} else if _config.Compression != "" {
		dataFileFormat := DataFileFormatFor(_config.OutputFormat, _config.IcebergWriteFormat)
		codecs := DATA_FILE_CODECS[dataFileFormat]
		if _, ok := codecs[_config.Compression]; !ok {
			panic("Invalid compression " + _config.Compression + " for " + dataFileFormat + " files. Must be one of " + strings.Join(slices.Sorted(maps.Keys(codecs)), ", "))
		}
	}
	if _config.Database == "" {
		_config.Database = DEFAULT_DATABASE
	}
	if _config.InitSqlFilepath == "" {
		_config.InitSqlFilepath = DEFAULT_INIT_SQL_FILEPATH
	}
	if _config.Aws.Region == "" {
		_config.Aws.Region = DEFAULT_AWS_REGION
	}
	if _configParseValues.tables != "" {
		_config.Tables = SplitCommaSeparated(_configParseValues.tables)
	}
	if _config.Report.Bucket != "" && _config.Report.ObjectKey == "" {
		_config.Report.ObjectKey = filepath.Base(_config.ReportFile)
	}

	_configParseValues = configParseValues{}
}

func LoadConfig(reRegisterFlags ...bool) *Config {
	if reRegisterFlags != nil && reRegisterFlags[0] {
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
		_config = Config{}
		registerFlags()
	}
	parseFlags()
	return &_config
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
