package main

import (
	"strings"
)

const (
	TEMP_VIEW_NAME = "temptbl"

	CONF_APP_NAME                  = "spark.app.name"
	CONF_ICEBERG_WAREHOUSE         = "spark.sql.catalog.spark_catalog.warehouse"
	CONF_WAREHOUSE_DIR             = "spark.sql.warehouse.dir"
	CONF_CATALOG_IMPLEMENTATION    = "spark.sql.catalogImplementation"
	CONF_PARQUET_COMPRESSION_CODEC = "spark.sql.parquet.compression.codec"

	TABLE_PROPERTY_KEY_WRITE_FORMAT = "write.format.default"
)

// Whether a catalog write format accepts a "write.<format>.compression-codec" table property
var COMPRESSION_CODEC_PROPERTY_SUPPORT = map[string]bool{
	FORMAT_PARQUET: true,
	FORMAT_AVRO:    true,
	FORMAT_ORC:     false,
}

// Rendered to text only when executed or logged
type Statement interface {
	Render() string
}

type CreateDatabase struct {
	Name        string
	IfNotExists bool
}

func (statement CreateDatabase) Render() string {
	if statement.IfNotExists {
		return "CREATE DATABASE IF NOT EXISTS " + statement.Name
	}
	return "CREATE DATABASE " + statement.Name
}

type SetConf struct {
	Key   string
	Value string
}

func (statement SetConf) Render() string {
	return "SET " + statement.Key + "=" + statement.Value
}

type DropTable struct {
	Name     string
	IfExists bool
}

func (statement DropTable) Render() string {
	if statement.IfExists {
		return "DROP TABLE IF EXISTS " + statement.Name
	}
	return "DROP TABLE " + statement.Name
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type TablePropertyKind string

const (
	TABLE_PROPERTY_WRITE_FORMAT      TablePropertyKind = "WRITE_FORMAT"
	TABLE_PROPERTY_COMPRESSION_CODEC TablePropertyKind = "COMPRESSION_CODEC"
)

type TableProperty struct {
	Kind   TablePropertyKind
	Format string // data file format the property applies to
	Value  string
}

func WriteFormatProperty(format string) TableProperty {
	return TableProperty{Kind: TABLE_PROPERTY_WRITE_FORMAT, Format: format, Value: format}
}

func CompressionCodecProperty(format string, codec string) TableProperty {
	return TableProperty{Kind: TABLE_PROPERTY_COMPRESSION_CODEC, Format: format, Value: codec}
}

// Example:
// - From a compression codec property for "avro"
// - To "write.avro.compression-codec"
func (property TableProperty) Key() string {
	switch property.Kind {
	case TABLE_PROPERTY_COMPRESSION_CODEC:
		return "write." + property.Format + ".compression-codec"
	}
	return TABLE_PROPERTY_KEY_WRITE_FORMAT
}

func (property TableProperty) Render() string {
	return QuoteLiteral(property.Key()) + "=" + QuoteLiteral(property.Value)
}

type CreateTableAsSelect struct {
	Name            string
	Provider        string // iceberg or delta
	PartitionColumn string // empty when unpartitioned
	Properties      []TableProperty
	SourceView      string
}

// Example:
// - To "CREATE TABLE web_sales USING iceberg PARTITIONED BY (ws_sold_date_sk)
//   TBLPROPERTIES('write.format.default'='avro', 'write.avro.compression-codec'='snappy') AS SELECT * FROM temptbl"
func (statement CreateTableAsSelect) Render() string {
	parts := []string{"CREATE TABLE " + statement.Name + " USING " + statement.Provider}
	if statement.PartitionColumn != "" {
		parts = append(parts, "PARTITIONED BY ("+statement.PartitionColumn+")")
	}
	if len(statement.Properties) > 0 {
		properties := make([]string, len(statement.Properties))
		for i, property := range statement.Properties {
			properties[i] = property.Render()
		}
		parts = append(parts, "TBLPROPERTIES("+strings.Join(properties, ", ")+")")
	}
	parts = append(parts, "AS SELECT * FROM "+statement.SourceView)
	return strings.Join(parts, " ")
}

func (statement CreateTableAsSelect) Property(kind TablePropertyKind) (TableProperty, bool) {
	for _, property := range statement.Properties {
		if property.Kind == kind {
			return property, true
		}
	}
	return TableProperty{}, false
}

// Registers existing files without writing data
type CreateExternalTable struct {
	Name            string
	Provider        string
	PartitionColumn string
	Location        string
	Columns         []DatasetColumn // not rendered
}

func (statement CreateExternalTable) Render() string {
	parts := []string{"CREATE TABLE " + statement.Name + " USING " + statement.Provider}
	if statement.PartitionColumn != "" {
		parts = append(parts, "PARTITIONED BY ("+statement.PartitionColumn+")")
	}
	parts = append(parts, "LOCATION "+QuoteLiteral(statement.Location))
	return strings.Join(parts, " ")
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func BuildCtas(job ConversionJob, plan PartitionPlan) CreateTableAsSelect {
	statement := CreateTableAsSelect{
		Name:            job.Table.Name,
		Provider:        job.OutputFormat,
		PartitionColumn: plan.Column,
		SourceView:      TEMP_VIEW_NAME,
	}

	// Delta takes its codec from the session
	if job.OutputFormat == FORMAT_ICEBERG {
		statement.Properties = append(statement.Properties, WriteFormatProperty(job.CatalogWriteFormat))
		if job.CompressionCodec != "" && COMPRESSION_CODEC_PROPERTY_SUPPORT[job.CatalogWriteFormat] {
			statement.Properties = append(statement.Properties, CompressionCodecProperty(job.CatalogWriteFormat, job.CompressionCodec))
		}
	}

	return statement
}

func BuildSessionConf(job ConversionJob) *SetConf {
	if job.OutputFormat != FORMAT_DELTA || job.CompressionCodec == "" {
		return nil
	}
	return &SetConf{Key: CONF_PARQUET_COMPRESSION_CODEC, Value: job.CompressionCodec}
}
