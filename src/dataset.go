package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/linkedin/goavro/v2"
)

const (
	HIVE_DEFAULT_PARTITION = "__HIVE_DEFAULT_PARTITION__"

	DUCKDB_TYPE_TINYINT   = "TINYINT"
	DUCKDB_TYPE_SMALLINT  = "SMALLINT"
	DUCKDB_TYPE_INTEGER   = "INTEGER"
	DUCKDB_TYPE_BIGINT    = "BIGINT"
	DUCKDB_TYPE_FLOAT     = "FLOAT"
	DUCKDB_TYPE_DOUBLE    = "DOUBLE"
	DUCKDB_TYPE_DECIMAL   = "DECIMAL"
	DUCKDB_TYPE_BOOLEAN   = "BOOLEAN"
	DUCKDB_TYPE_VARCHAR   = "VARCHAR"
	DUCKDB_TYPE_DATE      = "DATE"
	DUCKDB_TYPE_TIMESTAMP = "TIMESTAMP"

	AVRO_UNION_DATE      = "int.date"
	AVRO_UNION_DECIMAL   = "bytes.decimal"
	AVRO_UNION_TIMESTAMP = "long.timestamp-micros"
)

type DatasetColumn struct {
	Name string
	Type string // DuckDB type, e.g. "DECIMAL(7,2)"
}

type IcebergSchemaField struct {
	Id       int         `json:"id"`
	Name     string      `json:"name"`
	Type     interface{} `json:"type"`
	Required bool        `json:"required"`
}

// Example:
// - From "DECIMAL(7,2)"
// - To "DECIMAL"
func (column DatasetColumn) BaseType() string {
	baseType, _, _ := strings.Cut(strings.ToUpper(column.Type), "(")
	return strings.TrimSpace(baseType)
}

func (column DatasetColumn) DecimalPrecisionScale() (precision int, scale int) {
	_, params, found := strings.Cut(column.Type, "(")
	if !found {
		return 18, 3 // DuckDB default
	}
	precisionString, scaleString, _ := strings.Cut(strings.TrimSuffix(params, ")"), ",")
	precision, err := StringToInt(strings.TrimSpace(precisionString))
	PanicIfError(err)
	scale, err = StringToInt(strings.TrimSpace(scaleString))
	PanicIfError(err)
	return precision, scale
}

func (column DatasetColumn) IsDecimal() bool {
	return column.BaseType() == DUCKDB_TYPE_DECIMAL
}

// Go-side writers scan decimals as strings to keep their exact value
func (column DatasetColumn) ScanExpression() string {
	if column.IsDecimal() {
		return "CAST(" + QuoteIdentifier(column.Name) + " AS VARCHAR) AS " + QuoteIdentifier(column.Name)
	}
	return QuoteIdentifier(column.Name)
}

// Parses a partition directory value back into the column's Go type
func (column DatasetColumn) ParseValue(value string) (interface{}, error) {
	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT, DUCKDB_TYPE_SMALLINT, DUCKDB_TYPE_INTEGER, DUCKDB_TYPE_BIGINT:
		return strconv.ParseInt(value, 10, 64)
	case DUCKDB_TYPE_FLOAT, DUCKDB_TYPE_DOUBLE:
		return strconv.ParseFloat(value, 64)
	case DUCKDB_TYPE_BOOLEAN:
		return strconv.ParseBool(value)
	case DUCKDB_TYPE_DATE:
		return time.Parse("2006-01-02", value)
	case DUCKDB_TYPE_TIMESTAMP:
		return time.Parse("2006-01-02 15:04:05.999999", value)
	}
	return value, nil
}

// Iceberg ------------------------------------------------------------------------------------------------------------

func (column DatasetColumn) ToIcebergSchemaField(id int) IcebergSchemaField {
	return IcebergSchemaField{
		Id:       id,
		Name:     column.Name,
		Type:     column.icebergPrimitiveType(),
		Required: false,
	}
}

func (column DatasetColumn) icebergPrimitiveType() string {
	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT, DUCKDB_TYPE_SMALLINT, DUCKDB_TYPE_INTEGER:
		return "int"
	case DUCKDB_TYPE_BIGINT:
		return "long"
	case DUCKDB_TYPE_FLOAT:
		return "float"
	case DUCKDB_TYPE_DOUBLE:
		return "double"
	case DUCKDB_TYPE_DECIMAL:
		precision, scale := column.DecimalPrecisionScale()
		return "decimal(" + IntToString(precision) + ", " + IntToString(scale) + ")"
	case DUCKDB_TYPE_BOOLEAN:
		return "boolean"
	case DUCKDB_TYPE_DATE:
		return "date"
	case DUCKDB_TYPE_TIMESTAMP:
		return "timestamp"
	}
	return "string"
}

// Delta --------------------------------------------------------------------------------------------------------------

func (column DatasetColumn) DeltaType() string {
	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT:
		return "byte"
	case DUCKDB_TYPE_SMALLINT:
		return "short"
	case DUCKDB_TYPE_INTEGER:
		return "integer"
	case DUCKDB_TYPE_BIGINT:
		return "long"
	case DUCKDB_TYPE_FLOAT:
		return "float"
	case DUCKDB_TYPE_DOUBLE:
		return "double"
	case DUCKDB_TYPE_DECIMAL:
		precision, scale := column.DecimalPrecisionScale()
		return fmt.Sprintf("decimal(%d,%d)", precision, scale)
	case DUCKDB_TYPE_BOOLEAN:
		return "boolean"
	case DUCKDB_TYPE_DATE:
		return "date"
	case DUCKDB_TYPE_TIMESTAMP:
		return "timestamp"
	}
	return "string"
}

// Avro ---------------------------------------------------------------------------------------------------------------

func (column DatasetColumn) AvroType() interface{} {
	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT, DUCKDB_TYPE_SMALLINT, DUCKDB_TYPE_INTEGER:
		return []interface{}{"null", "int"}
	case DUCKDB_TYPE_BIGINT:
		return []interface{}{"null", "long"}
	case DUCKDB_TYPE_FLOAT:
		return []interface{}{"null", "float"}
	case DUCKDB_TYPE_DOUBLE:
		return []interface{}{"null", "double"}
	case DUCKDB_TYPE_DECIMAL:
		precision, scale := column.DecimalPrecisionScale()
		return []interface{}{"null", map[string]interface{}{"type": "bytes", "logicalType": "decimal", "precision": precision, "scale": scale}}
	case DUCKDB_TYPE_BOOLEAN:
		return []interface{}{"null", "boolean"}
	case DUCKDB_TYPE_DATE:
		return []interface{}{"null", map[string]interface{}{"type": "int", "logicalType": "date"}}
	case DUCKDB_TYPE_TIMESTAMP:
		return []interface{}{"null", map[string]interface{}{"type": "long", "logicalType": "timestamp-micros"}}
	}
	return []interface{}{"null", "string"}
}

func (column DatasetColumn) FormatAvroValue(value interface{}) (interface{}, error) {
	if value == nil {
		return goavro.Union("null", nil), nil
	}

	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT, DUCKDB_TYPE_SMALLINT, DUCKDB_TYPE_INTEGER:
		intValue, err := toInt64(value)
		return goavro.Union("int", int32(intValue)), err
	case DUCKDB_TYPE_BIGINT:
		intValue, err := toInt64(value)
		return goavro.Union("long", intValue), err
	case DUCKDB_TYPE_FLOAT:
		floatValue, err := toFloat64(value)
		return goavro.Union("float", float32(floatValue)), err
	case DUCKDB_TYPE_DOUBLE:
		floatValue, err := toFloat64(value)
		return goavro.Union("double", floatValue), err
	case DUCKDB_TYPE_DECIMAL:
		ratValue, ok := new(big.Rat).SetString(toString(value))
		if !ok {
			return nil, fmt.Errorf("invalid decimal value for %s: %v", column.Name, value)
		}
		return goavro.Union(AVRO_UNION_DECIMAL, ratValue), nil
	case DUCKDB_TYPE_BOOLEAN:
		return goavro.Union("boolean", value), nil
	case DUCKDB_TYPE_DATE:
		return goavro.Union(AVRO_UNION_DATE, value), nil
	case DUCKDB_TYPE_TIMESTAMP:
		return goavro.Union(AVRO_UNION_TIMESTAMP, value), nil
	}
	return goavro.Union("string", toString(value)), nil
}

// ORC ----------------------------------------------------------------------------------------------------------------

// Decimals are stored as doubles, the ORC writer has no public decimal constructor
func (column DatasetColumn) OrcType() string {
	switch column.BaseType() {
	case DUCKDB_TYPE_TINYINT, DUCKDB_TYPE_SMALLINT, DUCKDB_TYPE_INTEGER:
		return "int"
	case DUCKDB_TYPE_BIGINT:
		return "bigint"
	case DUCKDB_TYPE_FLOAT:
		return "float"
	case DUCKDB_TYPE_DOUBLE, DUCKDB_TYPE_DECIMAL:
		return "double"
	case DUCKDB_TYPE_BOOLEAN:
		return "boolean"
	case DUCKDB_TYPE_DATE:
		return "date"
	case DUCKDB_TYPE_TIMESTAMP:
		return "timestamp"
	}
	return "string"
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type Dataset struct {
	TableName string
	Relation  string // DuckDB table holding the loaded rows
	Columns   []DatasetColumn
}

func (dataset *Dataset) ColumnNames() []string {
	names := make([]string, len(dataset.Columns))
	for i, column := range dataset.Columns {
		names[i] = column.Name
	}
	return names
}

func (dataset *Dataset) Column(name string) (DatasetColumn, bool) {
	for _, column := range dataset.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return DatasetColumn{}, false
}

func DescribeRelation(ctx context.Context, duckdb *Duckdb, tableName string, relation string) (*Dataset, error) {
	rows, err := duckdb.QueryAll(ctx, "DESCRIBE "+QuoteIdentifier(relation))
	if err != nil {
		return nil, NewEngineError("describe "+relation, err)
	}

	dataset := &Dataset{TableName: tableName, Relation: relation}
	for _, row := range rows {
		dataset.Columns = append(dataset.Columns, DatasetColumn{Name: toString(row[0]), Type: toString(row[1])})
	}
	return dataset, nil
}

func CountRows(ctx context.Context, duckdb *Duckdb, relation string) (int64, error) {
	rows, err := duckdb.QueryAll(ctx, "SELECT COUNT(*) FROM "+QuoteIdentifier(relation))
	if err != nil {
		return 0, NewEngineError("count "+relation, err)
	}
	return toInt64(rows[0][0])
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// One physical output unit: a partition directory, or the whole table when unpartitioned
type DatasetSegment struct {
	PartitionColumn string // empty when unpartitioned
	PartitionValue  string
	IsNull          bool
	RowCount        int64
}

// Example:
// - From a "ss_sold_date_sk" segment with value "2450816"
// - To "ss_sold_date_sk=2450816"
func (segment DatasetSegment) Directory() string {
	if segment.PartitionColumn == "" {
		return ""
	}
	if segment.IsNull {
		return segment.PartitionColumn + "=" + HIVE_DEFAULT_PARTITION
	}
	return segment.PartitionColumn + "=" + escapePartitionValue(segment.PartitionValue)
}

const SORTED_RELATION_SUFFIX = "_sorted"

type PreparedDataset struct {
	Dataset  *Dataset
	Plan     PartitionPlan
	Segments []DatasetSegment
	Relation string // rows sorted by the partition column, or the loaded relation when unpartitioned
}

// Repartitions by the plan's column or coalesces into a single segment.
// A partitioned dataset is sorted once into its own relation, segments then read contiguous row groups of it.
func PrepareDataset(ctx context.Context, duckdb *Duckdb, dataset *Dataset, plan PartitionPlan) (*PreparedDataset, error) {
	prepared := &PreparedDataset{Dataset: dataset, Plan: plan, Relation: dataset.Relation}

	if !plan.IsPartitioned() {
		rowCount, err := CountRows(ctx, duckdb, dataset.Relation)
		if err != nil {
			return nil, err
		}
		prepared.Segments = []DatasetSegment{{RowCount: rowCount}}
		return prepared, nil
	}

	if _, ok := dataset.Column(plan.Column); !ok {
		return nil, NewValidationError("Partition column %s not found in %s", plan.Column, dataset.TableName)
	}

	partitionColumn := QuoteIdentifier(plan.Column)
	sortedRelation := dataset.Relation + SORTED_RELATION_SUFFIX
	_, err := duckdb.ExecContext(ctx,
		"CREATE OR REPLACE TABLE "+QuoteIdentifier(sortedRelation)+" AS SELECT * FROM "+QuoteIdentifier(dataset.Relation)+
			" ORDER BY "+partitionColumn+" NULLS LAST",
		nil,
	)
	if err != nil {
		return nil, NewEngineError("sort "+dataset.TableName, err)
	}
	prepared.Relation = sortedRelation

	rows, err := duckdb.QueryAll(ctx,
		"SELECT CAST("+partitionColumn+" AS VARCHAR), COUNT(*) FROM "+QuoteIdentifier(sortedRelation)+
			" GROUP BY "+partitionColumn+" ORDER BY "+partitionColumn+" NULLS LAST",
	)
	if err != nil {
		return nil, NewEngineError("repartition "+dataset.TableName, err)
	}

	for _, row := range rows {
		rowCount, err := toInt64(row[1])
		if err != nil {
			return nil, err
		}
		segment := DatasetSegment{PartitionColumn: plan.Column, RowCount: rowCount}
		if row[0] == nil {
			segment.IsNull = true
		} else {
			segment.PartitionValue = toString(row[0])
		}
		prepared.Segments = append(prepared.Segments, segment)
	}

	return prepared, nil
}

// Drops the sorted relation, the loaded one belongs to the source reader
func (prepared *PreparedDataset) Release(ctx context.Context, duckdb *Duckdb) error {
	if prepared.Relation == prepared.Dataset.Relation {
		return nil
	}
	_, err := duckdb.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(prepared.Relation), nil)
	return err
}

func (prepared *PreparedDataset) RowCount() (rowCount int64) {
	for _, segment := range prepared.Segments {
		rowCount += segment.RowCount
	}
	return rowCount
}

// The partition column is kept in data files only by table formats that store it there
func (prepared *PreparedDataset) DataColumns(includePartitionColumn bool) []DatasetColumn {
	var columns []DatasetColumn
	for _, column := range prepared.Dataset.Columns {
		if !includePartitionColumn && column.Name == prepared.Plan.Column {
			continue
		}
		columns = append(columns, column)
	}
	return columns
}

// Rows of one segment in the sorted order. The filter compares the typed column so DuckDB can skip row groups by their min/max.
//
// Example:
// - From a "inv_date_sk" segment with value "2450815"
// - To SELECT ... FROM "src_inventory_sorted" WHERE "inv_date_sk" = CAST('2450815' AS INTEGER)
func (prepared *PreparedDataset) SelectQuery(segment DatasetSegment, columns []DatasetColumn, scanDecimalsAsStrings bool) string {
	expressions := make([]string, len(columns))
	for i, column := range columns {
		if scanDecimalsAsStrings {
			expressions[i] = column.ScanExpression()
		} else {
			expressions[i] = QuoteIdentifier(column.Name)
		}
	}

	query := "SELECT " + strings.Join(expressions, ", ") + " FROM " + QuoteIdentifier(prepared.Relation)
	if segment.PartitionColumn == "" {
		return query
	}

	partitionColumn := QuoteIdentifier(segment.PartitionColumn)
	if segment.IsNull {
		return query + " WHERE " + partitionColumn + " IS NULL"
	}
	column, _ := prepared.Dataset.Column(segment.PartitionColumn)
	return query + " WHERE " + partitionColumn + " = CAST(" + QuoteLiteral(segment.PartitionValue) + " AS " + column.Type + ")"
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

const PARTITION_VALUE_ESCAPED_CHARS = "\"#%'*/:=?\\{[]^"

// Same escaping as Hive partition directories
func escapePartitionValue(value string) string {
	var builder strings.Builder
	for _, char := range value {
		if char < 0x20 || char == 0x7f || strings.ContainsRune(PARTITION_VALUE_ESCAPED_CHARS, char) {
			builder.WriteString(fmt.Sprintf("%%%02X", char))
			continue
		}
		builder.WriteRune(char)
	}
	return builder.String()
}

func unescapePartitionValue(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}

	var builder strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] == '%' && i+2 < len(value) {
			if decoded, err := strconv.ParseUint(value[i+1:i+3], 16, 8); err == nil {
				builder.WriteByte(byte(decoded))
				i += 2
				continue
			}
		}
		builder.WriteByte(value[i])
	}
	return builder.String()
}

func toString(value interface{}) string {
	switch typedValue := value.(type) {
	case nil:
		return ""
	case string:
		return typedValue
	case []byte:
		return string(typedValue)
	case time.Time:
		return typedValue.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(value)
}

func toInt64(value interface{}) (int64, error) {
	switch typedValue := value.(type) {
	case int8:
		return int64(typedValue), nil
	case int16:
		return int64(typedValue), nil
	case int32:
		return int64(typedValue), nil
	case int64:
		return typedValue, nil
	case int:
		return int64(typedValue), nil
	case uint8:
		return int64(typedValue), nil
	case uint16:
		return int64(typedValue), nil
	case uint32:
		return int64(typedValue), nil
	case uint64:
		return int64(typedValue), nil
	case *big.Int:
		return typedValue.Int64(), nil
	case string:
		return strconv.ParseInt(typedValue, 10, 64)
	}
	return 0, fmt.Errorf("unexpected integer value: %v (%T)", value, value)
}

func toFloat64(value interface{}) (float64, error) {
	switch typedValue := value.(type) {
	case float32:
		return float64(typedValue), nil
	case float64:
		return typedValue, nil
	case string:
		return strconv.ParseFloat(typedValue, 64)
	}
	intValue, err := toInt64(value)
	return float64(intValue), err
}
