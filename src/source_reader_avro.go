package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/linkedin/goavro/v2"
	"github.com/xitongsys/parquet-go/source"
)

func (reader *SourceReader) loadAvro(ctx context.Context, table TableDescriptor, relation string, dataPath string) error {
	filePaths, err := reader.dataFiles(dataPath, DATA_FILE_EXTENSIONS[FORMAT_AVRO])
	if err != nil {
		return err
	}

	var columns []DatasetColumn
	var partitionColumns []DatasetColumn
	fileIndex := -1
	var fileReader source.ParquetFile
	var ocfReader *goavro.OCFReader
	var partitionValues []interface{}

	openNextFile := func() error {
		if fileReader != nil {
			fileReader.Close()
		}
		fileIndex++
		fileReader, err = reader.storage.OpenFile(filePaths[fileIndex])
		if err != nil {
			return err
		}
		ocfReader, err = goavro.NewOCFReader(bufio.NewReader(fileReader))
		if err != nil {
			return fmt.Errorf("failed to read Avro file %s: %v", filePaths[fileIndex], err)
		}
		partitionValues, err = partitionColumnValues(partitionColumns, hivePartitionValues(dataPath, filePaths[fileIndex]))
		return err
	}

	err = openNextFile()
	if err != nil {
		return err
	}
	defer func() {
		if fileReader != nil {
			fileReader.Close()
		}
	}()

	columns, err = avroSchemaColumns(ocfReader.Codec().Schema())
	if err != nil {
		return err
	}
	partitionColumns = hivePartitionColumns(table, columns, hivePartitionValues(dataPath, filePaths[0]))
	partitionValues, err = partitionColumnValues(partitionColumns, hivePartitionValues(dataPath, filePaths[0]))
	if err != nil {
		return err
	}

	nextRow := func() ([]interface{}, bool, error) {
		for !ocfReader.Scan() {
			if ocfReader.Err() != nil {
				return nil, false, ocfReader.Err()
			}
			if fileIndex == len(filePaths)-1 {
				return nil, false, nil
			}
			err := openNextFile()
			if err != nil {
				return nil, false, err
			}
		}

		datum, err := ocfReader.Read()
		if err != nil {
			return nil, false, err
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, false, fmt.Errorf("unexpected Avro record: %T", datum)
		}

		row := make([]interface{}, 0, len(columns)+len(partitionColumns))
		for _, column := range columns {
			row = append(row, avroNativeValue(column, record[column.Name]))
		}
		return append(row, partitionValues...), true, nil
	}

	return reader.insertRows(ctx, relation, append(columns, partitionColumns...), nextRow)
}

func avroSchemaColumns(schema string) ([]DatasetColumn, error) {
	var recordSchema struct {
		Fields []struct {
			Name string      `json:"name"`
			Type interface{} `json:"type"`
		} `json:"fields"`
	}
	err := json.Unmarshal([]byte(schema), &recordSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %v", err)
	}

	columns := make([]DatasetColumn, len(recordSchema.Fields))
	for i, field := range recordSchema.Fields {
		columns[i] = DatasetColumn{Name: field.Name, Type: duckdbTypeFromAvro(field.Type)}
	}
	return columns, nil
}

// Example:
// - From ["null", {"type": "bytes", "logicalType": "decimal", "precision": 7, "scale": 2}]
// - To "DECIMAL(7,2)"
func duckdbTypeFromAvro(avroType interface{}) string {
	switch typedAvroType := avroType.(type) {
	case []interface{}:
		for _, unionType := range typedAvroType {
			if unionType != "null" {
				return duckdbTypeFromAvro(unionType)
			}
		}
	case map[string]interface{}:
		switch typedAvroType["logicalType"] {
		case "date":
			return DUCKDB_TYPE_DATE
		case "timestamp-micros", "timestamp-millis":
			return DUCKDB_TYPE_TIMESTAMP
		case "decimal":
			precision, _ := typedAvroType["precision"].(float64)
			scale, _ := typedAvroType["scale"].(float64)
			return fmt.Sprintf("DECIMAL(%d,%d)", int(precision), int(scale))
		}
		return duckdbTypeFromAvro(typedAvroType["type"])
	case string:
		switch typedAvroType {
		case "int":
			return DUCKDB_TYPE_INTEGER
		case "long":
			return DUCKDB_TYPE_BIGINT
		case "float":
			return DUCKDB_TYPE_FLOAT
		case "double":
			return DUCKDB_TYPE_DOUBLE
		case "boolean":
			return DUCKDB_TYPE_BOOLEAN
		}
	}
	return DUCKDB_TYPE_VARCHAR
}

// Unwraps unions and turns decimals into strings DuckDB can cast
func avroNativeValue(column DatasetColumn, value interface{}) interface{} {
	if union, ok := value.(map[string]interface{}); ok {
		for _, unionValue := range union {
			value = unionValue
		}
	}

	switch typedValue := value.(type) {
	case *big.Rat:
		_, scale := column.DecimalPrecisionScale()
		return typedValue.FloatString(scale)
	case []byte:
		return string(typedValue)
	}
	return value
}

// Hive partition directories add the columns missing from the file schema, typed by the table schema
func hivePartitionColumns(table TableDescriptor, fileColumns []DatasetColumn, partitionSegments []DatasetSegment) []DatasetColumn {
	var partitionColumns []DatasetColumn
	for _, segment := range partitionSegments {
		if containsColumn(fileColumns, segment.PartitionColumn) {
			continue
		}
		columnType := DUCKDB_TYPE_VARCHAR
		for _, schemaColumn := range table.Schema {
			if schemaColumn.Name == segment.PartitionColumn {
				columnType = schemaColumn.Type
			}
		}
		partitionColumns = append(partitionColumns, DatasetColumn{Name: segment.PartitionColumn, Type: columnType})
	}
	return partitionColumns
}

func partitionColumnValues(partitionColumns []DatasetColumn, partitionSegments []DatasetSegment) ([]interface{}, error) {
	values := make([]interface{}, len(partitionColumns))
	for i, column := range partitionColumns {
		for _, segment := range partitionSegments {
			if segment.PartitionColumn != column.Name || segment.IsNull {
				continue
			}
			value, err := column.ParseValue(segment.PartitionValue)
			if err != nil {
				return nil, fmt.Errorf("invalid partition value %s=%s: %v", column.Name, segment.PartitionValue, err)
			}
			values[i] = value
		}
	}
	return values, nil
}

func containsColumn(columns []DatasetColumn, name string) bool {
	for _, column := range columns {
		if column.Name == name {
			return true
		}
	}
	return false
}
