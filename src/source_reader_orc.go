package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/scritchley/orc"
	"github.com/xitongsys/parquet-go/source"
)

// Adapts a seekable file to the random access the ORC reader needs
type sizedReaderAt struct {
	mutex      sync.Mutex
	fileReader source.ParquetFile
	size       int64
}

func (reader *sizedReaderAt) ReadAt(buffer []byte, offset int64) (int, error) {
	reader.mutex.Lock()
	defer reader.mutex.Unlock()

	_, err := reader.fileReader.Seek(offset, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return io.ReadFull(reader.fileReader, buffer)
}

func (reader *sizedReaderAt) Size() int64 {
	return reader.size
}

func (reader *SourceReader) loadOrc(ctx context.Context, table TableDescriptor, relation string, dataPath string) error {
	filePaths, err := reader.dataFiles(dataPath, DATA_FILE_EXTENSIONS[FORMAT_ORC])
	if err != nil {
		return err
	}

	var columns []DatasetColumn
	var partitionColumns []DatasetColumn
	var orcFiles []*orcSourceFile
	defer func() {
		for _, orcFile := range orcFiles {
			orcFile.fileReader.Close()
		}
	}()

	for _, filePath := range filePaths {
		orcFile, err := reader.openOrcFile(filePath)
		if err != nil {
			return err
		}
		orcFiles = append(orcFiles, orcFile)

		if columns == nil {
			columns, err = orcSchemaColumns(orcFile.reader.Schema().String())
			if err != nil {
				return err
			}
			partitionColumns = hivePartitionColumns(table, columns, hivePartitionValues(dataPath, filePath))
		}
		orcFile.partitionValues, err = partitionColumnValues(partitionColumns, hivePartitionValues(dataPath, filePath))
		if err != nil {
			return err
		}
	}

	columnNames := make([]string, len(columns))
	for i, column := range columns {
		columnNames[i] = column.Name
	}

	fileIndex := 0
	cursor := orcFiles[0].reader.Select(columnNames...)
	hasStripe := cursor.Stripes()

	nextRow := func() ([]interface{}, bool, error) {
		for !hasStripe || !cursor.Next() {
			if hasStripe {
				hasStripe = cursor.Stripes()
				if hasStripe {
					continue
				}
			}
			if cursor.Err() != nil {
				return nil, false, cursor.Err()
			}
			if fileIndex == len(orcFiles)-1 {
				return nil, false, nil
			}
			fileIndex++
			cursor = orcFiles[fileIndex].reader.Select(columnNames...)
			hasStripe = cursor.Stripes()
		}

		values := cursor.Row()
		row := make([]interface{}, 0, len(columns)+len(partitionColumns))
		for i, column := range columns {
			value, err := orcNativeValue(column, values[i])
			if err != nil {
				return nil, false, err
			}
			row = append(row, value)
		}
		return append(row, orcFiles[fileIndex].partitionValues...), true, nil
	}

	return reader.insertRows(ctx, relation, append(columns, partitionColumns...), nextRow)
}

type orcSourceFile struct {
	fileReader      source.ParquetFile
	reader          *orc.Reader
	partitionValues []interface{}
}

func (reader *SourceReader) openOrcFile(filePath string) (*orcSourceFile, error) {
	size, err := reader.storage.FileSize(filePath)
	if err != nil {
		return nil, err
	}
	fileReader, err := reader.storage.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	orcReader, err := orc.NewReader(&sizedReaderAt{fileReader: fileReader, size: size})
	if err != nil {
		fileReader.Close()
		return nil, fmt.Errorf("failed to read ORC file %s: %v", filePath, err)
	}
	return &orcSourceFile{fileReader: fileReader, reader: orcReader}, nil
}

// Example:
// - From "struct<ss_item_sk:int,ss_list_price:decimal(7,2)>"
// - To [{"ss_item_sk", "INTEGER"}, {"ss_list_price", "DECIMAL(7,2)"}]
func orcSchemaColumns(schema string) ([]DatasetColumn, error) {
	if !strings.HasPrefix(schema, "struct<") || !strings.HasSuffix(schema, ">") {
		return nil, fmt.Errorf("unexpected ORC schema: %s", schema)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(schema, "struct<"), ">")

	var columns []DatasetColumn
	depth := 0
	start := 0
	for i := 0; i <= len(body); i++ {
		if i < len(body) {
			switch body[i] {
			case '<', '(':
				depth++
				continue
			case '>', ')':
				depth--
				continue
			case ',':
				if depth > 0 {
					continue
				}
			default:
				continue
			}
		}

		name, orcType, found := strings.Cut(body[start:i], ":")
		if !found {
			return nil, fmt.Errorf("unexpected ORC field: %s", body[start:i])
		}
		columns = append(columns, DatasetColumn{Name: name, Type: duckdbTypeFromOrc(orcType)})
		start = i + 1
	}
	return columns, nil
}

func duckdbTypeFromOrc(orcType string) string {
	switch {
	case orcType == "tinyint":
		return DUCKDB_TYPE_TINYINT
	case orcType == "smallint":
		return DUCKDB_TYPE_SMALLINT
	case orcType == "int":
		return DUCKDB_TYPE_INTEGER
	case orcType == "bigint":
		return DUCKDB_TYPE_BIGINT
	case orcType == "float":
		return DUCKDB_TYPE_FLOAT
	case orcType == "double":
		return DUCKDB_TYPE_DOUBLE
	case orcType == "boolean":
		return DUCKDB_TYPE_BOOLEAN
	case orcType == "date":
		return DUCKDB_TYPE_DATE
	case orcType == "timestamp":
		return DUCKDB_TYPE_TIMESTAMP
	case strings.HasPrefix(orcType, "decimal"):
		return strings.ToUpper(orcType)
	}
	return DUCKDB_TYPE_VARCHAR
}

func orcNativeValue(column DatasetColumn, value interface{}) (interface{}, error) {
	switch typedValue := value.(type) {
	case nil:
		return nil, nil
	case orc.Date:
		return typedValue.Time, nil
	case time.Time:
		return typedValue, nil
	case interface{ Float64() float64 }:
		if column.IsDecimal() {
			_, scale := column.DecimalPrecisionScale()
			return fmt.Sprintf("%.*f", scale, typedValue.Float64()), nil
		}
		return typedValue.Float64(), nil
	case []byte:
		return string(typedValue), nil
	}
	return value, nil
}
