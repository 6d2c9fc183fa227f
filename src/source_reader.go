package main

import (
	"context"
	"slices"
	"strings"
)

const (
	SOURCE_RELATION_PREFIX   = "src_"
	CSV_DELIMITER            = "|"
	CSV_TRAILING_COLUMN_NAME = "_nds_trailing"
)

// Loads one raw table into a DuckDB relation
type SourceReader struct {
	config  *Config
	duckdb  *Duckdb
	storage Storage
}

func NewSourceReader(config *Config, duckdb *Duckdb, storage Storage) *SourceReader {
	return &SourceReader{config: config, duckdb: duckdb, storage: storage}
}

// Example:
// - From "store_sales", "csv" and "/data/raw"
// - To the rows of /data/raw/store_sales/*, typed by the NDS schema
func (reader *SourceReader) Load(ctx context.Context, table TableDescriptor, inputFormat string, pathPrefix string) (*Dataset, error) {
	if !slices.Contains(INPUT_FORMATS, inputFormat) {
		return nil, NewUnsupportedFormatError("input", inputFormat)
	}

	dataPath := JoinPath(pathPrefix, table.Name)
	relation := SOURCE_RELATION_PREFIX + table.Name
	LogDebug(reader.config, "Loading", table.Name, "from", dataPath, "as", inputFormat+"...")

	var err error
	switch inputFormat {
	case FORMAT_CSV:
		err = reader.createRelation(ctx, relation, reader.readCsvQuery(table, reader.fileGlob(dataPath, "")))
	case FORMAT_PARQUET:
		err = reader.createRelation(ctx, relation, "SELECT * FROM read_parquet("+QuoteLiteral(reader.fileGlob(dataPath, ".parquet"))+", hive_partitioning = true, union_by_name = true)")
	case FORMAT_JSON:
		err = reader.createRelation(ctx, relation, "SELECT * FROM read_json("+QuoteLiteral(reader.fileGlob(dataPath, ".json*"))+", format = 'newline_delimited', hive_partitioning = true, union_by_name = true)")
	case FORMAT_AVRO:
		err = reader.loadAvro(ctx, table, relation, dataPath)
	case FORMAT_ORC:
		err = reader.loadOrc(ctx, table, relation, dataPath)
	}
	if err != nil {
		return nil, NewEngineError("load "+table.Name, err)
	}

	return DescribeRelation(ctx, reader.duckdb, table.Name, relation)
}

func (reader *SourceReader) Release(ctx context.Context, dataset *Dataset) {
	_, err := reader.duckdb.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(dataset.Relation), nil)
	if err != nil {
		LogWarn(reader.config, "Failed to release", dataset.Relation+":", err)
	}
}

func (reader *SourceReader) createRelation(ctx context.Context, relation string, query string) error {
	_, err := reader.duckdb.ExecContext(ctx, "CREATE OR REPLACE TABLE "+QuoteIdentifier(relation)+" AS "+query, nil)
	return err
}

// Raw NDS files end every row with a delimiter, read into a trailing column and dropped
func (reader *SourceReader) readCsvQuery(table TableDescriptor, glob string) string {
	columns := make([]string, 0, len(table.Schema)+1)
	for _, column := range table.Schema {
		columns = append(columns, QuoteLiteral(column.Name)+": "+QuoteLiteral(column.Type))
	}
	columns = append(columns, QuoteLiteral(CSV_TRAILING_COLUMN_NAME)+": 'VARCHAR'")

	return "SELECT * EXCLUDE (" + QuoteIdentifier(CSV_TRAILING_COLUMN_NAME) + ") FROM read_csv(" + QuoteLiteral(glob) +
		", delim = " + QuoteLiteral(CSV_DELIMITER) +
		", header = false, auto_detect = false, null_padding = true" +
		", columns = {" + strings.Join(columns, ", ") + "})"
}

// A directory is read recursively, a single file as is
func (reader *SourceReader) fileGlob(dataPath string, extension string) string {
	isDir, err := reader.storage.IsDir(dataPath)
	if err != nil || !isDir {
		return dataPath
	}
	if extension == "" {
		return JoinPath(dataPath, "*")
	}
	return JoinPath(dataPath, "**", "*"+extension)
}

// Files under dataPath with the given extension, hidden and marker files excluded
func (reader *SourceReader) dataFiles(dataPath string, extension string) ([]string, error) {
	isDir, err := reader.storage.IsDir(dataPath)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return []string{dataPath}, nil
	}

	filePaths, err := reader.storage.ListFiles(dataPath)
	if err != nil {
		return nil, err
	}

	var dataFilePaths []string
	for _, filePath := range filePaths {
		fileName := filePath[strings.LastIndex(filePath, "/")+1:]
		if strings.HasPrefix(fileName, "_") || strings.HasPrefix(fileName, ".") || !strings.HasSuffix(fileName, extension) {
			continue
		}
		dataFilePaths = append(dataFilePaths, filePath)
	}
	if len(dataFilePaths) == 0 {
		return nil, NewValidationError("No %s files found in %s", strings.TrimPrefix(extension, "."), dataPath)
	}
	return dataFilePaths, nil
}

// Example:
// - From "/data/store_sales" and "/data/store_sales/ss_sold_date_sk=2450816/part-00000.avro"
// - To [{"ss_sold_date_sk", "2450816", false}]
func hivePartitionValues(dataPath string, filePath string) []DatasetSegment {
	relativePath := strings.TrimPrefix(strings.TrimPrefix(filePath, dataPath), "/")

	var partitionValues []DatasetSegment
	parts := strings.Split(relativePath, "/")
	for _, part := range parts[:len(parts)-1] {
		column, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		segment := DatasetSegment{PartitionColumn: column}
		if value == HIVE_DEFAULT_PARTITION {
			segment.IsNull = true
		} else {
			segment.PartitionValue = unescapePartitionValue(value)
		}
		partitionValues = append(partitionValues, segment)
	}
	return partitionValues
}

// Rows decoded in Go are inserted into a relation created from the first file's schema
func (reader *SourceReader) insertRows(ctx context.Context, relation string, columns []DatasetColumn, nextRow func() ([]interface{}, bool, error)) (err error) {
	columnDefinitions := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		columnDefinitions[i] = QuoteIdentifier(column.Name) + " " + column.Type
		placeholders[i] = "?"
	}

	_, err = reader.duckdb.ExecContext(ctx, "CREATE OR REPLACE TABLE "+QuoteIdentifier(relation)+" ("+strings.Join(columnDefinitions, ", ")+")", nil)
	if err != nil {
		return err
	}

	tx, err := reader.duckdb.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	statement, err := tx.PrepareContext(ctx, "INSERT INTO "+QuoteIdentifier(relation)+" VALUES ("+strings.Join(placeholders, ", ")+")")
	if err != nil {
		return err
	}
	defer statement.Close()

	for {
		row, ok, err := nextRow()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		_, err = statement.ExecContext(ctx, row...)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
