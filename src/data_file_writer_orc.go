package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/scritchley/orc"
)

// Example:
// - From [{"ss_item_sk", "INTEGER"}, {"ss_sold_date", "DATE"}]
// - To "struct<ss_item_sk:int,ss_sold_date:date>"
func OrcStructSchema(columns []DatasetColumn) string {
	fields := make([]string, len(columns))
	for i, column := range columns {
		fields[i] = column.Name + ":" + column.OrcType()
	}
	return "struct<" + strings.Join(fields, ",") + ">"
}

func orcCompression(codec string) (orc.CompressionCodec, error) {
	switch codec {
	case CODEC_NONE:
		return orc.CompressionNone{}, nil
	case CODEC_ZLIB:
		return orc.CompressionZlib{}, nil
	}
	return nil, fmt.Errorf("unsupported ORC compression: %s", codec)
}

func (writer *DataFileWriter) writeOrc(ctx context.Context, query string, spec DataFileSpec, filePath string) (err error) {
	schema, err := orc.ParseSchema(OrcStructSchema(spec.Columns))
	if err != nil {
		return err
	}
	compression, err := orcCompression(spec.Codec)
	if err != nil {
		return err
	}

	fileWriter, err := writer.storage.CreateFile(filePath)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := fileWriter.Close()
		if err == nil {
			err = closeErr
		}
	}()

	// The ORC writer must not close the underlying file itself
	orcWriter, err := orc.NewWriter(struct{ io.Writer }{fileWriter}, orc.SetSchema(schema), orc.SetCompression(compression))
	if err != nil {
		return err
	}

	rows, err := writer.duckdb.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	values := make([]interface{}, len(spec.Columns))
	valuePtrs := make([]interface{}, len(spec.Columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		err = rows.Scan(valuePtrs...)
		if err != nil {
			return err
		}

		orcValues := make([]interface{}, len(spec.Columns))
		for i, column := range spec.Columns {
			orcValues[i], err = formatOrcValue(column, values[i])
			if err != nil {
				return err
			}
		}

		err = orcWriter.Write(orcValues...)
		if err != nil {
			return err
		}
	}
	err = rows.Err()
	if err != nil {
		return err
	}

	return orcWriter.Close()
}

func formatOrcValue(column DatasetColumn, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch column.OrcType() {
	case "int", "bigint":
		return toInt64(value)
	case "float", "double":
		return toFloat64(value)
	case "date":
		dateValue, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("unexpected date value for %s: %v", column.Name, value)
		}
		return orc.Date{Time: dateValue}, nil
	case "string":
		return toString(value), nil
	}
	return value, nil
}
