package main

import (
	"context"
	"encoding/json"

	"github.com/linkedin/goavro/v2"
)

const (
	AVRO_RECORD_NAME = "topLevelRecord"
	AVRO_BATCH_SIZE  = 10000
)

func AvroRecordSchema(columns []DatasetColumn, fieldIds bool) (string, error) {
	fields := make([]map[string]interface{}, len(columns))
	for i, column := range columns {
		field := map[string]interface{}{
			"name":    column.Name,
			"type":    column.AvroType(),
			"default": nil,
		}
		if fieldIds {
			field["field-id"] = i + 1
		}
		fields[i] = field
	}

	schema, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   AVRO_RECORD_NAME,
		"fields": fields,
	})
	return string(schema), err
}

func (writer *DataFileWriter) writeAvro(ctx context.Context, query string, spec DataFileSpec, filePath string) (err error) {
	schema, err := AvroRecordSchema(spec.Columns, spec.FieldIds)
	if err != nil {
		return err
	}
	codec, err := goavro.NewCodec(schema)
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

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               fileWriter,
		Codec:           codec,
		CompressionName: spec.Codec,
	})
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

	records := make([]interface{}, 0, AVRO_BATCH_SIZE)
	for rows.Next() {
		err = rows.Scan(valuePtrs...)
		if err != nil {
			return err
		}

		record := make(map[string]interface{}, len(spec.Columns))
		for i, column := range spec.Columns {
			record[column.Name], err = column.FormatAvroValue(values[i])
			if err != nil {
				return err
			}
		}
		records = append(records, record)

		if len(records) == AVRO_BATCH_SIZE {
			err = ocfWriter.Append(records)
			if err != nil {
				return err
			}
			records = records[:0]
		}
	}
	err = rows.Err()
	if err != nil {
		return err
	}

	if len(records) > 0 {
		return ocfWriter.Append(records)
	}
	return nil
}
