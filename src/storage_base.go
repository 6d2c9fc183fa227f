package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/linkedin/goavro/v2"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/schema"
	"github.com/xitongsys/parquet-go/source"
)

const (
	ICEBERG_PARTITION_FIELD_ID     = 1000
	ICEBERG_LAST_PARTITION_ID_NONE = 999
)

type StorageBase struct {
	config *Config
}

func (storage *StorageBase) ReadParquetStats(fileReader source.ParquetFile) (parquetFileStats ParquetFileStats, err error) {
	defer fileReader.Close()

	pr, err := reader.NewParquetReader(fileReader, nil, 1)
	if err != nil {
		return ParquetFileStats{}, fmt.Errorf("Failed to create Parquet reader: %v", err)
	}
	defer pr.ReadStop()

	parquetStats := ParquetFileStats{
		ColumnSizes:     make(map[int]int64),
		ValueCounts:     make(map[int]int64),
		NullValueCounts: make(map[int]int64),
		LowerBounds:     make(map[int][]byte),
		UpperBounds:     make(map[int][]byte),
		SplitOffsets:    []int64{},
	}

	fieldIDMap := storage.buildFieldIDMap(pr.SchemaHandler)

	for _, rowGroup := range pr.Footer.RowGroups {
		if rowGroup.FileOffset != nil {
			parquetStats.SplitOffsets = append(parquetStats.SplitOffsets, *rowGroup.FileOffset)
		}

		for _, columnChunk := range rowGroup.Columns {
			columnMetaData := columnChunk.MetaData
			columnName := strings.Join(columnMetaData.PathInSchema, ".")
			fieldID, ok := fieldIDMap[columnName]
			if !ok {
				continue
			}
			parquetStats.ColumnSizes[fieldID] += columnMetaData.TotalCompressedSize
			parquetStats.ValueCounts[fieldID] += int64(columnMetaData.NumValues)

			if columnMetaData.Statistics != nil {
				if columnMetaData.Statistics.NullCount != nil {
					parquetStats.NullValueCounts[fieldID] += *columnMetaData.Statistics.NullCount
				}

				minValue := columnMetaData.Statistics.MinValue
				maxValue := columnMetaData.Statistics.MaxValue
				if minValue == nil || maxValue == nil {
					minValue = columnMetaData.Statistics.Min
					maxValue = columnMetaData.Statistics.Max
				}
				if minValue == nil || maxValue == nil {
					continue
				}

				if parquetStats.LowerBounds[fieldID] == nil || bytes.Compare(parquetStats.LowerBounds[fieldID], minValue) > 0 {
					parquetStats.LowerBounds[fieldID] = minValue
				}
				if parquetStats.UpperBounds[fieldID] == nil || bytes.Compare(parquetStats.UpperBounds[fieldID], maxValue) < 0 {
					parquetStats.UpperBounds[fieldID] = maxValue
				}
			}
		}
	}

	return parquetStats, nil
}

func (storage *StorageBase) WriteManifestFile(filePath string, icebergTable IcebergTable, dataFiles []DataFile) (manifestFile ManifestFile, err error) {
	manifestSchema, err := icebergTable.ManifestSchema()
	if err != nil {
		return ManifestFile{}, err
	}
	codec, err := goavro.NewCodec(manifestSchema)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("Failed to create Avro codec: %v", err)
	}

	manifestEntries := make([]interface{}, len(dataFiles))
	for i, dataFile := range dataFiles {
		partition, err := icebergTable.PartitionRecord(dataFile.Segment)
		if err != nil {
			return ManifestFile{}, err
		}

		manifestEntries[i] = map[string]interface{}{
			"status":               1, // 0: EXISTING 1: ADDED 2: DELETED
			"snapshot_id":          map[string]interface{}{"long": icebergTable.SnapshotId},
			"sequence_number":      nil,
			"file_sequence_number": nil,
			"data_file": map[string]interface{}{
				"content":            0, // 0: DATA, 1: POSITION DELETES, 2: EQUALITY DELETES
				"file_path":          dataFile.Path,
				"file_format":        strings.ToUpper(dataFile.Format),
				"partition":          partition,
				"record_count":       dataFile.RecordCount,
				"file_size_in_bytes": dataFile.Size,
				"column_sizes":       avroIntLongMap(dataFile.Stats.ColumnSizes),
				"value_counts":       avroIntLongMap(dataFile.Stats.ValueCounts),
				"null_value_counts":  avroIntLongMap(dataFile.Stats.NullValueCounts),
				"nan_value_counts":   avroIntLongMap(nil),
				"lower_bounds":       avroIntBytesMap(dataFile.Stats.LowerBounds),
				"upper_bounds":       avroIntBytesMap(dataFile.Stats.UpperBounds),
				"key_metadata":       nil,
				"split_offsets":      map[string]interface{}{"array": splitOffsets(dataFile.Stats.SplitOffsets)},
				"equality_ids":       nil,
				"sort_order_id":      nil,
			},
		}
	}

	avroFile, err := os.Create(filePath)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("Failed to create manifest file: %v", err)
	}
	defer avroFile.Close()

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:      avroFile,
		Codec:  codec,
		Schema: manifestSchema,
	})
	if err != nil {
		return ManifestFile{}, fmt.Errorf("Failed to create Avro OCF writer: %v", err)
	}

	if len(manifestEntries) > 0 {
		err = ocfWriter.Append(manifestEntries)
		if err != nil {
			return ManifestFile{}, fmt.Errorf("Failed to write to manifest file: %v", err)
		}
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("Failed to get manifest file info: %v", err)
	}

	return ManifestFile{
		SnapshotId: icebergTable.SnapshotId,
		Path:       filePath,
		Size:       fileInfo.Size(),
	}, nil
}

func (storage *StorageBase) WriteManifestListFile(filePath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile) (err error) {
	codec, err := goavro.NewCodec(MANIFEST_LIST_SCHEMA)
	if err != nil {
		return fmt.Errorf("Failed to create Avro codec for manifest list: %v", err)
	}

	partitions := []interface{}{}
	if icebergTable.IsPartitioned() {
		containsNull := false
		for _, dataFile := range dataFiles {
			containsNull = containsNull || dataFile.Segment.IsNull
		}
		partitions = append(partitions, map[string]interface{}{
			"contains_null": containsNull,
			"contains_nan":  nil,
			"lower_bound":   nil,
			"upper_bound":   nil,
		})
	}

	manifestListRecord := map[string]interface{}{
		"added_files_count":    len(dataFiles),
		"added_rows_count":     totalRecordCount(dataFiles),
		"added_snapshot_id":    manifestFile.SnapshotId,
		"content":              0,
		"deleted_files_count":  0,
		"deleted_rows_count":   0,
		"existing_files_count": 0,
		"existing_rows_count":  0,
		"key_metadata":         nil,
		"manifest_length":      manifestFile.Size,
		"manifest_path":        manifestFile.Path,
		"min_sequence_number":  1,
		"partition_spec_id":    0,
		"partitions":           map[string]interface{}{"array": partitions},
		"sequence_number":      1,
	}

	avroFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("Failed to create manifest list file: %v", err)
	}
	defer avroFile.Close()

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:      avroFile,
		Codec:  codec,
		Schema: MANIFEST_LIST_SCHEMA,
	})
	if err != nil {
		return fmt.Errorf("Failed to create OCF writer for manifest list: %v", err)
	}

	err = ocfWriter.Append([]interface{}{manifestListRecord})
	if err != nil {
		return fmt.Errorf("Failed to write manifest list record: %v", err)
	}

	return nil
}

func (storage *StorageBase) WriteMetadataFile(filePath string, icebergTable IcebergTable, dataFiles []DataFile, manifestListFile ManifestListFile) (err error) {
	currentTimestampMs := time.Now().UnixNano() / int64(time.Millisecond)

	icebergSchemaFields := make([]interface{}, len(icebergTable.Columns))
	for i, column := range icebergTable.Columns {
		icebergSchemaFields[i] = column.ToIcebergSchemaField(i + 1)
	}

	partitionSpecFields := []interface{}{}
	lastPartitionId := ICEBERG_LAST_PARTITION_ID_NONE
	if icebergTable.IsPartitioned() {
		partitionSpecFields = append(partitionSpecFields, map[string]interface{}{
			"name":      icebergTable.PartitionColumn,
			"transform": "identity",
			"source-id": icebergTable.FieldId(icebergTable.PartitionColumn),
			"field-id":  ICEBERG_PARTITION_FIELD_ID,
		})
		lastPartitionId = ICEBERG_PARTITION_FIELD_ID
	}

	totalFilesSize := int64(0)
	for _, dataFile := range dataFiles {
		totalFilesSize += dataFile.Size
	}
	recordCount := strconv.FormatInt(totalRecordCount(dataFiles), 10)
	filesSize := strconv.FormatInt(totalFilesSize, 10)
	filesCount := strconv.Itoa(len(dataFiles))

	metadata := map[string]interface{}{
		"format-version":       2,
		"table-uuid":           icebergTable.Uuid,
		"location":             icebergTable.Location,
		"last-sequence-number": 1,
		"last-updated-ms":      currentTimestampMs,
		"last-column-id":       len(icebergTable.Columns),
		"schemas": []interface{}{
			map[string]interface{}{
				"type":                 "struct",
				"schema-id":            0,
				"fields":               icebergSchemaFields,
				"identifier-field-ids": []interface{}{},
			},
		},
		"current-schema-id": 0,
		"partition-specs": []interface{}{
			map[string]interface{}{
				"spec-id": 0,
				"fields":  partitionSpecFields,
			},
		},
		"default-spec-id":       0,
		"default-sort-order-id": 0,
		"last-partition-id":     lastPartitionId,
		"properties":            icebergTable.Properties,
		"current-snapshot-id":   icebergTable.SnapshotId,
		"refs": map[string]interface{}{
			"main": map[string]interface{}{
				"snapshot-id": icebergTable.SnapshotId,
				"type":        "branch",
			},
		},
		"snapshots": []interface{}{
			map[string]interface{}{
				"schema-id":       0,
				"snapshot-id":     icebergTable.SnapshotId,
				"sequence-number": 1,
				"timestamp-ms":    currentTimestampMs,
				"manifest-list":   manifestListFile.Path,
				"summary": map[string]interface{}{
					"added-data-files":       filesCount,
					"added-files-size":       filesSize,
					"added-records":          recordCount,
					"operation":              "append",
					"total-data-files":       filesCount,
					"total-delete-files":     "0",
					"total-equality-deletes": "0",
					"total-files-size":       filesSize,
					"total-position-deletes": "0",
					"total-records":          recordCount,
				},
			},
		},
		"snapshot-log": []interface{}{
			map[string]interface{}{
				"snapshot-id":  icebergTable.SnapshotId,
				"timestamp-ms": currentTimestampMs,
			},
		},
		"metadata-log": []interface{}{},
		"sort-orders": []interface{}{
			map[string]interface{}{
				"order-id": 0,
				"fields":   []interface{}{},
			},
		},
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("Failed to create metadata file: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(metadata)
	if err != nil {
		return fmt.Errorf("Failed to write metadata to file: %v", err)
	}

	return nil
}

func (storage *StorageBase) WriteVersionHintFile(filePath string, metadataFile MetadataFile) (err error) {
	versionHintFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("Failed to create version hint file: %v", err)
	}
	defer versionHintFile.Close()

	_, err = versionHintFile.WriteString(fmt.Sprintf("%d", metadataFile.Version))
	if err != nil {
		return fmt.Errorf("Failed to write to version hint file: %v", err)
	}

	return nil
}

func (storage *StorageBase) buildFieldIDMap(schemaHandler *schema.SchemaHandler) map[string]int {
	fieldIDMap := make(map[string]int)
	for _, schema := range schemaHandler.SchemaElements {
		if schema.FieldID != nil {
			fieldIDMap[schema.Name] = int(*schema.FieldID)
		}
	}
	return fieldIDMap
}

func avroIntLongMap(values map[int]int64) map[string]interface{} {
	items := []interface{}{}
	for fieldID, value := range values {
		items = append(items, map[string]interface{}{"key": fieldID, "value": value})
	}
	return map[string]interface{}{"array": items}
}

func avroIntBytesMap(values map[int][]byte) map[string]interface{} {
	items := []interface{}{}
	for fieldID, value := range values {
		items = append(items, map[string]interface{}{"key": fieldID, "value": value})
	}
	return map[string]interface{}{"array": items}
}

func splitOffsets(offsets []int64) []int64 {
	if offsets == nil {
		return []int64{}
	}
	return offsets
}

func totalRecordCount(dataFiles []DataFile) (recordCount int64) {
	for _, dataFile := range dataFiles {
		recordCount += dataFile.RecordCount
	}
	return recordCount
}
