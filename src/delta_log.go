package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DELTA_LOG_DIR_NAME       = "_delta_log"
	DELTA_MIN_READER_VERSION = 1
	DELTA_MIN_WRITER_VERSION = 2

	DELTA_OPERATION_WRITE = "WRITE"
	DELTA_OPERATION_CTAS  = "CREATE TABLE AS SELECT"
)

type DeltaCommit struct {
	Operation        string
	WriteMode        WriteMode
	Columns          []DatasetColumn
	PartitionColumns []string
	DataFiles        []DataFile
}

// Snapshot of the log after replaying every commit
type DeltaTableState struct {
	Version     int64
	TableId     string
	ActivePaths []string // relative to the table location
}

type DeltaLog struct {
	config  *Config
	storage Storage
}

func NewDeltaLog(config *Config, storage Storage) *DeltaLog {
	return &DeltaLog{config: config, storage: storage}
}

func (deltaLog *DeltaLog) LogDirPath(location string) string {
	return JoinPath(location, DELTA_LOG_DIR_NAME)
}

func (deltaLog *DeltaLog) Exists(location string) (bool, error) {
	_, exists, err := deltaLog.State(location)
	return exists, err
}

// Read ----------------------------------------------------------------------------------------------------------------

func (deltaLog *DeltaLog) State(location string) (state DeltaTableState, exists bool, err error) {
	commitFilePaths, err := deltaLog.commitFilePaths(location)
	if err != nil || len(commitFilePaths) == 0 {
		return DeltaTableState{}, false, err
	}

	activePaths := NewSet[string](nil)
	for _, commitFilePath := range commitFilePaths {
		content, err := deltaLog.storage.ReadFile(commitFilePath)
		if err != nil {
			return DeltaTableState{}, false, fmt.Errorf("failed to read delta commit: %v", err)
		}

		for _, line := range bytes.Split(content, []byte("\n")) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var action struct {
				Add      *struct{ Path string } `json:"add"`
				Remove   *struct{ Path string } `json:"remove"`
				MetaData *struct{ Id string }   `json:"metaData"`
			}
			err = json.Unmarshal(line, &action)
			if err != nil {
				return DeltaTableState{}, false, fmt.Errorf("failed to parse delta commit %s: %v", commitFilePath, err)
			}

			switch {
			case action.Add != nil:
				activePaths.Add(action.Add.Path)
			case action.Remove != nil:
				delete(activePaths, action.Remove.Path)
			case action.MetaData != nil:
				state.TableId = action.MetaData.Id
			}
		}
	}

	state.Version, err = deltaCommitVersion(commitFilePaths[len(commitFilePaths)-1])
	if err != nil {
		return DeltaTableState{}, false, err
	}
	state.ActivePaths = SortedStrings(activePaths)
	return state, true, nil
}

func (deltaLog *DeltaLog) commitFilePaths(location string) ([]string, error) {
	logDirPath := deltaLog.LogDirPath(location)
	isDir, err := deltaLog.storage.IsDir(logDirPath)
	if err != nil || !isDir {
		return nil, err
	}

	filePaths, err := deltaLog.storage.ListFiles(logDirPath)
	if err != nil {
		return nil, err
	}

	var commitFilePaths []string
	for _, filePath := range filePaths {
		if _, err := deltaCommitVersion(filePath); err == nil {
			commitFilePaths = append(commitFilePaths, filePath)
		}
	}
	return commitFilePaths, nil
}

// Example:
// - From "/data/nds/store_sales/_delta_log/00000000000000000003.json"
// - To 3
func deltaCommitVersion(filePath string) (int64, error) {
	fileName := filePath[strings.LastIndex(filePath, "/")+1:]
	versionString, found := strings.CutSuffix(fileName, ".json")
	if !found || len(versionString) != 20 {
		return 0, fmt.Errorf("not a delta commit file: %s", fileName)
	}
	return strconv.ParseInt(versionString, 10, 64)
}

// Write ---------------------------------------------------------------------------------------------------------------

// Appends the next commit; overwrite logically removes every file of the previous snapshot
func (deltaLog *DeltaLog) Commit(location string, commit DeltaCommit) (version int64, err error) {
	state, exists, err := deltaLog.State(location)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	tableId := state.TableId
	if tableId == "" {
		tableId = uuid.New().String()
	}
	if exists {
		version = state.Version + 1
	}

	partitionBy, err := json.Marshal(nonNilStrings(commit.PartitionColumns))
	if err != nil {
		return 0, err
	}
	actions := []map[string]interface{}{
		{
			"commitInfo": map[string]interface{}{
				"timestamp": now,
				"operation": commit.Operation,
				"operationParameters": map[string]interface{}{
					"mode":        deltaSaveMode(commit.WriteMode),
					"partitionBy": string(partitionBy),
				},
				"isBlindAppend": commit.WriteMode == WRITE_MODE_APPEND,
			},
		},
	}

	if !exists || commit.WriteMode == WRITE_MODE_OVERWRITE {
		if !exists {
			actions = append(actions, map[string]interface{}{
				"protocol": map[string]interface{}{
					"minReaderVersion": DELTA_MIN_READER_VERSION,
					"minWriterVersion": DELTA_MIN_WRITER_VERSION,
				},
			})
		}

		schemaString, err := deltaSchemaString(commit.Columns)
		if err != nil {
			return 0, err
		}
		actions = append(actions, map[string]interface{}{
			"metaData": map[string]interface{}{
				"id":               tableId,
				"format":           map[string]interface{}{"provider": FORMAT_PARQUET, "options": map[string]interface{}{}},
				"schemaString":     schemaString,
				"partitionColumns": nonNilStrings(commit.PartitionColumns),
				"configuration":    map[string]interface{}{},
				"createdTime":      now,
			},
		})
	}

	if exists && commit.WriteMode == WRITE_MODE_OVERWRITE {
		for _, activePath := range state.ActivePaths {
			actions = append(actions, map[string]interface{}{
				"remove": map[string]interface{}{
					"path":              activePath,
					"deletionTimestamp": now,
					"dataChange":        true,
				},
			})
		}
	}

	for _, dataFile := range commit.DataFiles {
		stats, err := json.Marshal(map[string]interface{}{"numRecords": dataFile.RecordCount})
		if err != nil {
			return 0, err
		}
		actions = append(actions, map[string]interface{}{
			"add": map[string]interface{}{
				"path":             deltaRelativePath(location, dataFile.Path),
				"partitionValues":  deltaPartitionValues(dataFile.Segment),
				"size":             dataFile.Size,
				"modificationTime": now,
				"dataChange":       true,
				"stats":            string(stats),
			},
		})
	}

	var content bytes.Buffer
	for _, action := range actions {
		line, err := json.Marshal(action)
		if err != nil {
			return 0, err
		}
		content.Write(line)
		content.WriteByte('\n')
	}

	commitFilePath := JoinPath(deltaLog.LogDirPath(location), fmt.Sprintf("%020d.json", version))
	err = deltaLog.storage.WriteFile(commitFilePath, content.Bytes())
	if err != nil {
		return 0, err
	}

	LogDebug(deltaLog.config, "Delta commit created at:", commitFilePath)
	return version, nil
}

func deltaSchemaString(columns []DatasetColumn) (string, error) {
	fields := make([]map[string]interface{}, len(columns))
	for i, column := range columns {
		fields[i] = map[string]interface{}{
			"name":     column.Name,
			"type":     column.DeltaType(),
			"nullable": true,
			"metadata": map[string]interface{}{},
		}
	}

	schema, err := json.Marshal(map[string]interface{}{"type": "struct", "fields": fields})
	return string(schema), err
}

func deltaPartitionValues(segment DatasetSegment) map[string]interface{} {
	partitionValues := map[string]interface{}{}
	if segment.PartitionColumn == "" {
		return partitionValues
	}
	if segment.IsNull {
		partitionValues[segment.PartitionColumn] = nil
	} else {
		partitionValues[segment.PartitionColumn] = segment.PartitionValue
	}
	return partitionValues
}

// Example:
// - From "/data/nds/store_sales" and "/data/nds/store_sales/ss_sold_date_sk=2450816/part-00000.snappy.parquet"
// - To "ss_sold_date_sk=2450816/part-00000.snappy.parquet"
func deltaRelativePath(location string, filePath string) string {
	relativePath := strings.TrimPrefix(strings.TrimPrefix(filePath, location), "/")
	segments := strings.Split(relativePath, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func deltaSaveMode(writeMode WriteMode) string {
	switch writeMode {
	case WRITE_MODE_OVERWRITE:
		return "Overwrite"
	case WRITE_MODE_APPEND:
		return "Append"
	case WRITE_MODE_IGNORE:
		return "Ignore"
	}
	return "ErrorIfExists"
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
