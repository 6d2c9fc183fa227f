package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type IcebergReader struct {
	config  *Config
	storage Storage
}

func NewIcebergReader(config *Config, storage Storage) *IcebergReader {
	return &IcebergReader{config: config, storage: storage}
}

func (reader *IcebergReader) TableExists(location string) (bool, error) {
	LogDebug(reader.config, "Checking Iceberg table at", location+"...")
	return reader.storage.Exists(reader.versionHintPath(location))
}

func (reader *IcebergReader) CurrentVersion(location string) (int64, error) {
	content, err := reader.storage.ReadFile(reader.versionHintPath(location))
	if err != nil {
		return 0, fmt.Errorf("failed to read version hint: %v", err)
	}
	return strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
}

func (reader *IcebergReader) MetadataFilePath(location string) (string, error) {
	version, err := reader.CurrentVersion(location)
	if err != nil {
		return "", err
	}
	return JoinPath(location, "metadata", fmt.Sprintf("v%d.metadata.json", version)), nil
}

func (reader *IcebergReader) Metadata(location string) (metadata map[string]interface{}, err error) {
	metadataFilePath, err := reader.MetadataFilePath(location)
	if err != nil {
		return nil, err
	}

	content, err := reader.storage.ReadFile(metadataFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %v", err)
	}

	err = json.Unmarshal(content, &metadata)
	return metadata, err
}

func (reader *IcebergReader) versionHintPath(location string) string {
	return JoinPath(location, "metadata", VERSION_HINT_FILE_NAME)
}
