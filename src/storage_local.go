package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
)

type StorageLocal struct {
	config      *Config
	storageBase *StorageBase
}

func NewLocalStorage(config *Config) *StorageLocal {
	return &StorageLocal{config: config, storageBase: &StorageBase{config: config}}
}

// Read ----------------------------------------------------------------------------------------------------------------

func (storage *StorageLocal) AbsolutePath(path string) string {
	absolutePath, err := filepath.Abs(path)
	PanicIfError(err)
	return absolutePath
}

func (storage *StorageLocal) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (storage *StorageLocal) IsDir(path string) (bool, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fileInfo.IsDir(), nil
}

func (storage *StorageLocal) ListFiles(dirPath string) (filePaths []string, err error) {
	err = filepath.WalkDir(dirPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			filePaths = append(filePaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	sort.Strings(filePaths)
	return filePaths, nil
}

func (storage *StorageLocal) OpenFile(filePath string) (source.ParquetFile, error) {
	fileReader, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for reading: %v", err)
	}
	return fileReader, nil
}

func (storage *StorageLocal) ReadFile(filePath string) ([]byte, error) {
	return os.ReadFile(filePath)
}

func (storage *StorageLocal) FileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %v", err)
	}
	return fileInfo.Size(), nil
}

func (storage *StorageLocal) ReadParquetStats(filePath string) (ParquetFileStats, error) {
	fileReader, err := storage.OpenFile(filePath)
	if err != nil {
		return ParquetFileStats{}, err
	}
	return storage.storageBase.ReadParquetStats(fileReader)
}

// Write ---------------------------------------------------------------------------------------------------------------

func (storage *StorageLocal) Delete(path string) error {
	_, err := os.Stat(path)
	if !os.IsNotExist(err) {
		LogDebug(storage.config, "Deleting", path)
		return os.RemoveAll(path)
	}

	return nil
}

func (storage *StorageLocal) CreateDir(dirPath string) error {
	return os.MkdirAll(dirPath, os.ModePerm)
}

func (storage *StorageLocal) CreateFile(filePath string) (source.ParquetFile, error) {
	err := storage.CreateDir(filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}

	fileWriter, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for writing: %v", err)
	}
	return fileWriter, nil
}

func (storage *StorageLocal) WriteFile(filePath string, content []byte) error {
	err := storage.CreateDir(filepath.Dir(filePath))
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, content, 0644)
}

func (storage *StorageLocal) CreateManifest(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile) (manifestFile ManifestFile, err error) {
	fileName := fmt.Sprintf("%s-m0.avro", icebergTable.Uuid)
	filePath := filepath.Join(metadataDirPath, fileName)

	manifestFile, err = storage.storageBase.WriteManifestFile(filePath, icebergTable, dataFiles)
	if err != nil {
		return ManifestFile{}, err
	}
	LogDebug(storage.config, "Manifest file created at:", filePath)

	return manifestFile, nil
}

func (storage *StorageLocal) CreateManifestList(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile) (manifestListFile ManifestListFile, err error) {
	fileName := fmt.Sprintf("snap-%d-0-%s.avro", manifestFile.SnapshotId, icebergTable.Uuid)
	filePath := filepath.Join(metadataDirPath, fileName)

	err = storage.storageBase.WriteManifestListFile(filePath, icebergTable, dataFiles, manifestFile)
	if err != nil {
		return ManifestListFile{}, err
	}
	LogDebug(storage.config, "Manifest list file created at:", filePath)

	return ManifestListFile{Path: filePath}, nil
}

func (storage *StorageLocal) CreateMetadata(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile, manifestListFile ManifestListFile) (metadataFile MetadataFile, err error) {
	version := int64(1)
	fileName := fmt.Sprintf("v%d.metadata.json", version)
	filePath := filepath.Join(metadataDirPath, fileName)

	err = storage.storageBase.WriteMetadataFile(filePath, icebergTable, dataFiles, manifestListFile)
	if err != nil {
		return MetadataFile{}, err
	}
	LogDebug(storage.config, "Metadata file created at:", filePath)

	return MetadataFile{Version: version, Path: filePath}, nil
}

func (storage *StorageLocal) CreateVersionHint(metadataDirPath string, metadataFile MetadataFile) (err error) {
	filePath := filepath.Join(metadataDirPath, VERSION_HINT_FILE_NAME)

	err = storage.storageBase.WriteVersionHintFile(filePath, metadataFile)
	if err != nil {
		return err
	}
	LogDebug(storage.config, "Version hint file created at:", filePath)

	return nil
}
