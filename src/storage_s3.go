package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xitongsys/parquet-go-source/s3v2"
	"github.com/xitongsys/parquet-go/source"
)

const S3_DELETE_BATCH_SIZE = 1000

type StorageS3 struct {
	s3Client    *s3.Client
	config      *Config
	storageBase *StorageBase
}

func NewS3Storage(config *Config) *StorageS3 {
	var logMode aws.ClientLogMode
	if config.LogLevel == LOG_LEVEL_TRACE {
		logMode = aws.LogRequest | aws.LogResponse
	}

	options := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(config.Aws.Region),
		awsConfig.WithClientLogMode(logMode),
	}
	if config.Aws.AccessKeyId != "" {
		awsCredentials := credentials.NewStaticCredentialsProvider(
			config.Aws.AccessKeyId,
			config.Aws.SecretAccessKey,
			"",
		)
		options = append(options, awsConfig.WithCredentialsProvider(awsCredentials))
	}

	loadedAwsConfig, err := awsConfig.LoadDefaultConfig(context.Background(), options...)
	PanicIfError(err)

	s3Client := s3.NewFromConfig(loadedAwsConfig, func(o *s3.Options) {
		if config.Aws.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Aws.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &StorageS3{
		s3Client:    s3Client,
		config:      config,
		storageBase: &StorageBase{config: config},
	}
}

// Read ----------------------------------------------------------------------------------------------------------------

func (storage *StorageS3) AbsolutePath(path string) string {
	return strings.TrimRight(path, "/")
}

func (storage *StorageS3) Exists(path string) (bool, error) {
	isDir, err := storage.IsDir(path)
	if err != nil || isDir {
		return isDir, err
	}

	bucket, key := SplitS3Path(path)
	_, err = storage.s3Client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get object info: %v", err)
	}
	return true, nil
}

func (storage *StorageS3) IsDir(path string) (bool, error) {
	bucket, key := SplitS3Path(path)
	listResponse, err := storage.s3Client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(storage.dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("failed to list objects: %v", err)
	}
	return len(listResponse.Contents) > 0, nil
}

func (storage *StorageS3) ListFiles(dirPath string) (filePaths []string, err error) {
	bucket, key := SplitS3Path(dirPath)
	keys, err := storage.nestedObjectKeys(bucket, storage.dirPrefix(key))
	if err != nil {
		return nil, err
	}

	for _, objectKey := range keys {
		filePaths = append(filePaths, S3_PATH_PREFIX+bucket+"/"+objectKey)
	}
	sort.Strings(filePaths)
	return filePaths, nil
}

func (storage *StorageS3) OpenFile(filePath string) (source.ParquetFile, error) {
	bucket, key := SplitS3Path(filePath)
	fileReader, err := s3v2.NewS3FileReaderWithClient(context.Background(), storage.s3Client, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for reading: %v", err)
	}
	return fileReader, nil
}

func (storage *StorageS3) ReadFile(filePath string) ([]byte, error) {
	bucket, key := SplitS3Path(filePath)
	getObjectResponse, err := storage.s3Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %v", err)
	}
	defer getObjectResponse.Body.Close()

	return io.ReadAll(getObjectResponse.Body)
}

func (storage *StorageS3) FileSize(filePath string) (int64, error) {
	bucket, key := SplitS3Path(filePath)
	headObjectResponse, err := storage.s3Client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %v", err)
	}
	return *headObjectResponse.ContentLength, nil
}

func (storage *StorageS3) ReadParquetStats(filePath string) (ParquetFileStats, error) {
	fileReader, err := storage.OpenFile(filePath)
	if err != nil {
		return ParquetFileStats{}, err
	}
	return storage.storageBase.ReadParquetStats(fileReader)
}

// Write ---------------------------------------------------------------------------------------------------------------

func (storage *StorageS3) Delete(path string) (err error) {
	bucket, key := SplitS3Path(path)

	keys, err := storage.nestedObjectKeys(bucket, storage.dirPrefix(key))
	if err != nil {
		return err
	}
	exists, err := storage.Exists(path)
	if err != nil {
		return err
	}
	if exists && len(keys) == 0 {
		keys = append(keys, key)
	}

	return storage.deleteObjects(bucket, keys)
}

// Directories are implicit in S3
func (storage *StorageS3) CreateDir(dirPath string) error {
	return nil
}

func (storage *StorageS3) CreateFile(filePath string) (source.ParquetFile, error) {
	bucket, key := SplitS3Path(filePath)
	fileWriter, err := s3v2.NewS3FileWriterWithClient(context.Background(), storage.s3Client, bucket, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for writing: %v", err)
	}
	return fileWriter, nil
}

func (storage *StorageS3) WriteFile(filePath string, content []byte) error {
	return storage.upload(filePath, bytes.NewReader(content))
}

func (storage *StorageS3) CreateManifest(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile) (manifestFile ManifestFile, err error) {
	fileName := fmt.Sprintf("%s-m0.avro", icebergTable.Uuid)
	filePath := metadataDirPath + "/" + fileName

	tempFile, err := CreateTemporaryFile("manifest")
	if err != nil {
		return ManifestFile{}, err
	}
	defer DeleteTemporaryFile(tempFile)

	manifestFile, err = storage.storageBase.WriteManifestFile(tempFile.Name(), icebergTable, dataFiles)
	if err != nil {
		return ManifestFile{}, err
	}

	err = storage.uploadFile(filePath, tempFile)
	if err != nil {
		return ManifestFile{}, err
	}
	LogDebug(storage.config, "Manifest file created at:", filePath)

	manifestFile.Path = filePath
	return manifestFile, nil
}

func (storage *StorageS3) CreateManifestList(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile) (manifestListFile ManifestListFile, err error) {
	fileName := fmt.Sprintf("snap-%d-0-%s.avro", manifestFile.SnapshotId, icebergTable.Uuid)
	filePath := metadataDirPath + "/" + fileName

	tempFile, err := CreateTemporaryFile("manifest")
	if err != nil {
		return ManifestListFile{}, err
	}
	defer DeleteTemporaryFile(tempFile)

	err = storage.storageBase.WriteManifestListFile(tempFile.Name(), icebergTable, dataFiles, manifestFile)
	if err != nil {
		return ManifestListFile{}, err
	}

	err = storage.uploadFile(filePath, tempFile)
	if err != nil {
		return ManifestListFile{}, err
	}
	LogDebug(storage.config, "Manifest list file created at:", filePath)

	return ManifestListFile{Path: filePath}, nil
}

func (storage *StorageS3) CreateMetadata(metadataDirPath string, icebergTable IcebergTable, dataFiles []DataFile, manifestFile ManifestFile, manifestListFile ManifestListFile) (metadataFile MetadataFile, err error) {
	version := int64(1)
	fileName := fmt.Sprintf("v%d.metadata.json", version)
	filePath := metadataDirPath + "/" + fileName

	tempFile, err := CreateTemporaryFile("metadata")
	if err != nil {
		return MetadataFile{}, err
	}
	defer DeleteTemporaryFile(tempFile)

	err = storage.storageBase.WriteMetadataFile(tempFile.Name(), icebergTable, dataFiles, manifestListFile)
	if err != nil {
		return MetadataFile{}, err
	}

	err = storage.uploadFile(filePath, tempFile)
	if err != nil {
		return MetadataFile{}, err
	}
	LogDebug(storage.config, "Metadata file created at:", filePath)

	return MetadataFile{Version: version, Path: filePath}, nil
}

func (storage *StorageS3) CreateVersionHint(metadataDirPath string, metadataFile MetadataFile) (err error) {
	filePath := metadataDirPath + "/" + VERSION_HINT_FILE_NAME

	tempFile, err := CreateTemporaryFile("version-hint")
	if err != nil {
		return err
	}
	defer DeleteTemporaryFile(tempFile)

	err = storage.storageBase.WriteVersionHintFile(tempFile.Name(), metadataFile)
	if err != nil {
		return err
	}

	err = storage.uploadFile(filePath, tempFile)
	if err != nil {
		return err
	}
	LogDebug(storage.config, "Version hint file created at:", filePath)

	return nil
}

// The temporary file was written through a separate handle
func (storage *StorageS3) uploadFile(filePath string, file *os.File) (err error) {
	uploadedFile, err := os.Open(file.Name())
	if err != nil {
		return fmt.Errorf("failed to open file for upload: %v", err)
	}
	defer uploadedFile.Close()

	return storage.upload(filePath, uploadedFile)
}

func (storage *StorageS3) upload(filePath string, body io.Reader) (err error) {
	bucket, key := SplitS3Path(filePath)
	uploader := manager.NewUploader(storage.s3Client)

	_, err = uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %v", err)
	}

	return nil
}

func (storage *StorageS3) dirPrefix(key string) string {
	key = strings.Trim(key, "/")
	if key == "" {
		return ""
	}
	return key + "/"
}

func (storage *StorageS3) nestedObjectKeys(bucket string, prefix string) (keys []string, err error) {
	paginator := s3.NewListObjectsV2Paginator(storage.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		listResponse, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %v", err)
		}
		for _, obj := range listResponse.Contents {
			keys = append(keys, *obj.Key)
		}
	}

	return keys, nil
}

func (storage *StorageS3) deleteObjects(bucket string, keys []string) (err error) {
	if len(keys) == 0 {
		LogDebug(storage.config, "No objects to delete.")
		return nil
	}

	for start := 0; start < len(keys); start += S3_DELETE_BATCH_SIZE {
		end := min(start+S3_DELETE_BATCH_SIZE, len(keys))

		var objectsToDelete []types.ObjectIdentifier
		for _, key := range keys[start:end] {
			LogDebug(storage.config, "Object to delete:", key)
			objectsToDelete = append(objectsToDelete, types.ObjectIdentifier{Key: aws.String(key)})
		}

		_, err = storage.s3Client.DeleteObjects(context.Background(), &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: objectsToDelete,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %v", err)
		}
	}
	LogDebug(storage.config, "Deleted", len(keys), "object(s).")

	return nil
}
