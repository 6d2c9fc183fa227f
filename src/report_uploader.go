package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const REPORT_UPLOAD_MAX_ATTEMPTS = 10

type UploadError struct {
	Bucket    string
	ObjectKey string
	Err       error
}

func (err *UploadError) Error() string {
	return fmt.Sprintf("failed to upload report to %s/%s: %v", err.Bucket, err.ObjectKey, err.Err)
}

func (err *UploadError) Unwrap() error {
	return err.Err
}

type ReportUploader struct {
	config *Config
}

func NewReportUploader(config *Config) *ReportUploader {
	return &ReportUploader{config: config}
}

// Upload target and credentials come from the deployment configuration, certificates are not verified
func (uploader *ReportUploader) Upload(ctx context.Context, reportPath string) error {
	report := uploader.config.Report
	if report.Bucket == "" {
		LogInfo(uploader.config, "No report bucket configured, skipping the report upload")
		return nil
	}

	content, err := NewStorage(uploader.config, reportPath).ReadFile(reportPath)
	if err != nil {
		return &UploadError{Bucket: report.Bucket, ObjectKey: report.ObjectKey, Err: err}
	}

	s3Client, err := uploader.s3Client(ctx)
	if err != nil {
		return &UploadError{Bucket: report.Bucket, ObjectKey: report.ObjectKey, Err: err}
	}

	LogInfo(uploader.config, "Uploading report to", report.Bucket+"/"+report.ObjectKey+"...")
	_, err = manager.NewUploader(s3Client).Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(report.Bucket),
		Key:    aws.String(report.ObjectKey),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return &UploadError{Bucket: report.Bucket, ObjectKey: report.ObjectKey, Err: err}
	}
	return nil
}

func (uploader *ReportUploader) s3Client(ctx context.Context) (*s3.Client, error) {
	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(transport *http.Transport) {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	})

	options := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(uploader.config.Aws.Region),
		awsConfig.WithRetryMaxAttempts(REPORT_UPLOAD_MAX_ATTEMPTS),
		awsConfig.WithHTTPClient(httpClient),
	}
	if uploader.config.Aws.AccessKeyId != "" {
		awsCredentials := credentials.NewStaticCredentialsProvider(
			uploader.config.Aws.AccessKeyId,
			uploader.config.Aws.SecretAccessKey,
			"",
		)
		options = append(options, awsConfig.WithCredentialsProvider(awsCredentials))
	}

	loadedAwsConfig, err := awsConfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}

	endpoint := uploader.config.Report.Endpoint
	return s3.NewFromConfig(loadedAwsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
