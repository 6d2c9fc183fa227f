package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestReport(t *testing.T) {
	startedAt := time.Date(2024, 3, 7, 14, 0, 0, 123456000, time.UTC)
	finishedAt := time.Date(2024, 3, 7, 14, 5, 9, 623456000, time.UTC)
	conf := NewOrderedMap(nil)
	conf.Set("spark.app.name", "NDS - transcode - parquet")
	conf.Set("engine.duckdb.threads", "8")
	report := &Report{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Entries: []ReportEntry{
			{TableName: "store_sales", Elapsed: 1500 * time.Millisecond},
			{TableName: "catalog_page", Elapsed: 2*time.Second + 345600*time.Microsecond},
		},
		Conf: conf,
	}

	t.Run("Derives a 12-character RNGSEED from the finish time", func(t *testing.T) {
		if report.RngSeed() != "030714050962" {
			t.Errorf("Expected 030714050962, got %s", report.RngSeed())
		}
	})

	t.Run("Formats the report", func(t *testing.T) {
		expected := "Load Test Time: 309.5s\n" +
			"Load Test Finished at: 2024-03-07 14:05:09.623456\n" +
			"RNGSEED used: 030714050962\n" +
			"Time to convert 'store_sales' was 1.5000s\n" +
			"Time to convert 'catalog_page' was 2.3456s\n" +
			"\n\n\nRuntime configuration follows:\n\n" +
			"('spark.app.name', 'NDS - transcode - parquet')\n" +
			"('engine.duckdb.threads', '8')\n"

		if report.String() != expected {
			t.Errorf("Expected:\n%s\nGot:\n%s", expected, report.String())
		}
	})

	t.Run("Writes the report file", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)

		err := WriteReport(config, report)

		if err != nil {
			t.Fatalf("Expected report to be written, got %v", err)
		}
		content, err := os.ReadFile(config.ReportFile)
		if err != nil {
			t.Fatalf("Failed to read report: %v", err)
		}
		if !strings.HasPrefix(string(content), "Load Test Time: ") {
			t.Errorf("Unexpected report content: %s", content)
		}
	})
}

func TestReportUploaderUpload(t *testing.T) {
	t.Run("Skips the upload without a bucket", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)

		err := NewReportUploader(config).Upload(context.Background(), config.ReportFile)

		if err != nil {
			t.Errorf("Expected the upload to be skipped, got %v", err)
		}
	})

	t.Run("Fails with an upload error when the report is missing", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		config.Report.Bucket = "reports"
		config.Report.ObjectKey = "report.txt"

		err := NewReportUploader(config).Upload(context.Background(), config.ReportFile)

		uploadError, ok := err.(*UploadError)
		if !ok {
			t.Fatalf("Expected an upload error, got %v", err)
		}
		if uploadError.Bucket != "reports" || uploadError.ObjectKey != "report.txt" {
			t.Errorf("Unexpected upload error: %v", uploadError)
		}
	})
}
