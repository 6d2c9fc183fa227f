package main

import (
	"context"
	"fmt"
	"os"
)

const VERSION = "0.1.0"

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		fmt.Println("nds-transcode version:", VERSION)
		return
	}

	config := LoadConfig()
	transcode(config)
}

func transcode(config *Config) {
	ctx := context.Background()

	transcoder := NewTranscoder(config)
	report, err := transcoder.Transcode(ctx)
	PanicIfError(err)
	report.Echo(config)

	err = WriteReport(config, report)
	PanicIfError(err)

	uploader := NewReportUploader(config)
	err = uploader.Upload(ctx, config.ReportFile)
	PanicIfError(err)

	LogInfo(config, "Transcode completed successfully.")
}
