package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	REPORT_TIME_FORMAT    = "2006-01-02 15:04:05.000000"
	REPORT_CONF_HEADER    = "\n\n\nRuntime configuration follows:\n\n"
	RNGSEED_LENGTH        = 12
	RNGSEED_PREFIX_FORMAT = "0102150405"
)

type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []ReportEntry
	Conf       *OrderedMap
}

func (report *Report) Elapsed() time.Duration {
	return report.FinishedAt.Sub(report.StartedAt)
}

// Example:
// - From 2024-03-07 14:05:09.123456
// - To "030714050912" (month, day, hours, minutes, seconds, then microseconds truncated)
func (report *Report) RngSeed() string {
	seed := report.FinishedAt.Format(RNGSEED_PREFIX_FORMAT) + fmt.Sprintf("%06d", report.FinishedAt.Nanosecond()/1000)
	return seed[:RNGSEED_LENGTH]
}

func (report *Report) String() string {
	var builder strings.Builder
	builder.WriteString("Load Test Time: " + report.elapsedSeconds() + "s\n")
	builder.WriteString("Load Test Finished at: " + report.FinishedAt.Format(REPORT_TIME_FORMAT) + "\n")
	builder.WriteString("RNGSEED used: " + report.RngSeed() + "\n")

	for _, entry := range report.Entries {
		builder.WriteString(fmt.Sprintf("Time to convert '%s' was %.4fs\n", entry.TableName, entry.Elapsed.Seconds()))
	}

	builder.WriteString(REPORT_CONF_HEADER)
	if report.Conf != nil {
		for _, key := range report.Conf.Keys() {
			builder.WriteString("(" + QuoteLiteral(key) + ", " + QuoteLiteral(report.Conf.Get(key)) + ")\n")
		}
	}
	return builder.String()
}

// Console summary printed at the end of a run
func (report *Report) Echo(config *Config) {
	LogInfo(config, "Load Test Finished at:", report.FinishedAt.Format(REPORT_TIME_FORMAT))
	LogInfo(config, "Load Test Time:", report.elapsedSeconds(), "seconds")
	LogInfo(config, "RNGSEED used:", report.RngSeed())
}

func (report *Report) elapsedSeconds() string {
	return strconv.FormatFloat(report.Elapsed().Seconds(), 'f', -1, 64)
}

// The report file may be local or on S3
func WriteReport(config *Config, report *Report) error {
	storage := NewStorage(config, config.ReportFile)
	err := storage.WriteFile(config.ReportFile, []byte(report.String()))
	if err != nil {
		return NewEngineError("write report "+config.ReportFile, err)
	}
	LogInfo(config, "Report written to", config.ReportFile)
	return nil
}
