package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ReportEntry struct {
	TableName string
	Elapsed   time.Duration
}

type Transcoder struct {
	config *Config
}

func NewTranscoder(config *Config) *Transcoder {
	return &Transcoder{config: config}
}

// Converts the selected tables one after another, a failure aborts the run
func (transcoder *Transcoder) Transcode(ctx context.Context) (*Report, error) {
	tables, err := transcoder.SelectTables()
	if err != nil {
		return nil, err
	}
	policy, err := PartitionPolicyFromConfig(transcoder.config)
	if err != nil {
		return nil, err
	}
	err = policy.Validate(tables)
	if err != nil {
		return nil, err
	}

	transcoder.config.InputPrefix = NewStorage(transcoder.config, transcoder.config.InputPrefix).AbsolutePath(transcoder.config.InputPrefix)
	transcoder.config.OutputPrefix = NewStorage(transcoder.config, transcoder.config.OutputPrefix).AbsolutePath(transcoder.config.OutputPrefix)

	duckdb := NewDuckdb(transcoder.config)
	defer duckdb.Close()

	session, err := NewSession(ctx, transcoder.config, duckdb)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	sourceReader := NewSourceReader(transcoder.config, duckdb, NewStorage(transcoder.config, transcoder.config.InputPrefix))
	materializer := NewTableMaterializer(transcoder.config, session, policy)

	report := &Report{StartedAt: time.Now()}
	LogInfo(transcoder.config, "Load Test Start Time:", report.StartedAt.Format(REPORT_TIME_FORMAT))

	for _, table := range tables {
		job := NewConversionJob(transcoder.config, table)
		elapsed, err := TimeConversion(job, func() error {
			dataset, err := sourceReader.Load(ctx, job.Table, job.InputFormat, job.InputPrefix)
			if err != nil {
				return err
			}
			defer sourceReader.Release(ctx, dataset)

			return materializer.Materialize(ctx, dataset, job)
		})
		if err != nil {
			return nil, err
		}

		LogInfo(transcoder.config, fmt.Sprintf("Converted %s in %.4fs", table.Name, elapsed.Seconds()))
		report.Entries = append(report.Entries, ReportEntry{TableName: table.Name, Elapsed: elapsed})
	}

	report.FinishedAt = time.Now()
	report.Conf = session.Conf()
	return report, nil
}

// Requested tables in the requested order, validated against the full-load or maintenance set
func (transcoder *Transcoder) SelectTables() (TableSet, error) {
	useDecimal := !transcoder.config.Floats
	tableSet := NdsSchemas(useDecimal)
	if transcoder.config.Update {
		tableSet = NdsMaintenanceSchemas(useDecimal)
	}

	if len(transcoder.config.Tables) == 0 {
		return tableSet, nil
	}

	selectedNames := NewSet[string](nil)
	var selectedTables TableSet
	for _, name := range transcoder.config.Tables {
		table, ok := tableSet.Find(name)
		if !ok {
			return nil, NewValidationError("Invalid table name: %s. Valid tables are: %s", name, strings.Join(tableSet.Names(), ", "))
		}
		if selectedNames.Contains(name) {
			continue
		}
		selectedNames.Add(name)
		selectedTables = append(selectedTables, table)
	}
	return selectedTables, nil
}

// Runs one conversion and measures its wall-clock duration
func TimeConversion(job ConversionJob, convert func() error) (time.Duration, error) {
	startedAt := time.Now()
	err := convert()
	elapsed := time.Since(startedAt)
	if err != nil {
		return elapsed, fmt.Errorf("failed to convert %s: %w", job, err)
	}
	return elapsed, nil
}
