package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
)

// Raw NDS rows end with the delimiter
const TEST_INCOME_BAND_ROWS = "1|0|10000|\n" +
	"2|10001|20000|\n" +
	"3|20001|30000|\n"

const TEST_INVENTORY_ROWS = "2450815|1|1|211|\n" +
	"2450815|2|1|235|\n" +
	"2450822|1|1||\n" +
	"|3|2|5|\n"

func loadTestConfig() *Config {
	setTestArgs([]string{"../nds-test/raw", "../nds-test/output", "../nds-test/report.txt"})

	config := LoadConfig(true)
	config.LogLevel = LOG_LEVEL_ERROR

	return config
}

// A config detached from the global one, with raw input, output and report under a temporary directory
func loadTestConfigInTempDir(t *testing.T, flags ...string) *Config {
	dir := t.TempDir()
	setTestArgs(append(flags, filepath.Join(dir, "raw"), filepath.Join(dir, "output"), filepath.Join(dir, "report.txt")))

	config := *LoadConfig(true)
	config.LogLevel = LOG_LEVEL_ERROR
	config.InitSqlFilepath = filepath.Join(dir, "init.sql")

	return &config
}

func setTestArgs(args []string) {
	os.Args = append([]string{"cmd"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	registerFlags()
	flag.Parse()
}

func writeTestRawTable(t *testing.T, config *Config, tableName string, rows string) {
	t.Helper()

	dirPath := filepath.Join(config.InputPrefix, tableName)
	err := os.MkdirAll(dirPath, os.ModePerm)
	if err != nil {
		t.Fatalf("Failed to create raw table directory: %v", err)
	}
	err = os.WriteFile(filepath.Join(dirPath, tableName+"_1_1.dat"), []byte(rows), 0644)
	if err != nil {
		t.Fatalf("Failed to write raw table: %v", err)
	}
}

func findTestTable(t *testing.T, tableName string) TableDescriptor {
	t.Helper()

	table, ok := NdsSchemas(true).Find(tableName)
	if !ok {
		t.Fatalf("Unknown test table %s", tableName)
	}
	return table
}

func queryTestValue(t *testing.T, duckdb *Duckdb, query string) string {
	t.Helper()

	rows, err := duckdb.QueryAll(context.Background(), query)
	if err != nil {
		t.Fatalf("Failed to run %s: %v", query, err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		t.Fatalf("Expected a single value from %s, got %v", query, rows)
	}
	return toString(rows[0][0])
}

func listTestFiles(t *testing.T, dirPath string) []string {
	t.Helper()

	var filePaths []string
	err := filepath.WalkDir(dirPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			relativePath, _ := filepath.Rel(dirPath, path)
			filePaths = append(filePaths, relativePath)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to list %s: %v", dirPath, err)
	}
	return filePaths
}

// Engine session over the config's output prefix, closed with the test
func newTestSession(t *testing.T, config *Config) (*Session, *Duckdb) {
	t.Helper()

	duckdb := NewDuckdb(config)
	t.Cleanup(duckdb.Close)

	session, err := NewSession(context.Background(), config, duckdb)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	t.Cleanup(session.Close)

	return session, duckdb
}

// Loads a raw table into the session's engine
func loadTestDataset(t *testing.T, config *Config, duckdb *Duckdb, tableName string, rows string) *Dataset {
	t.Helper()

	writeTestRawTable(t, config, tableName, rows)
	sourceReader := NewSourceReader(config, duckdb, NewStorage(config, config.InputPrefix))
	dataset, err := sourceReader.Load(context.Background(), findTestTable(t, tableName), FORMAT_CSV, config.InputPrefix)
	if err != nil {
		t.Fatalf("Failed to load %s: %v", tableName, err)
	}
	return dataset
}
