package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// Raw rows for any NDS table, the partition column cycling through the given values
func testRawRows(table TableDescriptor, partitionColumn string, partitionValues []string) string {
	var builder strings.Builder
	for i, partitionValue := range partitionValues {
		for _, column := range table.Schema {
			switch {
			case column.Name == partitionColumn:
				builder.WriteString(partitionValue)
			case strings.HasPrefix(column.Type, "DECIMAL"), column.Type == NDS_TYPE_DOUBLE:
				builder.WriteString(IntToString(i+1) + ".25")
			case column.Type == NDS_TYPE_DATE:
				builder.WriteString("2000-01-0" + IntToString(i%9+1))
			case column.Type == NDS_TYPE_VARCHAR:
				builder.WriteString("value " + IntToString(i))
			default:
				builder.WriteString(IntToString(i + 1))
			}
			builder.WriteString("|")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func materializeTestTable(t *testing.T, config *Config, session *Session, duckdb *Duckdb, tableName string, rows string) error {
	t.Helper()

	dataset := loadTestDataset(t, config, duckdb, tableName, rows)
	job := NewConversionJob(config, findTestTable(t, tableName))
	return NewTableMaterializer(config, session, DefaultPartitionPolicy()).Materialize(context.Background(), dataset, job)
}

func TestTableMaterializerDirectFiles(t *testing.T) {
	t.Run("Overwrites a partitioned table with one directory per date key", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_mode", "overwrite")
		session, duckdb := newTestSession(t, config)
		staleFilePath := filepath.Join(config.OutputPrefix, "store_sales", "stale.parquet")
		os.MkdirAll(filepath.Dir(staleFilePath), os.ModePerm)
		os.WriteFile(staleFilePath, []byte("stale"), 0644)
		rows := testRawRows(findTestTable(t, "store_sales"), "ss_sold_date_sk", []string{"2450816", "2450816", "2450817", ""})

		err := materializeTestTable(t, config, session, duckdb, "store_sales", rows)

		if err != nil {
			t.Fatalf("Expected store_sales to be written, got %v", err)
		}
		filePaths := listTestFiles(t, filepath.Join(config.OutputPrefix, "store_sales"))
		if slices.Contains(filePaths, "stale.parquet") {
			t.Errorf("Expected the previous contents to be replaced, got %v", filePaths)
		}
		if !slices.Contains(filePaths, "_SUCCESS") {
			t.Errorf("Expected a _SUCCESS marker, got %v", filePaths)
		}
		directories := NewSet[string](nil)
		for _, filePath := range filePaths {
			if strings.HasSuffix(filePath, ".snappy.parquet") {
				directories.Add(filepath.Dir(filePath))
			}
		}
		expectedDirectories := []string{"ss_sold_date_sk=2450816", "ss_sold_date_sk=2450817", "ss_sold_date_sk=__HIVE_DEFAULT_PARTITION__"}
		if !slices.Equal(SortedStrings(directories), expectedDirectories) {
			t.Errorf("Expected directories %v, got %v", expectedDirectories, SortedStrings(directories))
		}

		glob := filepath.Join(config.OutputPrefix, "store_sales", "ss_sold_date_sk=2450816", "*.parquet")
		if queryTestValue(t, duckdb, "SELECT COUNT(*) FROM read_parquet('"+glob+"', hive_partitioning = false)") != "2" {
			t.Errorf("Expected both rows of the date key in its directory")
		}
		columnCount := queryTestValue(t, duckdb, "SELECT COUNT(*) FROM (DESCRIBE SELECT * FROM read_parquet('"+glob+"', hive_partitioning = false))")
		if columnCount != "22" {
			t.Errorf("Expected the partition column to be left out of the files, got %s columns", columnCount)
		}
	})

	t.Run("Writes an unpartitioned table as a single file", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		session, duckdb := newTestSession(t, config)
		rows := testRawRows(findTestTable(t, "catalog_page"), "", []string{"", "", ""})

		err := materializeTestTable(t, config, session, duckdb, "catalog_page", rows)

		if err != nil {
			t.Fatalf("Expected catalog_page to be written, got %v", err)
		}
		filePaths := listTestFiles(t, filepath.Join(config.OutputPrefix, "catalog_page"))
		if len(filePaths) != 2 {
			t.Fatalf("Expected a data file and _SUCCESS, got %v", filePaths)
		}
		if !strings.HasPrefix(filePaths[1], "part-00000-") || !strings.HasSuffix(filePaths[1], "-c000.snappy.parquet") {
			t.Errorf("Unexpected data file name: %s", filePaths[1])
		}
	})

	t.Run("Fails on an existing target under errorifexists", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		session, duckdb := newTestSession(t, config)
		os.MkdirAll(filepath.Join(config.OutputPrefix, "inventory"), os.ModePerm)

		err := materializeTestTable(t, config, session, duckdb, "inventory", TEST_INVENTORY_ROWS)

		var writeConflictError *WriteConflictError
		if !errors.As(err, &writeConflictError) {
			t.Fatalf("Expected a write conflict, got %v", err)
		}
		if len(listTestFiles(t, filepath.Join(config.OutputPrefix, "inventory"))) != 0 {
			t.Errorf("Expected nothing to be written")
		}
	})

	t.Run("Skips an existing target under ignore", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_mode", "ignore")
		session, duckdb := newTestSession(t, config)
		os.MkdirAll(filepath.Join(config.OutputPrefix, "inventory"), os.ModePerm)

		err := materializeTestTable(t, config, session, duckdb, "inventory", TEST_INVENTORY_ROWS)

		if err != nil {
			t.Fatalf("Expected the table to be skipped, got %v", err)
		}
		if len(listTestFiles(t, filepath.Join(config.OutputPrefix, "inventory"))) != 0 {
			t.Errorf("Expected nothing to be written")
		}
	})

	t.Run("Adds files to an existing target under append", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_mode", "append")
		session, duckdb := newTestSession(t, config)

		for i := 0; i < 2; i++ {
			err := materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)
			if err != nil {
				t.Fatalf("Expected income_band to be appended, got %v", err)
			}
		}

		glob := filepath.Join(config.OutputPrefix, "income_band", "*.parquet")
		if queryTestValue(t, duckdb, "SELECT COUNT(*) FROM read_parquet('"+glob+"')") != "6" {
			t.Errorf("Expected both writes to be kept")
		}
	})

	t.Run("Registers an external table with --hive", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--hive", "--database", "nds", "--output_format", "orc", "--compression", "zlib")
		session, duckdb := newTestSession(t, config)

		err := materializeTestTable(t, config, session, duckdb, "inventory", TEST_INVENTORY_ROWS)

		if err != nil {
			t.Fatalf("Expected inventory to be written, got %v", err)
		}
		table, err := session.GetTable(context.Background(), "inventory")
		if err != nil || table == nil {
			t.Fatalf("Expected inventory to be registered, got %v", err)
		}
		if !table.External || table.Database != "nds" || table.Provider != FORMAT_ORC || table.Location != filepath.Join(config.OutputPrefix, "inventory") {
			t.Errorf("Unexpected registration: %+v", table)
		}
		if !slices.Contains(session.History(), "CREATE DATABASE IF NOT EXISTS nds") {
			t.Errorf("Expected the database to be created, got %v", session.History())
		}
		for _, filePath := range listTestFiles(t, table.Location) {
			if filePath != "_SUCCESS" && !strings.HasSuffix(filePath, ".zlib.orc") {
				t.Errorf("Expected zlib ORC files, got %s", filePath)
			}
		}
	})
}

func TestTableMaterializerCatalogTables(t *testing.T) {
	t.Run("Creates an iceberg table with the avro write format and codec", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg", "--iceberg_write_format", "avro", "--compression", "snappy")
		session, duckdb := newTestSession(t, config)
		rows := testRawRows(findTestTable(t, "web_sales"), "ws_sold_date_sk", []string{"2450816", "2450817"})

		err := materializeTestTable(t, config, session, duckdb, "web_sales", rows)

		if err != nil {
			t.Fatalf("Expected web_sales to be written, got %v", err)
		}
		expectedCtas := "CREATE TABLE web_sales USING iceberg PARTITIONED BY (ws_sold_date_sk) " +
			"TBLPROPERTIES('write.format.default'='avro', 'write.avro.compression-codec'='snappy') AS SELECT * FROM temptbl"
		if !slices.Contains(session.History(), expectedCtas) {
			t.Errorf("Expected %s in %v", expectedCtas, session.History())
		}
		location := filepath.Join(config.OutputPrefix, "web_sales")
		filePaths := listTestFiles(t, location)
		if !slices.Contains(filePaths, filepath.Join("metadata", "version-hint.text")) {
			t.Errorf("Expected iceberg metadata, got %v", filePaths)
		}
		avroFileCount := 0
		for _, filePath := range filePaths {
			if strings.HasPrefix(filePath, filepath.Join("data", "ws_sold_date_sk=")) && strings.HasSuffix(filePath, ".avro") {
				avroFileCount++
			}
		}
		if avroFileCount != 2 {
			t.Errorf("Expected one avro data file per date key, got %v", filePaths)
		}
		table, _ := session.GetTable(context.Background(), "web_sales")
		if table == nil || table.External || table.Properties["write.avro.compression-codec"] != "snappy" {
			t.Errorf("Expected a managed registration with the table properties, got %+v", table)
		}
	})

	t.Run("Drops and recreates an iceberg table under overwrite", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg", "--output_mode", "overwrite")
		session, duckdb := newTestSession(t, config)

		for i := 0; i < 2; i++ {
			err := materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)
			if err != nil {
				t.Fatalf("Expected income_band to be written, got %v", err)
			}
		}

		if !slices.Contains(session.History(), "DROP TABLE IF EXISTS income_band") {
			t.Errorf("Expected the table to be dropped first, got %v", session.History())
		}
		dataFileCount := 0
		for _, filePath := range listTestFiles(t, filepath.Join(config.OutputPrefix, "income_band", "data")) {
			if strings.HasSuffix(filePath, ".parquet") {
				dataFileCount++
			}
		}
		if dataFileCount != 1 {
			t.Errorf("Expected only the second write's data file, got %d", dataFileCount)
		}
	})

	t.Run("Fails on an existing catalog table without overwrite", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "iceberg", "--output_mode", "append")
		session, duckdb := newTestSession(t, config)
		err := materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)
		if err != nil {
			t.Fatalf("Expected income_band to be written, got %v", err)
		}

		err = materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)

		var writeConflictError *WriteConflictError
		if !errors.As(err, &writeConflictError) {
			t.Errorf("Expected a write conflict, got %v", err)
		}
	})

	for _, outputFormat := range []string{FORMAT_ICEBERG, FORMAT_DELTA} {
		for _, outputMode := range []string{"error", "errorifexists"} {
			t.Run("Fails without a drop on an existing "+outputFormat+" table under "+outputMode, func(t *testing.T) {
				config := loadTestConfigInTempDir(t, "--output_format", outputFormat, "--output_mode", outputMode)
				session, duckdb := newTestSession(t, config)
				err := materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)
				if err != nil {
					t.Fatalf("Expected income_band to be written, got %v", err)
				}
				location := filepath.Join(config.OutputPrefix, "income_band")
				filePathsBefore := listTestFiles(t, location)

				err = materializeTestTable(t, config, session, duckdb, "income_band", TEST_INCOME_BAND_ROWS)

				var writeConflictError *WriteConflictError
				if !errors.As(err, &writeConflictError) {
					t.Fatalf("Expected a write conflict, got %v", err)
				}
				for _, statement := range session.History() {
					if strings.HasPrefix(statement, "DROP TABLE") {
						t.Errorf("Expected no drop, got %s", statement)
					}
				}
				if !slices.Equal(listTestFiles(t, location), filePathsBefore) {
					t.Errorf("Expected the first write's files to be untouched, got %v", listTestFiles(t, location))
				}
			})
		}
	}

	t.Run("Creates a managed delta table with the session codec", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "delta", "--compression", "zstd")
		session, duckdb := newTestSession(t, config)

		err := materializeTestTable(t, config, session, duckdb, "inventory", TEST_INVENTORY_ROWS)

		if err != nil {
			t.Fatalf("Expected inventory to be written, got %v", err)
		}
		history := session.History()
		setConfIndex := slices.Index(history, "SET spark.sql.parquet.compression.codec=zstd")
		ctasIndex := slices.Index(history, "CREATE TABLE inventory USING delta PARTITIONED BY (inv_date_sk) AS SELECT * FROM temptbl")
		if setConfIndex == -1 || ctasIndex == -1 || setConfIndex > ctasIndex {
			t.Errorf("Expected the codec to be set before the CTAS, got %v", history)
		}
		location := filepath.Join(config.OutputPrefix, "inventory")
		filePaths := listTestFiles(t, location)
		if !slices.Contains(filePaths, filepath.Join("_delta_log", "00000000000000000000.json")) {
			t.Errorf("Expected the first delta commit, got %v", filePaths)
		}
		for _, filePath := range filePaths {
			if !strings.HasPrefix(filePath, "_delta_log") && !strings.HasSuffix(filePath, ".zstd.parquet") {
				t.Errorf("Expected zstd parquet data files, got %s", filePath)
			}
		}
		if session.Conf().Get(CONF_CATALOG_IMPLEMENTATION) != "hive" {
			t.Errorf("Expected the hive catalog implementation in the runtime configuration")
		}
	})

	t.Run("Overwrites an unmanaged delta table with remove actions", func(t *testing.T) {
		config := loadTestConfigInTempDir(t, "--output_format", "delta", "--delta_unmanaged", "--output_mode", "overwrite")
		session, duckdb := newTestSession(t, config)

		for i := 0; i < 2; i++ {
			err := materializeTestTable(t, config, session, duckdb, "inventory", TEST_INVENTORY_ROWS)
			if err != nil {
				t.Fatalf("Expected inventory to be written, got %v", err)
			}
		}

		location := filepath.Join(config.OutputPrefix, "inventory")
		actions := readTestDeltaActions(t, location, 1)
		if countTestDeltaActions(actions, "remove") != 3 || countTestDeltaActions(actions, "add") != 3 {
			t.Errorf("Expected the second commit to replace 3 files, got %v", actions)
		}
		if slices.Contains(listTestFiles(t, location), "_SUCCESS") {
			t.Errorf("Expected no _SUCCESS marker for delta output")
		}
		table, _ := session.GetTable(context.Background(), "inventory")
		if table != nil {
			t.Errorf("Expected no catalog registration for an unmanaged table, got %+v", table)
		}
	})
}
