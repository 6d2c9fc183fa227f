package main

import (
	"context"
	"os"
	"testing"
)

func TestNewDuckdb(t *testing.T) {
	t.Run("Creates a new DuckDB instance", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)

		duckdb := NewDuckdb(config)

		defer duckdb.Close()
		if duckdb.db == nil {
			t.Errorf("Expected DuckDB instance to be created")
		}

		row := duckdb.db.QueryRow("SELECT 1")
		var result int
		err := row.Scan(&result)
		if err != nil {
			t.Errorf("Expected query to succeed")
		}
		if result != 1 {
			t.Errorf("Expected query result to be 1, got %d", result)
		}
	})

	t.Run("Runs the statements of the init file", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		err := os.WriteFile(config.InitSqlFilepath, []byte("SET threads=3;\nSET enable_progress_bar=false;\n"), 0644)
		if err != nil {
			t.Fatalf("Failed to write init file: %v", err)
		}

		duckdb := NewDuckdb(config)
		defer duckdb.Close()

		threads := queryTestValue(t, duckdb, "SELECT current_setting('threads')")
		if threads != "3" {
			t.Errorf("Expected threads to be 3, got %s", threads)
		}
	})
}

func TestDuckdbExecContext(t *testing.T) {
	t.Run("Replaces named arguments and strips quotes", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()
		ctx := context.Background()

		_, err := duckdb.ExecContext(ctx, "CREATE TABLE test_args AS SELECT '$value' AS value", map[string]string{"value": "it's;"})
		if err != nil {
			t.Fatalf("Expected query to succeed, got %v", err)
		}

		value := queryTestValue(t, duckdb, "SELECT value FROM test_args")
		if value != "its" {
			t.Errorf("Expected value to be its, got %s", value)
		}
	})
}

func TestDuckdbSettings(t *testing.T) {
	t.Run("Reports the engine version and resources", func(t *testing.T) {
		config := loadTestConfigInTempDir(t)
		duckdb := NewDuckdb(config)
		defer duckdb.Close()

		settings, err := duckdb.Settings(context.Background())
		if err != nil {
			t.Fatalf("Expected settings, got %v", err)
		}

		if len(settings) != 3 {
			t.Fatalf("Expected 3 settings, got %v", settings)
		}
		if settings[0][0] != "engine.duckdb.version" || settings[0][1] == "" {
			t.Errorf("Expected the engine version, got %v", settings[0])
		}
	})
}
